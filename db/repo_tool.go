package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"farmops/models"

	"gorm.io/gorm"
)

// Tools

func (r *Repo) CreateTool(ctx context.Context, t *models.Tool) error {
	if t.Status == "" {
		t.Status = models.ToolAvailable
	}
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *Repo) FindToolByID(ctx context.Context, id string) (*models.Tool, error) {
	var t models.Tool
	if err := r.DB.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrToolNotFound
		}
		return nil, err
	}
	return &t, nil
}

type UpdateToolInput struct {
	Name            *string `json:"name,omitempty"`
	Status          *string `json:"status,omitempty"`
	StorageLocation *string `json:"storageLocation,omitempty"`
	HomeLocation    *string `json:"homeLocation,omitempty"`
	HasMotor        *bool   `json:"hasMotor,omitempty"`
}

// UpdateTool is the PUT /tools/:id partial update. Tools are never deleted;
// setting status to removed is the terminal form.
func (r *Repo) UpdateTool(ctx context.Context, id string, in UpdateToolInput) (*models.Tool, error) {
	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.StorageLocation != nil {
		updates["storage_location"] = *in.StorageLocation
	}
	if in.HomeLocation != nil {
		updates["home_location"] = *in.HomeLocation
	}
	if in.HasMotor != nil {
		updates["has_motor"] = *in.HasMotor
	}
	if len(updates) > 0 {
		res := r.DB.WithContext(ctx).Model(&models.Tool{}).
			Where("id = ?", id).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrToolNotFound
		}
	}
	return r.FindToolByID(ctx, id)
}

// ToolRow is the registry view: a tool annotated with its current open
// checkout and active-issue count.
type ToolRow struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Serial          *string    `json:"serial,omitempty"`
	Status          string     `json:"status"`
	HasMotor        bool       `json:"hasMotor"`
	StorageLocation string     `json:"storageLocation,omitempty"`
	HomeLocation    string     `json:"homeLocation,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	CheckoutID       *string    `json:"checkoutId,omitempty"`
	CheckedOutBy     *string    `json:"checkedOutBy,omitempty"`
	CheckedOutByName *string    `json:"checkedOutByName,omitempty"`
	CheckoutDate     *time.Time `json:"checkoutDate,omitempty"`
	ActionID         *string    `json:"actionId,omitempty"`

	ActiveIssues   int64 `json:"activeIssues"`
	BlockingIssues int64 `json:"blockingIssues"`
}

type ToolsQuery struct {
	Q      string // matches serial/name
	Status string // "", or a tool status; "checked_out"/"available" follow the column
	Page   int
	Size   int
}

type PagedTools struct {
	Total int64     `json:"total"`
	Tools []ToolRow `json:"tools"`
}

// ListTools joins each tool with its open active checkout (the partial
// unique index guarantees at most one) and its active issue counts.
func (r *Repo) ListTools(ctx context.Context, q ToolsQuery) (*PagedTools, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 20
	}
	offset := (q.Page - 1) * q.Size

	db := r.DB.WithContext(ctx)

	base := db.Table(models.ToolTable + " t")
	if s := strings.TrimSpace(q.Q); s != "" {
		pat := "%" + strings.ToLower(s) + "%"
		base = base.Where("LOWER(t.serial) LIKE ? OR LOWER(t.name) LIKE ?", pat, pat)
	}
	if q.Status != "" {
		base = base.Where("t.status = ?", q.Status)
	} else {
		base = base.Where("t.status <> ?", models.ToolRemoved)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []ToolRow
	err := base.Session(&gorm.Session{}).
		Select(`
			t.id, t.name, t.serial, t.status, t.has_motor, t.storage_location, t.home_location,
			t.created_at, t.updated_at,
			co.id        AS checkout_id,
			co.user_id   AS checked_out_by,
			co.user_name AS checked_out_by_name,
			co.checkout_date,
			co.action_id,
			COALESCE(ai.n, 0) AS active_issues,
			COALESCE(bi.n, 0) AS blocking_issues
		`).
		Joins("LEFT JOIN "+models.CheckoutTable+" co ON co.tool_id = t.id AND co.is_returned = FALSE AND co.checkout_date IS NOT NULL").
		Joins("LEFT JOIN (SELECT context_id, COUNT(*) AS n FROM "+models.IssueTable+" WHERE context_type = 'tool' AND status = 'active' GROUP BY context_id) ai ON ai.context_id = t.id").
		Joins("LEFT JOIN (SELECT context_id, COUNT(*) AS n FROM "+models.IssueTable+" WHERE context_type = 'tool' AND status = 'active' AND blocks_checkout GROUP BY context_id) bi ON bi.context_id = t.id").
		Order("t.created_at DESC").
		Offset(offset).
		Limit(q.Size).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return &PagedTools{Total: total, Tools: rows}, nil
}

// Parts (consumable stock)

func (r *Repo) CreatePart(ctx context.Context, p *models.Part) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *Repo) FindPartByID(ctx context.Context, id string) (*models.Part, error) {
	var p models.Part
	if err := r.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPartNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repo) ListParts(ctx context.Context, q string) ([]models.Part, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Part{}).Order("name ASC")
	if s := strings.TrimSpace(q); s != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	var parts []models.Part
	err := tx.Find(&parts).Error
	return parts, err
}

// AdjustPartQuantity applies a signed delta, floored at zero.
func (r *Repo) AdjustPartQuantity(ctx context.Context, id string, delta int) (*models.Part, error) {
	var p models.Part
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.forUpdate(tx).First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPartNotFound
			}
			return err
		}
		p.Quantity += delta
		if p.Quantity < 0 {
			p.Quantity = 0
		}
		return tx.Model(&models.Part{}).
			Where("id = ?", id).
			Update("quantity", p.Quantity).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
