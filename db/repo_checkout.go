package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"farmops/lifecycle"
	"farmops/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttachToolInput struct {
	ActionID string
	ToolID   string
	UserID   string
	UserName string
}

type AttachToolResult struct {
	Checkout *models.Checkout `json:"checkout,omitempty"`
	// AlreadyCheckedOut is the explicit duplicate-active-checkout policy:
	// the desired end state (tool attached, active checkout exists) already
	// holds, so the caller reports success with a notice instead of an error.
	AlreadyCheckedOut bool `json:"alreadyCheckedOut"`
	// AlreadyRequired means the tool id was already in required_tools; the
	// append is idempotent and this is a notice, not an error.
	AlreadyRequired bool `json:"alreadyRequired"`
	Activated       bool `json:"activated"`
}

// AttachTool attaches a tool to an action. plan_commitment on the action
// decides the checkout phase: true → active now (tool goes checked_out),
// false → planned (null date, tool untouched).
func (r *Repo) AttachTool(ctx context.Context, in AttachToolInput) (*AttachToolResult, error) {
	res := &AttachToolResult{}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁定工具行
		var tool models.Tool
		if err := r.forUpdate(tx).First(&tool, "id = ?", in.ToolID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrToolNotFound
			}
			return err
		}
		if tool.Status == models.ToolRemoved {
			return ErrToolRemoved
		}
		// Only serialized items may be checked out.
		if !tool.Serialized() {
			return ErrToolNotSerialized
		}

		// 2) open blocking issue → reject
		var blocked int64
		if err := tx.Model(&models.Issue{}).
			Where("context_type = ? AND context_id = ? AND status = ? AND blocks_checkout = ?",
				"tool", tool.ID, string(lifecycle.IssueActive), true).
			Count(&blocked).Error; err != nil {
			return err
		}
		if blocked > 0 {
			return ErrToolBlocked
		}

		// 3) 读取 action 和 plan_commitment
		var action models.Action
		if err := r.forUpdate(tx).First(&action, "id = ?", in.ActionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActionNotFound
			}
			return err
		}

		// 4) idempotent required_tools append。已在列表里：no-op + notice，
		// 不再开新的 checkout（否则 planned 行会重复累积）
		required, err := decodeToolIDs(action.RequiredTools)
		if err != nil {
			return err
		}
		if containsString(required, tool.ID) {
			res.AlreadyRequired = true
			return nil
		}
		required = append(required, tool.ID)
		raw, _ := json.Marshal(required)
		if err := tx.Model(&models.Action{}).
			Where("id = ?", action.ID).
			Update("required_tools", datatypes.JSON(raw)).Error; err != nil {
			return err
		}

		if !action.PlanCommitment {
			// Planned checkout: no date, tool status untouched.
			co := &models.Checkout{
				ID:       uuid.NewString(),
				ToolID:   tool.ID,
				UserID:   in.UserID,
				UserName: in.UserName,
				ActionID: &action.ID,
			}
			if err := tx.Create(co).Error; err != nil {
				return err
			}
			res.Checkout = co
			return nil
		}

		// Active checkout. The partial unique index is the backstop; the
		// explicit pre-check gives the same answer on sqlite.
		var open int64
		if err := tx.Model(&models.Checkout{}).
			Where("tool_id = ? AND is_returned = ? AND checkout_date IS NOT NULL", tool.ID, false).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			res.AlreadyCheckedOut = true
			return nil
		}

		now := time.Now().UTC()
		co := &models.Checkout{
			ID:           uuid.NewString(),
			ToolID:       tool.ID,
			UserID:       in.UserID,
			UserName:     in.UserName,
			ActionID:     &action.ID,
			CheckoutDate: &now,
		}
		if err := tx.Create(co).Error; err != nil {
			if IsDuplicateKey(err) {
				res.AlreadyCheckedOut = true
				return nil
			}
			return err
		}
		if err := tx.Model(&models.Tool{}).
			Where("id = ?", tool.ID).
			Update("status", models.ToolCheckedOut).Error; err != nil {
			return err
		}
		res.Checkout = co
		res.Activated = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type CreateCheckoutInput struct {
	ToolID   string
	UserID   string
	UserName string
	ActionID *string
	// Presence of CheckoutDate is the planned/active discriminator, same as
	// the wire format.
	CheckoutDate *time.Time
}

// CreateCheckout is the raw POST /checkouts path for callers that manage the
// action linkage themselves. Same serial and duplicate-active rules as
// AttachTool.
func (r *Repo) CreateCheckout(ctx context.Context, in CreateCheckoutInput) (*models.Checkout, error) {
	var co *models.Checkout
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tool models.Tool
		if err := r.forUpdate(tx).First(&tool, "id = ?", in.ToolID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrToolNotFound
			}
			return err
		}
		if !tool.Serialized() {
			return ErrToolNotSerialized
		}
		if in.CheckoutDate != nil {
			var open int64
			if err := tx.Model(&models.Checkout{}).
				Where("tool_id = ? AND is_returned = ? AND checkout_date IS NOT NULL", tool.ID, false).
				Count(&open).Error; err != nil {
				return err
			}
			if open > 0 {
				return ErrToolAlreadyCheckedOut
			}
		}
		c := &models.Checkout{
			ID:           uuid.NewString(),
			ToolID:       in.ToolID,
			UserID:       in.UserID,
			UserName:     in.UserName,
			ActionID:     in.ActionID,
			CheckoutDate: in.CheckoutDate,
		}
		if err := tx.Create(c).Error; err != nil {
			if IsDuplicateKey(err) {
				return ErrToolAlreadyCheckedOut
			}
			return err
		}
		if in.CheckoutDate != nil {
			if err := tx.Model(&models.Tool{}).
				Where("id = ?", in.ToolID).
				Update("status", models.ToolCheckedOut).Error; err != nil {
				return err
			}
		}
		co = c
		return nil
	})
	return co, err
}

// CancelCheckout deletes a planned checkout. Active checkouts must go
// through check-in instead (DetachTool handles that branch).
func (r *Repo) CancelCheckout(ctx context.Context, checkoutID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var co models.Checkout
		if err := r.forUpdate(tx).First(&co, "id = ?", checkoutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCheckoutNotFound
			}
			return err
		}
		if !lifecycle.CanCancel(lifecycle.PhaseOf(co.CheckoutDate, co.IsReturned)) {
			return ErrCheckoutNotPlanned
		}
		return tx.Delete(&co).Error
	})
}

// ActivatePlannedCheckouts runs when an action starts: every planned
// checkout gets its date and the tool goes checked_out. A tool that somehow
// already has an active checkout elsewhere stays planned and is skipped.
func (r *Repo) ActivatePlannedCheckouts(ctx context.Context, actionID string) (int, error) {
	activated := 0
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var planned []models.Checkout
		if err := r.forUpdate(tx).
			Where("action_id = ? AND is_returned = ? AND checkout_date IS NULL", actionID, false).
			Find(&planned).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for i := range planned {
			co := &planned[i]
			if _, err := lifecycle.Activate(lifecycle.PhaseOf(co.CheckoutDate, co.IsReturned)); err != nil {
				continue
			}
			var open int64
			if err := tx.Model(&models.Checkout{}).
				Where("tool_id = ? AND is_returned = ? AND checkout_date IS NOT NULL", co.ToolID, false).
				Count(&open).Error; err != nil {
				return err
			}
			if open > 0 {
				continue
			}
			if err := tx.Model(&models.Checkout{}).
				Where("id = ?", co.ID).
				Update("checkout_date", now).Error; err != nil {
				if IsDuplicateKey(err) {
					continue
				}
				return err
			}
			if err := tx.Model(&models.Tool{}).
				Where("id = ?", co.ToolID).
				Update("status", models.ToolCheckedOut).Error; err != nil {
				return err
			}
			activated++
		}
		return nil
	})
	return activated, err
}

// ActiveCheckoutForTool implements GET /checkouts?tool_id=&is_returned=false&limit=1.
func (r *Repo) ActiveCheckoutForTool(ctx context.Context, toolID string) (*models.Checkout, error) {
	var co models.Checkout
	err := r.DB.WithContext(ctx).
		Where("tool_id = ? AND is_returned = ? AND checkout_date IS NOT NULL", toolID, false).
		Order("checkout_date DESC").
		First(&co).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOpenCheckout
	}
	if err != nil {
		return nil, err
	}
	return &co, nil
}

type CheckoutsQuery struct {
	ToolID     string
	ActionID   string
	UserID     string
	IsReturned *bool
	Limit      int
}

func (r *Repo) ListCheckouts(ctx context.Context, q CheckoutsQuery) ([]models.Checkout, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Checkout{}).Order("created_at DESC")
	if q.ToolID != "" {
		tx = tx.Where("tool_id = ?", q.ToolID)
	}
	if q.ActionID != "" {
		tx = tx.Where("action_id = ?", q.ActionID)
	}
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}
	if q.IsReturned != nil {
		tx = tx.Where("is_returned = ?", *q.IsReturned)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var cos []models.Checkout
	if err := tx.Find(&cos).Error; err != nil {
		return nil, err
	}
	return cos, nil
}

func decodeToolIDs(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
