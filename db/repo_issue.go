package db

import (
	"context"
	"errors"

	"farmops/lifecycle"
	"farmops/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateIssueInput struct {
	ContextType string
	ContextID   string
	Description string
	IssueType   string
	ReportedBy  string

	BlocksCheckout bool
	IsMisuse       bool
	ImageURLs      []string
}

// CreateIssue always starts the issue in active regardless of what the
// caller asks for.
func (r *Repo) CreateIssue(ctx context.Context, in CreateIssueInput) (*models.Issue, error) {
	if in.IssueType == "" {
		in.IssueType = models.IssueTypeGeneral
	}
	issue := &models.Issue{
		ID:             uuid.NewString(),
		ContextType:    in.ContextType,
		ContextID:      in.ContextID,
		Description:    in.Description,
		IssueType:      in.IssueType,
		Status:         string(lifecycle.IssueActive),
		BlocksCheckout: in.BlocksCheckout,
		IsMisuse:       in.IsMisuse,
		ImageURLs:      marshalStrings(in.ImageURLs),
		ReportedBy:     in.ReportedBy,
	}
	if err := r.DB.WithContext(ctx).Create(issue).Error; err != nil {
		return nil, err
	}
	return issue, nil
}

// ResolveIssue moves an active issue to resolved (terminal) and writes the
// history row. The resolution must carry root cause and notes.
func (r *Repo) ResolveIssue(ctx context.Context, issueID string, res lifecycle.Resolution, byUser string) (*models.Issue, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	var issue models.Issue
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.forUpdate(tx).First(&issue, "id = ?", issueID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrIssueNotFound
			}
			return err
		}
		old := lifecycle.IssueStatus(issue.Status)
		if err := lifecycle.TransitionIssue(old, lifecycle.IssueResolved); err != nil {
			return err
		}
		updates := map[string]any{
			"status":                string(lifecycle.IssueResolved),
			"root_cause":            res.RootCause,
			"resolution_notes":      res.Notes,
			"resolution_image_urls": marshalStrings(res.ImageURLs),
		}
		if err := tx.Model(&models.Issue{}).
			Where("id = ?", issue.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		issue.Status = string(lifecycle.IssueResolved)
		issue.RootCause = &res.RootCause
		issue.ResolutionNotes = &res.Notes
		return tx.Create(&models.IssueHistory{
			ID:        uuid.NewString(),
			IssueID:   issue.ID,
			OldStatus: string(old),
			NewStatus: string(lifecycle.IssueResolved),
			Notes:     res.Notes,
			CreatedBy: byUser,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// RemoveIssue moves an active issue to removed (terminal). No resolution
// data; the free-text note lands on the history row only.
func (r *Repo) RemoveIssue(ctx context.Context, issueID, note, byUser string) (*models.Issue, error) {
	var issue models.Issue
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.forUpdate(tx).First(&issue, "id = ?", issueID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrIssueNotFound
			}
			return err
		}
		old := lifecycle.IssueStatus(issue.Status)
		if err := lifecycle.TransitionIssue(old, lifecycle.IssueRemoved); err != nil {
			return err
		}
		if err := tx.Model(&models.Issue{}).
			Where("id = ?", issue.ID).
			Update("status", string(lifecycle.IssueRemoved)).Error; err != nil {
			return err
		}
		issue.Status = string(lifecycle.IssueRemoved)
		return tx.Create(&models.IssueHistory{
			ID:        uuid.NewString(),
			IssueID:   issue.ID,
			OldStatus: string(old),
			NewStatus: string(lifecycle.IssueRemoved),
			Notes:     note,
			CreatedBy: byUser,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *Repo) FindIssueByID(ctx context.Context, id string) (*models.Issue, error) {
	var issue models.Issue
	if err := r.DB.WithContext(ctx).First(&issue, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, err
	}
	return &issue, nil
}

type IssuesQuery struct {
	ContextType string
	ContextID   string
	Status      string
	Page        int
	Size        int
}

func (r *Repo) ListIssues(ctx context.Context, q IssuesQuery) ([]models.Issue, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 50
	}
	tx := r.DB.WithContext(ctx).Model(&models.Issue{})
	if q.ContextType != "" {
		tx = tx.Where("context_type = ?", q.ContextType)
	}
	if q.ContextID != "" {
		tx = tx.Where("context_id = ?", q.ContextID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var issues []models.Issue
	err := tx.Order("created_at DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&issues).Error
	return issues, total, err
}

func (r *Repo) ListIssueHistory(ctx context.Context, issueID string) ([]models.IssueHistory, error) {
	var rows []models.IssueHistory
	err := r.DB.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
