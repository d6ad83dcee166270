package db

import (
	"context"
	"errors"

	"farmops/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateActionInput struct {
	Kind           string
	ParentID       *string
	Title          string
	Description    string
	PlanCommitment bool
	CreatedBy      string
}

func (r *Repo) CreateAction(ctx context.Context, in CreateActionInput) (*models.Action, error) {
	if in.Kind == "" {
		in.Kind = models.KindAction
	}
	a := &models.Action{
		ID:             uuid.NewString(),
		Kind:           in.Kind,
		ParentID:       in.ParentID,
		Title:          in.Title,
		Description:    in.Description,
		Status:         models.ActionPlanned,
		PlanCommitment: in.PlanCommitment,
		CreatedBy:      in.CreatedBy,
	}
	if err := r.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Repo) FindActionByID(ctx context.Context, id string) (*models.Action, error) {
	var a models.Action
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, err
	}
	return &a, nil
}

type UpdateActionInput struct {
	Title          *string         `json:"title,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Status         *string         `json:"status,omitempty"`
	PlanCommitment *bool           `json:"planCommitment,omitempty"`
	RequiredTools  *datatypes.JSON `json:"requiredTools,omitempty"`
}

func (r *Repo) UpdateAction(ctx context.Context, id string, in UpdateActionInput) (*models.Action, error) {
	updates := map[string]any{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.PlanCommitment != nil {
		updates["plan_commitment"] = *in.PlanCommitment
	}
	if in.RequiredTools != nil {
		updates["required_tools"] = *in.RequiredTools
	}
	if len(updates) > 0 {
		res := r.DB.WithContext(ctx).Model(&models.Action{}).
			Where("id = ?", id).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrActionNotFound
		}
	}
	return r.FindActionByID(ctx, id)
}

// StartAction flips the action to in_progress with plan commitment and
// activates its planned checkouts.
func (r *Repo) StartAction(ctx context.Context, id string) (*models.Action, int, error) {
	status := models.ActionInProgress
	commit := true
	a, err := r.UpdateAction(ctx, id, UpdateActionInput{Status: &status, PlanCommitment: &commit})
	if err != nil {
		return nil, 0, err
	}
	n, err := r.ActivatePlannedCheckouts(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	return a, n, nil
}

type ActionsQuery struct {
	Kind   string
	Status string
	Page   int
	Size   int
}

func (r *Repo) ListActions(ctx context.Context, q ActionsQuery) ([]models.Action, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 50
	}
	tx := r.DB.WithContext(ctx).Model(&models.Action{})
	if q.Kind != "" {
		tx = tx.Where("kind = ?", q.Kind)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var actions []models.Action
	err := tx.Order("created_at DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&actions).Error
	return actions, total, err
}

// AddActionUpdate appends a progress note and bumps the denormalized
// counter in the same transaction, so the count the list screens show can
// only drift if someone edits rows by hand.
func (r *Repo) AddActionUpdate(ctx context.Context, actionID, body, byUser string) (*models.ActionUpdate, error) {
	upd := &models.ActionUpdate{
		ID:        uuid.NewString(),
		ActionID:  actionID,
		Body:      body,
		CreatedBy: byUser,
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Action
		if err := r.forUpdate(tx).First(&a, "id = ?", actionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActionNotFound
			}
			return err
		}
		if err := tx.Create(upd).Error; err != nil {
			return err
		}
		return tx.Model(&models.Action{}).
			Where("id = ?", actionID).
			Update("update_count", gorm.Expr("update_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return upd, nil
}

func (r *Repo) ListActionUpdates(ctx context.Context, actionID string) ([]models.ActionUpdate, error) {
	var rows []models.ActionUpdate
	err := r.DB.WithContext(ctx).
		Where("action_id = ?", actionID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// DeleteActionUpdate removes a note and decrements the counter, floored at
// zero to match the optimistic rollback on the client.
func (r *Repo) DeleteActionUpdate(ctx context.Context, actionID, updateID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND action_id = ?", updateID, actionID).Delete(&models.ActionUpdate{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Action{}).
			Where("id = ?", actionID).
			Update("update_count", gorm.Expr("CASE WHEN update_count > 0 THEN update_count - 1 ELSE 0 END")).Error
	})
}
