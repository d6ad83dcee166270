package db

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"farmops/lifecycle"
	"farmops/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DetachCheckinReason = "Tool removed from action"

type CheckInInput struct {
	CheckoutID string
	UserName   string

	WhatDidYouDo     string // required reflection
	Notes            string
	SopBestPractices string
	ProblemsReported string // newline-delimited; one issue per non-empty line
	CheckinReason    string

	HoursUsed      *float64 // dropped unless the tool has a motor
	AfterImageURLs []string
}

type CheckInResult struct {
	Checkin *models.Checkin `json:"checkin"`
	Issues  []models.Issue  `json:"issues,omitempty"`
	Tool    *models.Tool    `json:"tool"`
}

// CheckInTool closes an active checkout in a single transaction: create the
// checkin row, mark the checkout returned, create one issue per reported
// problem line, and release the tool back to available (restoring its home
// location when one is set). Running it all in one transaction means a
// failed step leaves nothing half-applied to retry into.
func (r *Repo) CheckInTool(ctx context.Context, in CheckInInput) (*CheckInResult, error) {
	if strings.TrimSpace(in.WhatDidYouDo) == "" {
		return nil, ErrReflectionRequired
	}

	res := &CheckInResult{}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁定 checkout
		var co models.Checkout
		if err := r.forUpdate(tx).First(&co, "id = ?", in.CheckoutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCheckoutNotFound
			}
			return err
		}
		if _, err := lifecycle.Return(lifecycle.PhaseOf(co.CheckoutDate, co.IsReturned)); err != nil {
			if errors.Is(err, lifecycle.ErrAlreadyReturned) {
				return ErrCheckoutAlreadyReturned
			}
			return ErrCheckoutNotActive
		}

		// 2) 锁定工具
		var tool models.Tool
		if err := r.forUpdate(tx).First(&tool, "id = ?", co.ToolID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrToolNotFound
			}
			return err
		}

		hours := in.HoursUsed
		if !tool.HasMotor {
			hours = nil
		}
		images := marshalStrings(in.AfterImageURLs)

		// 3) checkin row (immutable after this)
		ci := &models.Checkin{
			ID:               uuid.NewString(),
			CheckoutID:       co.ID,
			ToolID:           tool.ID,
			UserName:         in.UserName,
			WhatDidYouDo:     in.WhatDidYouDo,
			Notes:            in.Notes,
			ProblemsReported: in.ProblemsReported,
			SopBestPractices: in.SopBestPractices,
			CheckinReason:    in.CheckinReason,
			HoursUsed:        hours,
			AfterImageURLs:   images,
		}
		if err := tx.Create(ci).Error; err != nil {
			return err
		}

		// 4) close the checkout
		if err := tx.Model(&models.Checkout{}).
			Where("id = ?", co.ID).
			Update("is_returned", true).Error; err != nil {
			return err
		}

		// 5) one issue per reported problem line
		for _, line := range splitProblems(in.ProblemsReported) {
			issue := models.Issue{
				ID:          uuid.NewString(),
				ContextType: "tool",
				ContextID:   tool.ID,
				Description: line,
				IssueType:   models.IssueTypeGeneral,
				Status:      string(lifecycle.IssueActive),
				ReportedBy:  in.UserName,
				ImageURLs:   images,
			}
			if err := tx.Create(&issue).Error; err != nil {
				return err
			}
			res.Issues = append(res.Issues, issue)
		}

		// 6) release the tool
		updates := map[string]any{"status": models.ToolAvailable}
		if tool.HomeLocation != "" {
			updates["storage_location"] = tool.HomeLocation
			tool.StorageLocation = tool.HomeLocation
		}
		if err := tx.Model(&models.Tool{}).
			Where("id = ?", tool.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		tool.Status = models.ToolAvailable

		res.Checkin = ci
		res.Tool = &tool
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type DetachToolInput struct {
	ActionID string
	ToolID   string
	UserName string
}

type DetachToolResult struct {
	// Cancelled is set when the checkout was still planned and was deleted.
	Cancelled bool `json:"cancelled"`
	// CheckIn holds the full check-in performed when the checkout was
	// already active, so usage is still recorded.
	CheckIn *CheckInResult `json:"checkin,omitempty"`
}

// DetachTool removes a tool from an action before check-in. Planned
// checkouts are simply deleted; active ones go through the full check-in
// sequence tagged with the detach reason. Either way the tool id leaves the
// action's required_tools list.
func (r *Repo) DetachTool(ctx context.Context, in DetachToolInput) (*DetachToolResult, error) {
	var co models.Checkout
	err := r.DB.WithContext(ctx).
		Where("action_id = ? AND tool_id = ? AND is_returned = ?", in.ActionID, in.ToolID, false).
		Order("created_at DESC").
		First(&co).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOpenCheckout
	}
	if err != nil {
		return nil, err
	}

	res := &DetachToolResult{}
	if lifecycle.PhaseOf(co.CheckoutDate, co.IsReturned) == lifecycle.Planned {
		if err := r.CancelCheckout(ctx, co.ID); err != nil {
			return nil, err
		}
		res.Cancelled = true
	} else {
		ci, err := r.CheckInTool(ctx, CheckInInput{
			CheckoutID:    co.ID,
			UserName:      in.UserName,
			WhatDidYouDo:  DetachCheckinReason,
			CheckinReason: DetachCheckinReason,
		})
		if err != nil {
			return nil, err
		}
		res.CheckIn = ci
	}

	if err := r.removeRequiredTool(ctx, in.ActionID, in.ToolID); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Repo) removeRequiredTool(ctx context.Context, actionID, toolID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var action models.Action
		if err := r.forUpdate(tx).First(&action, "id = ?", actionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActionNotFound
			}
			return err
		}
		ids, err := decodeToolIDs(action.RequiredTools)
		if err != nil {
			return err
		}
		kept := ids[:0]
		for _, id := range ids {
			if id != toolID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(ids) {
			return nil
		}
		raw, _ := json.Marshal(kept)
		return tx.Model(&models.Action{}).
			Where("id = ?", actionID).
			Update("required_tools", datatypes.JSON(raw)).Error
	})
}

func (r *Repo) FindCheckin(ctx context.Context, id string) (*models.Checkin, error) {
	var ci models.Checkin
	if err := r.DB.WithContext(ctx).First(&ci, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ci, nil
}

func (r *Repo) ListCheckinsForTool(ctx context.Context, toolID string, limit int) ([]models.Checkin, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var cis []models.Checkin
	err := r.DB.WithContext(ctx).
		Where("tool_id = ?", toolID).
		Order("created_at DESC").
		Limit(limit).
		Find(&cis).Error
	return cis, err
}

func splitProblems(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func marshalStrings(xs []string) datatypes.JSON {
	if len(xs) == 0 {
		return nil
	}
	raw, _ := json.Marshal(xs)
	return datatypes.JSON(raw)
}
