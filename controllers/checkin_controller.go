package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"farmops/app"
	"farmops/db"
	"farmops/session"

	"github.com/gin-gonic/gin"
)

type CheckinController struct{ *Srv }

func NewCheckinController(s *Srv) *CheckinController { return &CheckinController{Srv: s} }

type checkinReq struct {
	CheckoutID       string   `json:"checkout_id" binding:"required"`
	WhatDidYouDo     string   `json:"what_did_you_do"`
	Notes            string   `json:"notes"`
	SopBestPractices string   `json:"sop_best_practices"`
	ProblemsReported string   `json:"problems_reported"`
	CheckinReason    string   `json:"checkin_reason"`
	HoursUsed        *float64 `json:"hours_used"`
	AfterImageURLs   []string `json:"after_image_urls"`
}

// POST /checkins：check-in workflow. The reflection check runs before any
// storage work; an optional X-Request-ID header makes whole-request retries
// replay the first response instead of re-running the mutation.
func (cc *CheckinController) CreateCheckin(c *gin.Context) {
	var in checkinReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(in.WhatDidYouDo) == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "reflection is required"})
		return
	}

	reqID := c.GetHeader("X-Request-ID")
	if reqID != "" && cc.ReqIDs != nil {
		prev, err := cc.ReqIDs.Claim(c.Request.Context(), reqID)
		if errors.Is(err, session.ErrInFlight) {
			c.JSON(http.StatusConflict, app.H{"error": "request already in progress"})
			return
		}
		if err != nil {
			cc.Log.Warn("idempotency claim failed, proceeding without", "err", err)
		} else if prev != nil {
			c.Data(http.StatusOK, "application/json", prev)
			return
		}
	}

	_, username := currentUser(c)
	res, err := cc.Repo.CheckInTool(c.Request.Context(), db.CheckInInput{
		CheckoutID:       in.CheckoutID,
		UserName:         username,
		WhatDidYouDo:     in.WhatDidYouDo,
		Notes:            in.Notes,
		SopBestPractices: in.SopBestPractices,
		ProblemsReported: in.ProblemsReported,
		CheckinReason:    in.CheckinReason,
		HoursUsed:        in.HoursUsed,
		AfterImageURLs:   in.AfterImageURLs,
	})
	if err != nil {
		if reqID != "" && cc.ReqIDs != nil {
			_ = cc.ReqIDs.Release(c.Request.Context(), reqID)
		}
		cc.respondCheckinError(c, err)
		return
	}

	if reqID != "" && cc.ReqIDs != nil {
		if body, err := json.Marshal(res); err == nil {
			_ = cc.ReqIDs.StoreResult(c.Request.Context(), reqID, body)
		}
	}
	c.JSON(http.StatusCreated, res)
}

// GET /tools/:id/checkins：usage history
func (cc *CheckinController) ListToolCheckins(c *gin.Context) {
	cis, err := cc.Repo.ListCheckinsForTool(c.Request.Context(), c.Param("id"), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("list checkins", err)})
		return
	}
	c.JSON(http.StatusOK, app.H{"checkins": cis})
}

// respondCheckinError maps check-in failures onto the differentiated
// messages the UI shows; shared with the checkout-close path.
func (cc *CheckoutController) respondCheckinError(c *gin.Context, err error) {
	respondCheckinError(cc.Srv, c, err)
}

func (cc *CheckinController) respondCheckinError(c *gin.Context, err error) {
	respondCheckinError(cc.Srv, c, err)
}

func respondCheckinError(s *Srv, c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrReflectionRequired):
		c.JSON(http.StatusBadRequest, app.H{"error": "reflection is required"})
	case errors.Is(err, db.ErrCheckoutNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrCheckoutAlreadyReturned):
		c.JSON(http.StatusConflict, app.H{"error": "tool already checked in"})
	case errors.Is(err, db.ErrCheckoutNotActive):
		c.JSON(http.StatusConflict, app.H{"error": "checkout is still planned; cancel it instead"})
	default:
		s.Log.Error("check-in failed", "err", err)
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("check in tool", err)})
	}
}
