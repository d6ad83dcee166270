package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"farmops/app"
	"farmops/db"

	"github.com/gin-gonic/gin"
)

type CheckoutController struct{ *Srv }

func NewCheckoutController(s *Srv) *CheckoutController { return &CheckoutController{Srv: s} }

// GET /checkouts?tool_id=&is_returned=false&limit=1
func (cc *CheckoutController) ListCheckouts(c *gin.Context) {
	q := db.CheckoutsQuery{
		ToolID:   c.Query("tool_id"),
		ActionID: c.Query("action_id"),
		UserID:   c.Query("user_id"),
	}
	if v := c.Query("is_returned"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, app.H{"error": "invalid is_returned"})
			return
		}
		q.IsReturned = &b
	}
	if v := c.Query("limit"); v != "" {
		q.Limit, _ = strconv.Atoi(v)
	}
	cos, err := cc.Repo.ListCheckouts(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("list checkouts", err)})
		return
	}
	c.JSON(http.StatusOK, app.H{"checkouts": cos})
}

// POST /checkouts：裸创建，checkout_date 有无即 planned/active 判别
func (cc *CheckoutController) CreateCheckout(c *gin.Context) {
	userID, username := currentUser(c)
	var in struct {
		ToolID       string     `json:"tool_id" binding:"required"`
		ActionID     *string    `json:"action_id"`
		CheckoutDate *time.Time `json:"checkout_date"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	co, err := cc.Repo.CreateCheckout(c.Request.Context(), db.CreateCheckoutInput{
		ToolID:       in.ToolID,
		UserID:       userID,
		UserName:     username,
		ActionID:     in.ActionID,
		CheckoutDate: in.CheckoutDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrToolNotFound):
			c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
		case errors.Is(err, db.ErrToolNotSerialized):
			c.JSON(http.StatusUnprocessableEntity, app.H{"error": err.Error()})
		case errors.Is(err, db.ErrToolAlreadyCheckedOut):
			// 与 AttachTool 相同的显式策略：目标状态已达成
			cc.Log.Debug("duplicate active checkout absorbed", "toolId", in.ToolID)
			c.JSON(http.StatusOK, app.H{"ok": true, "notice": "tool already checked out"})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("create checkout", err)})
		}
		return
	}
	c.JSON(http.StatusCreated, co)
}

// PUT /checkouts/:id：仅支持 { is_returned: true }，完整表单走 /checkins
func (cc *CheckoutController) UpdateCheckout(c *gin.Context) {
	var in struct {
		IsReturned *bool `json:"is_returned"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.IsReturned == nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "is_returned is required"})
		return
	}
	if !*in.IsReturned {
		c.JSON(http.StatusBadRequest, app.H{"error": "reopening a checkout is not supported"})
		return
	}
	_, username := currentUser(c)
	// 没有 checkin 表单数据时按最小 check-in 处理
	res, err := cc.Repo.CheckInTool(c.Request.Context(), db.CheckInInput{
		CheckoutID:    c.Param("id"),
		UserName:      username,
		WhatDidYouDo:  "Closed via checkout update",
		CheckinReason: "Closed via checkout update",
	})
	if err != nil {
		cc.respondCheckinError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DELETE /checkouts/:id：取消 planned checkout
func (cc *CheckoutController) CancelCheckout(c *gin.Context) {
	err := cc.Repo.CancelCheckout(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, db.ErrCheckoutNotFound):
			c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
		case errors.Is(err, db.ErrCheckoutNotPlanned):
			c.JSON(http.StatusConflict, app.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("cancel checkout", err)})
		}
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// POST /actions/:id/tools：checkout initiator
func (cc *CheckoutController) AttachTool(c *gin.Context) {
	userID, username := currentUser(c)
	var in struct {
		ToolID string `json:"tool_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	res, err := cc.Repo.AttachTool(c.Request.Context(), db.AttachToolInput{
		ActionID: c.Param("id"),
		ToolID:   in.ToolID,
		UserID:   userID,
		UserName: username,
	})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrToolNotFound), errors.Is(err, db.ErrActionNotFound):
			c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
		case errors.Is(err, db.ErrToolNotSerialized), errors.Is(err, db.ErrToolRemoved):
			c.JSON(http.StatusUnprocessableEntity, app.H{"error": err.Error()})
		case errors.Is(err, db.ErrToolBlocked):
			c.JSON(http.StatusConflict, app.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("attach tool", err)})
		}
		return
	}
	status := http.StatusCreated
	body := app.H{"result": res}
	if res.AlreadyCheckedOut {
		// 显式策略：重复 active checkout 视为目标已达成
		cc.Log.Debug("duplicate active checkout absorbed", "toolId", in.ToolID, "actionId", c.Param("id"))
		status = http.StatusOK
		body["notice"] = "tool already checked out"
	}
	if res.AlreadyRequired {
		status = http.StatusOK
		body["notice"] = "tool already attached to this action"
	}
	c.JSON(status, body)
}

// DELETE /actions/:id/tools/:toolId：提前移除工具
func (cc *CheckoutController) DetachTool(c *gin.Context) {
	_, username := currentUser(c)
	res, err := cc.Repo.DetachTool(c.Request.Context(), db.DetachToolInput{
		ActionID: c.Param("id"),
		ToolID:   c.Param("toolId"),
		UserName: username,
	})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNoOpenCheckout):
			c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("detach tool", err)})
		}
		return
	}
	c.JSON(http.StatusOK, res)
}
