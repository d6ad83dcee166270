package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"farmops/app"
	"farmops/db"

	"github.com/gin-gonic/gin"
)

type ActionController struct{ *Srv }

func NewActionController(s *Srv) *ActionController { return &ActionController{Srv: s} }

// POST /actions
func (ac *ActionController) CreateAction(c *gin.Context) {
	_, username := currentUser(c)
	var in struct {
		Kind           string  `json:"kind"`
		ParentID       *string `json:"parent_id"`
		Title          string  `json:"title" binding:"required"`
		Description    string  `json:"description"`
		PlanCommitment bool    `json:"plan_commitment"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	a, err := ac.Repo.CreateAction(c.Request.Context(), db.CreateActionInput{
		Kind:           in.Kind,
		ParentID:       in.ParentID,
		Title:          in.Title,
		Description:    in.Description,
		PlanCommitment: in.PlanCommitment,
		CreatedBy:      username,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("create action", err)})
		return
	}
	c.JSON(http.StatusCreated, a)
}

// GET /actions
func (ac *ActionController) ListActions(c *gin.Context) {
	q := db.ActionsQuery{
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "50"))
	actions, total, err := ac.Repo.ListActions(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("list actions", err)})
		return
	}
	c.JSON(http.StatusOK, app.H{"total": total, "actions": actions})
}

// GET /actions/:id
func (ac *ActionController) GetAction(c *gin.Context) {
	a, err := ac.Repo.FindActionByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "action not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// PUT /actions/:id：required_tools / plan_commitment 等部分更新
func (ac *ActionController) UpdateAction(c *gin.Context) {
	var in db.UpdateActionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	a, err := ac.Repo.UpdateAction(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		if errors.Is(err, db.ErrActionNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "action not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("update action", err)})
		return
	}
	c.JSON(http.StatusOK, a)
}

// POST /actions/:id/start：进入 in_progress 并激活 planned checkouts
func (ac *ActionController) StartAction(c *gin.Context) {
	a, activated, err := ac.Repo.StartAction(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrActionNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "action not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("start action", err)})
		return
	}
	c.JSON(http.StatusOK, app.H{"action": a, "activatedCheckouts": activated})
}

// POST /actions/:id/updates
func (ac *ActionController) AddUpdate(c *gin.Context) {
	_, username := currentUser(c)
	var in struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	upd, err := ac.Repo.AddActionUpdate(c.Request.Context(), c.Param("id"), in.Body, username)
	if err != nil {
		if errors.Is(err, db.ErrActionNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "action not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("add update", err)})
		return
	}
	c.JSON(http.StatusCreated, upd)
}

// GET /actions/:id/updates
func (ac *ActionController) ListUpdates(c *gin.Context) {
	rows, err := ac.Repo.ListActionUpdates(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("list updates", err)})
		return
	}
	c.JSON(http.StatusOK, app.H{"updates": rows})
}

// DELETE /actions/:id/updates/:updateId
func (ac *ActionController) DeleteUpdate(c *gin.Context) {
	err := ac.Repo.DeleteActionUpdate(c.Request.Context(), c.Param("id"), c.Param("updateId"))
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "update not found"})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
