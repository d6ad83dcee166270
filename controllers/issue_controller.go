package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"farmops/app"
	"farmops/db"
	"farmops/lifecycle"

	"github.com/gin-gonic/gin"
)

type IssueController struct{ *Srv }

func NewIssueController(s *Srv) *IssueController { return &IssueController{Srv: s} }

// POST /issues
func (ic *IssueController) CreateIssue(c *gin.Context) {
	_, username := currentUser(c)
	var in struct {
		ContextType    string   `json:"context_type" binding:"required"`
		ContextID      string   `json:"context_id" binding:"required"`
		Description    string   `json:"description" binding:"required"`
		IssueType      string   `json:"issue_type"`
		BlocksCheckout bool     `json:"blocks_checkout"`
		IsMisuse       bool     `json:"is_misuse"`
		ImageURLs      []string `json:"image_urls"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	issue, err := ic.Repo.CreateIssue(c.Request.Context(), db.CreateIssueInput{
		ContextType:    in.ContextType,
		ContextID:      in.ContextID,
		Description:    in.Description,
		IssueType:      in.IssueType,
		BlocksCheckout: in.BlocksCheckout,
		IsMisuse:       in.IsMisuse,
		ImageURLs:      in.ImageURLs,
		ReportedBy:     username,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("create issue", err)})
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// GET /issues?context_type=&context_id=&status=
func (ic *IssueController) ListIssues(c *gin.Context) {
	q := db.IssuesQuery{
		ContextType: c.Query("context_type"),
		ContextID:   c.Query("context_id"),
		Status:      c.Query("status"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "50"))
	issues, total, err := ic.Repo.ListIssues(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("list issues", err)})
		return
	}
	c.JSON(http.StatusOK, app.H{"total": total, "issues": issues})
}

// PUT /issues/:id：{ "op": "resolve" | "remove", ... }
func (ic *IssueController) UpdateIssue(c *gin.Context) {
	_, username := currentUser(c)
	var in struct {
		Op              string   `json:"op" binding:"required"`
		RootCause       string   `json:"root_cause"`
		ResolutionNotes string   `json:"resolution_notes"`
		ImageURLs       []string `json:"image_urls"`
		Note            string   `json:"note"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	switch in.Op {
	case "resolve":
		res := lifecycle.Resolution{
			RootCause: in.RootCause,
			Notes:     in.ResolutionNotes,
			ImageURLs: in.ImageURLs,
		}
		// 客户端校验：缺 root cause/notes 不发请求；服务端同样拒绝
		if err := res.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
			return
		}
		issue, err := ic.Repo.ResolveIssue(c.Request.Context(), c.Param("id"), res, username)
		if err != nil {
			ic.respondIssueError(c, err)
			return
		}
		c.JSON(http.StatusOK, issue)
	case "remove":
		issue, err := ic.Repo.RemoveIssue(c.Request.Context(), c.Param("id"), in.Note, username)
		if err != nil {
			ic.respondIssueError(c, err)
			return
		}
		c.JSON(http.StatusOK, issue)
	default:
		c.JSON(http.StatusBadRequest, app.H{"error": "op must be resolve or remove"})
	}
}

// GET /issues/:id/history
func (ic *IssueController) IssueHistory(c *gin.Context) {
	rows, err := ic.Repo.ListIssueHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("list issue history", err)})
		return
	}
	c.JSON(http.StatusOK, app.H{"history": rows})
}

func (ic *IssueController) respondIssueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrIssueNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrIssueTerminal):
		c.JSON(http.StatusConflict, app.H{"error": "issue is already resolved or removed"})
	case errors.Is(err, lifecycle.ErrResolutionRequired):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("update issue", err)})
	}
}
