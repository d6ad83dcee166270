package controllers

import (
	"net/http"
	"strconv"

	"farmops/app"
	"farmops/db"
	"farmops/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ToolController struct{ *Srv }

func NewToolController(s *Srv) *ToolController { return &ToolController{Srv: s} }

// POST /tools：管理员创建资产
func (tc *ToolController) CreateTool(c *gin.Context) {
	var in struct {
		Name            string  `json:"name" binding:"required"`
		Serial          *string `json:"serial"`
		HasMotor        bool    `json:"hasMotor"`
		StorageLocation string  `json:"storageLocation"`
		HomeLocation    string  `json:"homeLocation"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	t := &models.Tool{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Serial:          in.Serial,
		HasMotor:        in.HasMotor,
		StorageLocation: in.StorageLocation,
		HomeLocation:    in.HomeLocation,
		Status:          models.ToolAvailable,
	}
	if err := tc.Repo.CreateTool(c.Request.Context(), t); err != nil {
		if db.IsDuplicateKey(err) {
			c.JSON(http.StatusConflict, app.H{"error": "serial already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("create tool", err)})
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GET /tools：registry 视图，当前 checkout + active issue 数
func (tc *ToolController) ListTools(c *gin.Context) {
	q := db.ToolsQuery{
		Q:      c.Query("q"),
		Status: c.Query("status"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := tc.Repo.ListTools(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("list tools", err)})
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /tools/:id
func (tc *ToolController) GetTool(c *gin.Context) {
	t, err := tc.Repo.FindToolByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "tool not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// PUT /tools/:id：部分更新（status/location 等）
func (tc *ToolController) UpdateTool(c *gin.Context) {
	var in db.UpdateToolInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	t, err := tc.Repo.UpdateTool(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		if err == db.ErrToolNotFound {
			c.JSON(http.StatusNotFound, app.H{"error": "tool not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("update tool", err)})
		return
	}
	c.JSON(http.StatusOK, t)
}

// Parts（消耗品）

// POST /parts
func (tc *ToolController) CreatePart(c *gin.Context) {
	var in struct {
		Name        string `json:"name" binding:"required"`
		Quantity    int    `json:"quantity"`
		Unit        string `json:"unit"`
		MinQuantity int    `json:"minQuantity"`
		Location    string `json:"location"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	p := &models.Part{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		MinQuantity: in.MinQuantity,
		Location:    in.Location,
	}
	if err := tc.Repo.CreatePart(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("create part", err)})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /parts
func (tc *ToolController) ListParts(c *gin.Context) {
	parts, err := tc.Repo.ListParts(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("list parts", err)})
		return
	}
	c.JSON(http.StatusOK, app.H{"parts": parts})
}

// PUT /parts/:id/quantity：带下限 0 的增减
func (tc *ToolController) AdjustPart(c *gin.Context) {
	var in struct {
		Delta int `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	p, err := tc.Repo.AdjustPartQuantity(c.Request.Context(), c.Param("id"), in.Delta)
	if err != nil {
		if err == db.ErrPartNotFound {
			c.JSON(http.StatusNotFound, app.H{"error": "part not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": db.Friendly("adjust part", err)})
		return
	}
	c.JSON(http.StatusOK, p)
}
