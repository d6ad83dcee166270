package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"farmops/app"
	"farmops/db"
	"farmops/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestSrv wires a Srv against an in-memory database, no Redis. The
// idempotency store stays nil, so handlers take the no-replay path.
func newTestSrv(t *testing.T) *Srv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &Srv{Repo: db.NewRepo(conn), Log: app.NopLogger()}
}

// fakeAuth stands in for the session middleware.
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", "user-1")
		c.Set("username", "alice")
		c.Set("isAdmin", true)
		c.Next()
	}
}

func newTestRouter(t *testing.T, s *Srv) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(fakeAuth())

	co := NewCheckoutController(s)
	ci := NewCheckinController(s)
	is := NewIssueController(s)
	ac := NewActionController(s)

	r.GET("/checkouts", co.ListCheckouts)
	r.POST("/checkouts", co.CreateCheckout)
	r.PUT("/checkouts/:id", co.UpdateCheckout)
	r.DELETE("/checkouts/:id", co.CancelCheckout)
	r.POST("/checkins", ci.CreateCheckin)
	r.POST("/issues", is.CreateIssue)
	r.PUT("/issues/:id", is.UpdateIssue)
	r.POST("/actions", ac.CreateAction)
	r.POST("/actions/:id/start", ac.StartAction)
	r.POST("/actions/:id/tools", co.AttachTool)
	r.DELETE("/actions/:id/tools/:toolId", co.DetachTool)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func seedHTTPTool(t *testing.T, s *Srv, serial *string) *models.Tool {
	t.Helper()
	tool := &models.Tool{
		ID:     uuid.NewString(),
		Name:   "chainsaw",
		Serial: serial,
		Status: models.ToolAvailable,
	}
	if err := s.Repo.CreateTool(context.Background(), tool); err != nil {
		t.Fatalf("seed tool: %v", err)
	}
	return tool
}

func seedHTTPAction(t *testing.T, s *Srv, planCommitment bool) *models.Action {
	t.Helper()
	a, err := s.Repo.CreateAction(context.Background(), db.CreateActionInput{
		Title:          "service the chipper",
		PlanCommitment: planCommitment,
		CreatedBy:      "alice",
	})
	if err != nil {
		t.Fatalf("seed action: %v", err)
	}
	return a
}

func sptr(s string) *string { return &s }
