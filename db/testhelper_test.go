package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"farmops/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestRepo opens a per-test in-memory database and migrates the schema.
// sqlite skips the Postgres-only partial indexes; the repo's explicit
// pre-checks cover the same rule, which is exactly what these tests
// exercise.
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepo(conn)
}

func strptr(s string) *string { return &s }

func timeNowPtr() *time.Time { now := time.Now().UTC(); return &now }

func seedTool(t *testing.T, r *Repo, serial *string, opts ...func(*models.Tool)) *models.Tool {
	t.Helper()
	tool := &models.Tool{
		ID:     uuid.NewString(),
		Name:   "angle grinder",
		Serial: serial,
		Status: models.ToolAvailable,
	}
	for _, opt := range opts {
		opt(tool)
	}
	if err := r.CreateTool(context.Background(), tool); err != nil {
		t.Fatalf("seed tool: %v", err)
	}
	return tool
}

func seedAction(t *testing.T, r *Repo, planCommitment bool) *models.Action {
	t.Helper()
	a, err := r.CreateAction(context.Background(), CreateActionInput{
		Title:          "fix irrigation pump",
		PlanCommitment: planCommitment,
		CreatedBy:      "alice",
	})
	if err != nil {
		t.Fatalf("seed action: %v", err)
	}
	return a
}

func attach(t *testing.T, r *Repo, actionID, toolID string) *AttachToolResult {
	t.Helper()
	res, err := r.AttachTool(context.Background(), AttachToolInput{
		ActionID: actionID,
		ToolID:   toolID,
		UserID:   uuid.NewString(),
		UserName: "alice",
	})
	if err != nil {
		t.Fatalf("attach tool: %v", err)
	}
	return res
}
