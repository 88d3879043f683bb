package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-automation/migrations"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "audit.db"),
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db
}

func TestSQLRepository_CreateAndList(t *testing.T) {
	repo := NewSQLRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC)

	entries := []*AuditLog{
		{Action: "action.started", EntityType: "action", EntityID: "a1", Source: "automation", CreatedAt: base},
		{Action: "action.completed", EntityType: "action", EntityID: "a1", Source: "automation",
			Details: map[string]any{"nodes": 3}, CreatedAt: base.Add(time.Second)},
		{Action: "scene.toggled", EntityType: "scene", EntityID: "movie-night", Source: "automation", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" {
			t.Error("ID not generated")
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 3 || len(all.Logs) != 3 {
		t.Fatalf("total = %d, logs = %d, want 3", all.Total, len(all.Logs))
	}
	if all.Logs[0].Action != "scene.toggled" {
		t.Errorf("first = %s, want newest first", all.Logs[0].Action)
	}
	if all.Limit != defaultLimit {
		t.Errorf("limit = %d, want %d", all.Limit, defaultLimit)
	}

	completed := all.Logs[1]
	if n, _ := completed.Details["nodes"].(float64); n != 3 {
		t.Errorf("details = %v", completed.Details)
	}
	if !completed.CreatedAt.Equal(base.Add(time.Second)) {
		t.Errorf("created_at = %v", completed.CreatedAt)
	}

	actions, err := repo.List(ctx, Filter{EntityType: "action", EntityID: "a1"})
	if err != nil {
		t.Fatalf("List(action) error = %v", err)
	}
	if actions.Total != 2 {
		t.Errorf("action entries = %d, want 2", actions.Total)
	}

	page, err := repo.List(ctx, Filter{Action: "action.started", Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("List(page) error = %v", err)
	}
	if page.Total != 1 || page.Limit != maxLimit || page.Offset != 0 {
		t.Errorf("page = %+v", page)
	}
}

func TestSQLRepository_ListEmpty(t *testing.T) {
	repo := NewSQLRepository(setupTestDB(t))
	res, err := repo.List(context.Background(), Filter{EntityID: "nothing"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Logs == nil || len(res.Logs) != 0 {
		t.Errorf("logs = %#v, want empty non-nil slice", res.Logs)
	}
}
