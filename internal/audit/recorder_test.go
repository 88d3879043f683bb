package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/automation"
)

type mockRepository struct {
	mu      sync.Mutex
	logs    []*AuditLog
	failing bool
}

func (m *mockRepository) Create(_ context.Context, log *AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("database locked")
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockRepository) List(context.Context, Filter) (*ListResult, error) {
	return &ListResult{}, nil
}

func (m *mockRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

func TestEntry(t *testing.T) {
	now := time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC)

	run := Entry(automation.Event{
		Type:        automation.EventActionCompleted,
		ActionID:    "wake-up",
		ActionName:  "Wake up",
		RunID:       "r1",
		TriggerType: "time",
		Nodes:       4,
		Failures:    1,
		Duration:    1500 * time.Millisecond,
		Time:        now,
	})
	if run.EntityType != "action" || run.EntityID != "wake-up" || run.Action != "action.completed" {
		t.Errorf("entry = %+v", run)
	}
	if run.Details["duration_ms"] != int64(1500) || run.Details["nodes"] != 4 || run.Details["run_id"] != "r1" {
		t.Errorf("details = %v", run.Details)
	}
	if !run.CreatedAt.Equal(now) || run.Source != sourceAutomation {
		t.Errorf("created_at/source = %v/%s", run.CreatedAt, run.Source)
	}

	toggle := Entry(automation.Event{Type: automation.EventSceneToggled, SceneID: "welcome", Listeners: 2})
	if toggle.EntityType != "scene" || toggle.EntityID != "welcome" || toggle.Details["listeners"] != 2 {
		t.Errorf("toggle entry = %+v", toggle)
	}

	deleted := Entry(automation.Event{Type: automation.EventSceneDeleted, SceneID: "x"})
	if deleted.Details != nil {
		t.Errorf("details = %v, want nil", deleted.Details)
	}
}

func TestRecorder_WritesAndFlushes(t *testing.T) {
	repo := &mockRepository{}
	rec := NewRecorder(repo, nil, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		rec.HandleEvent(automation.Event{Type: automation.EventActionStarted, ActionID: "a"})
	}
	cancel()
	<-done

	if got := repo.count(); got != 3 {
		t.Errorf("written = %d, want 3", got)
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	rec := NewRecorder(&mockRepository{}, nil, 1)
	rec.HandleEvent(automation.Event{Type: automation.EventActionStarted})
	rec.HandleEvent(automation.Event{Type: automation.EventActionStarted})

	if rec.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", rec.Dropped())
	}
}

func TestRecorder_WriteErrorIsLogged(t *testing.T) {
	repo := &mockRepository{failing: true}
	rec := NewRecorder(repo, nil, 1)
	rec.write(context.Background(), automation.Event{Type: automation.EventActionDropped})
	if repo.count() != 0 {
		t.Error("failing repository should not record")
	}
}
