package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/workflow"
)

// ─── Construction and loading ───────────────────────────────────────────────

func TestNewRegistry_RequiresStoresAndDevices(t *testing.T) {
	devices := &mockDevices{}
	cases := []Deps{
		{Scenes: newMemStore[*Scene](), Devices: devices},
		{Actions: newMemStore[*Action](), Devices: devices},
		{Actions: newMemStore[*Action](), Scenes: newMemStore[*Scene]()},
	}
	for i, deps := range cases {
		if _, err := NewRegistry(deps); err == nil {
			t.Errorf("case %d: NewRegistry() error = nil", i)
		}
	}
}

func TestRegistry_LoadSeedsStandardScenes(t *testing.T) {
	f := newFixture(t, withSeed())
	f.load(t)

	scenes := f.reg.GetScenes()
	if len(scenes) != 6 {
		t.Fatalf("scenes = %d, want 6", len(scenes))
	}
	for _, s := range scenes {
		if !s.ShowOnHome || s.IsCustom {
			t.Errorf("scene %s: showOnHome=%v isCustom=%v", s.ID, s.ShowOnHome, s.IsCustom)
		}
		if !f.scenes.has(s.ID) {
			t.Errorf("scene %s not persisted", s.ID)
		}
	}
}

func TestRegistry_LoadKeepsStoredStandardScene(t *testing.T) {
	f := newFixture(t, withSeed())
	custom := &Scene{ID: "good-morning", Name: "Rise and shine", ActionIDs: []string{"coffee"}}
	if err := f.scenes.Save(context.Background(), custom.ID, custom); err != nil {
		t.Fatal(err)
	}
	f.load(t)

	got, err := f.reg.GetScene("good-morning")
	if err != nil {
		t.Fatalf("GetScene() error = %v", err)
	}
	if got.Name != "Rise and shine" {
		t.Errorf("name = %q, stored scene was overwritten", got.Name)
	}
}

func TestRegistry_LoadWiresStoredActions(t *testing.T) {
	f := newFixture(t, withSeed())
	ctx := context.Background()
	stored := newAction("night-light", workflow.TriggerDevice,
		deviceTrigger("motion-1", "motionDetected", "on"),
		commandNode("on", "light-1", "setOn"),
	)
	if err := f.actions.Save(ctx, stored.ActionID, stored); err != nil {
		t.Fatal(err)
	}
	manual := newAction("all-off", workflow.TriggerManual, manualTrigger())
	if err := f.actions.Save(ctx, manual.ActionID, manual); err != nil {
		t.Fatal(err)
	}
	f.load(t)

	if got := f.motion.ListenerCount("motionDetected"); got != 1 {
		t.Errorf("motion listeners = %d, want 1", got)
	}
	for _, s := range f.reg.scenes {
		if !s.HasListener("all-off") {
			t.Errorf("scene %s missing manual listener", s.ID)
		}
	}

	f.motion.SetState("motion", true)
	waitFor(t, "light on", func() bool { return f.light.State().Bool("on") })
}

// ─── Actions ────────────────────────────────────────────────────────────────

func TestRegistry_AddAction(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	a := newAction("a1", workflow.TriggerManual, manualTrigger())
	if err := f.reg.AddAction(t.Context(), a); err != nil {
		t.Fatalf("AddAction() error = %v", err)
	}

	got, err := f.reg.GetAction("a1")
	if err != nil {
		t.Fatalf("GetAction() error = %v", err)
	}
	if !got.CreatedAt.Equal(testStart) || !got.UpdatedAt.Equal(testStart) {
		t.Errorf("timestamps = %v/%v, want %v", got.CreatedAt, got.UpdatedAt, testStart)
	}
	if !f.actions.has("a1") {
		t.Error("action not persisted")
	}
	if f.events.count(EventActionSaved) != 1 {
		t.Error("missing action.saved event")
	}

	got.Name = "mutated"
	again, _ := f.reg.GetAction("a1")
	if again.Name == "mutated" {
		t.Error("GetAction() returned live state")
	}
}

func TestRegistry_AddActionErrors(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	ctx := t.Context()

	if err := f.reg.AddAction(ctx, &Action{TriggerType: workflow.TriggerManual}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("empty id error = %v, want ErrEmptyID", err)
	}
	if err := f.reg.AddAction(ctx, newAction("x", "sometimes")); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("bad trigger type error = %v, want ErrInvalidAction", err)
	}

	f.actions.failSaves(errors.New("disk full"))
	if err := f.reg.AddAction(ctx, newAction("y", workflow.TriggerManual, manualTrigger())); err == nil {
		t.Error("AddAction() with failing store error = nil")
	}
	if _, err := f.reg.GetAction("y"); !errors.Is(err, ErrActionNotFound) {
		t.Error("action should not be registered when persisting fails")
	}
}

func TestRegistry_AddExistingActionUpdates(t *testing.T) {
	f := newFixture(t, withSeed())
	f.load(t)
	ctx := t.Context()

	if err := f.reg.AddAction(ctx, newAction("a1", workflow.TriggerManual, manualTrigger())); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Hour)

	v2 := newAction("a1", workflow.TriggerManual, manualTrigger())
	v2.Name = "renamed"
	if err := f.reg.AddAction(ctx, v2); err != nil {
		t.Fatalf("AddAction() update error = %v", err)
	}

	got, _ := f.reg.GetAction("a1")
	if got.Name != "renamed" {
		t.Errorf("name = %q, want renamed", got.Name)
	}
	if !got.CreatedAt.Equal(testStart) {
		t.Errorf("createdAt = %v, want it kept at %v", got.CreatedAt, testStart)
	}
	if !got.UpdatedAt.Equal(testStart.Add(time.Hour)) {
		t.Errorf("updatedAt = %v", got.UpdatedAt)
	}
	if len(f.reg.GetActions()) != 1 {
		t.Errorf("actions = %d, want 1", len(f.reg.GetActions()))
	}
	for _, s := range f.reg.scenes {
		if s.ListenerCount() != 1 {
			t.Errorf("scene %s listeners = %d, want 1", s.ID, s.ListenerCount())
		}
	}
}

func TestRegistry_UpdateActionIsNotAtomic(t *testing.T) {
	f := newFixture(t, withSeed())
	f.load(t)
	ctx := t.Context()

	if err := f.reg.AddAction(ctx, newAction("a1", workflow.TriggerManual, manualTrigger())); err != nil {
		t.Fatal(err)
	}

	f.actions.failSaves(errors.New("disk full"))
	if err := f.reg.UpdateAction(ctx, newAction("a1", workflow.TriggerManual, manualTrigger())); err == nil {
		t.Fatal("UpdateAction() error = nil, want the save failure")
	}

	if _, err := f.reg.GetAction("a1"); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("GetAction() error = %v, want ErrActionNotFound after a failed update", err)
	}
	if f.actions.has("a1") {
		t.Error("old version should already be deleted from the store")
	}
	for _, s := range f.reg.scenes {
		if s.HasListener("a1") {
			t.Errorf("scene %s still has a listener for the lost action", s.ID)
		}
	}
}

func TestRegistry_DeleteAction(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	ctx := t.Context()

	a := newAction("motion-on", workflow.TriggerDevice,
		deviceTrigger("motion-1", "motionDetected", "on"),
		commandNode("on", "light-1", "setOn"),
	)
	if err := f.reg.AddAction(ctx, a); err != nil {
		t.Fatal(err)
	}
	if f.motion.ListenerCount("motionDetected") != 1 {
		t.Fatal("device listener not registered")
	}

	if err := f.reg.DeleteAction(ctx, "motion-on"); err != nil {
		t.Fatalf("DeleteAction() error = %v", err)
	}
	if f.motion.ListenerCount("motionDetected") != 0 {
		t.Error("device listener not removed")
	}
	if f.actions.has("motion-on") {
		t.Error("action still stored")
	}
	if err := f.reg.DeleteAction(ctx, "motion-on"); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("second DeleteAction() error = %v, want ErrActionNotFound", err)
	}
	if f.reg.InvokeAction("motion-on", nil) {
		t.Error("InvokeAction() on a deleted action = true")
	}
}

func TestRegistry_GetActionsSorted(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	for _, id := range []string{"c", "a", "b"} {
		if err := f.reg.AddAction(t.Context(), newAction(id, workflow.TriggerManual, manualTrigger())); err != nil {
			t.Fatal(err)
		}
	}
	got := f.reg.GetActions()
	if len(got) != 3 || got[0].ActionID != "a" || got[2].ActionID != "c" {
		t.Errorf("order = %v", []string{got[0].ActionID, got[1].ActionID, got[2].ActionID})
	}
}

// ─── Trigger wiring ─────────────────────────────────────────────────────────

func TestRegistry_ManualActionListensOnEveryScene(t *testing.T) {
	f := newFixture(t, withSeed())
	f.load(t)

	a := newAction("lights", workflow.TriggerManual, manualTrigger("on"), commandNode("on", "light-1", "setOn"))
	if err := f.reg.AddAction(t.Context(), a); err != nil {
		t.Fatal(err)
	}
	for _, s := range f.reg.scenes {
		if !s.HasListener("lights") {
			t.Errorf("scene %s has no listener", s.ID)
		}
	}
	if got := f.reg.SceneListenerCount("welcome"); got != 1 {
		t.Errorf("SceneListenerCount(welcome) = %d, want 1", got)
	}
	if got := f.reg.SceneListenerCount("no-such-scene"); got != 0 {
		t.Errorf("SceneListenerCount(unknown) = %d, want 0", got)
	}

	n, err := f.reg.ToggleScene("movie-night")
	if err != nil {
		t.Fatalf("ToggleScene() error = %v", err)
	}
	if n != 1 {
		t.Errorf("listeners fired = %d, want 1", n)
	}
	waitFor(t, "light on", func() bool { return f.light.State().Bool("on") })
	if e, ok := f.events.last(EventSceneToggled); !ok || e.SceneID != "movie-night" {
		t.Errorf("toggle event = %+v", e)
	}
}

func TestRegistry_DeviceTriggerFiresAction(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	a := newAction("night-light", workflow.TriggerDevice,
		deviceTrigger("motion-1", "motionDetected", "on"),
		commandNode("on", "light-1", "setOn"),
	)
	if err := f.reg.AddAction(t.Context(), a); err != nil {
		t.Fatal(err)
	}

	f.motion.SetState("motion", true)
	waitFor(t, "light on", func() bool { return f.light.State().Bool("on") })

	info, err := f.reg.TriggerInfo("night-light")
	if err != nil {
		t.Fatalf("TriggerInfo() error = %v", err)
	}
	if info != "Hall Motion - motion" {
		t.Errorf("TriggerInfo() = %q", info)
	}
}

func TestRegistry_DeviceTriggerMissingDeviceIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	a := newAction("ghost", workflow.TriggerDevice, deviceTrigger("nope", "motionDetected"))
	if err := f.reg.AddAction(t.Context(), a); err != nil {
		t.Fatalf("AddAction() error = %v, want the action kept unwired", err)
	}
	if info, _ := f.reg.TriggerInfo("ghost"); info != "nope - unknown device" {
		t.Errorf("TriggerInfo() = %q", info)
	}
}

func TestRegistry_TimeTriggerFiresAndReschedules(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	a := newAction("wake-up", workflow.TriggerTime,
		timeTrigger(workflow.FrequencyDaily, "07:00", "on"),
		commandNode("on", "light-1", "setOn"),
	)
	if err := f.reg.AddAction(t.Context(), a); err != nil {
		t.Fatal(err)
	}

	next, ok := f.reg.NextFire("wake-up")
	if !ok || !next.Equal(testStart.Add(time.Minute)) {
		t.Fatalf("NextFire() = %v, %v; want 07:00", next, ok)
	}
	if info, _ := f.reg.TriggerInfo("wake-up"); info != "time trigger - daily at 07:00" {
		t.Errorf("TriggerInfo() = %q", info)
	}

	blockUntil(t, f.clock, 1)
	f.clock.Advance(time.Minute)
	waitFor(t, "light on", func() bool { return f.light.State().Bool("on") })

	tomorrow := time.Date(2026, 10, 17, 7, 0, 0, 0, time.UTC)
	waitFor(t, "reschedule", func() bool {
		n, ok := f.reg.NextFire("wake-up")
		return ok && n.Equal(tomorrow)
	})
}

func TestRegistry_InvalidTimeTriggerStaysSilent(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	a := newAction("broken", workflow.TriggerTime, timeTrigger(workflow.FrequencyDaily, "25:99"))
	if err := f.reg.AddAction(t.Context(), a); err != nil {
		t.Fatalf("AddAction() error = %v", err)
	}
	if _, ok := f.reg.NextFire("broken"); ok {
		t.Error("invalid time trigger should not be scheduled")
	}
}

func TestRegistry_DeleteTimeActionStopsTrigger(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	ctx := t.Context()

	a := newAction("wake-up", workflow.TriggerTime,
		timeTrigger(workflow.FrequencyDaily, "07:00", "on"),
		commandNode("on", "light-1", "setOn"),
	)
	if err := f.reg.AddAction(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.DeleteAction(ctx, "wake-up"); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.reg.NextFire("wake-up"); ok {
		t.Error("trigger still scheduled after delete")
	}

	f.clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	if f.light.State().Bool("on") {
		t.Error("deleted time action fired")
	}
}

// ─── Scenes ─────────────────────────────────────────────────────────────────

func TestRegistry_AddSceneWiresItsActionIDs(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	ctx := t.Context()

	if err := f.reg.AddAction(ctx, newAction("lights", workflow.TriggerDevice, deviceTrigger("motion-1", "motionDetected"))); err != nil {
		t.Fatal(err)
	}

	s := &Scene{ID: "evening", Name: "Evening", ActionIDs: []string{"lights", "missing"}}
	if err := f.reg.AddScene(ctx, s); err != nil {
		t.Fatalf("AddScene() error = %v", err)
	}
	live := f.reg.scenes["evening"]
	if live.ListenerCount() != 1 || !live.HasListener("lights") {
		t.Errorf("listeners = %d, want only lights", live.ListenerCount())
	}
	if !f.scenes.has("evening") {
		t.Error("scene not persisted")
	}
}

func TestRegistry_AddSceneSkipsManualActionsNotListed(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	ctx := t.Context()

	if err := f.reg.AddAction(ctx, newAction("all", workflow.TriggerManual, manualTrigger())); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.AddScene(ctx, &Scene{ID: "late"}); err != nil {
		t.Fatal(err)
	}
	if n, _ := f.reg.ToggleScene("late"); n != 0 {
		t.Errorf("listeners fired = %d, want 0 for a scene added after the action", n)
	}
}

func TestRegistry_UpdateSceneClearsListeners(t *testing.T) {
	f := newFixture(t, withSeed())
	f.load(t)
	ctx := t.Context()

	if err := f.reg.AddAction(ctx, newAction("a1", workflow.TriggerManual, manualTrigger())); err != nil {
		t.Fatal(err)
	}
	old := f.reg.scenes["welcome"]
	if !old.HasListener("a1") {
		t.Fatal("manual listener missing before update")
	}

	if err := f.reg.UpdateScene(ctx, &Scene{ID: "welcome", Name: "Hello"}); err != nil {
		t.Fatalf("UpdateScene() error = %v", err)
	}
	if old.ListenerCount() != 0 {
		t.Error("previous scene kept its listeners")
	}
	if f.reg.scenes["welcome"].ListenerCount() != 0 {
		t.Error("updated scene should only carry its own ActionIDs")
	}
	got, _ := f.reg.GetScene("welcome")
	if got.Name != "Hello" {
		t.Errorf("name = %q", got.Name)
	}
}

func TestRegistry_DeleteScene(t *testing.T) {
	f := newFixture(t, withSeed())
	f.load(t)
	ctx := t.Context()

	if err := f.reg.DeleteScene(ctx, "vacation"); err != nil {
		t.Fatalf("DeleteScene() error = %v", err)
	}
	if _, err := f.reg.GetScene("vacation"); !errors.Is(err, ErrSceneNotFound) {
		t.Errorf("GetScene() error = %v", err)
	}
	if f.scenes.has("vacation") {
		t.Error("scene still stored")
	}
	if err := f.reg.DeleteScene(ctx, "vacation"); !errors.Is(err, ErrSceneNotFound) {
		t.Errorf("second DeleteScene() error = %v", err)
	}
	if _, err := f.reg.ToggleScene("vacation"); !errors.Is(err, ErrSceneNotFound) {
		t.Errorf("ToggleScene() error = %v", err)
	}
}

func TestRegistry_SceneErrors(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	ctx := t.Context()

	if err := f.reg.AddScene(ctx, &Scene{Name: "no id"}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("AddScene() error = %v, want ErrEmptyID", err)
	}
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	if err := f.reg.AddScene(ctx, &Scene{ID: "s", Description: string(long)}); !errors.Is(err, ErrInvalidScene) {
		t.Errorf("AddScene() error = %v, want ErrInvalidScene", err)
	}
}

func TestRegistry_ActivateAndDeactivateScene(t *testing.T) {
	f := newFixture(t, withSeed())
	f.load(t)
	ctx := t.Context()

	if err := f.reg.AddAction(ctx, newAction("lights", workflow.TriggerManual, manualTrigger("on"), commandNode("on", "light-1", "setOn"))); err != nil {
		t.Fatal(err)
	}

	s, err := f.reg.ActivateScene(ctx, "good-night")
	if err != nil {
		t.Fatalf("ActivateScene() error = %v", err)
	}
	if !s.Active {
		t.Error("scene should be active")
	}
	waitFor(t, "light on", func() bool { return f.light.State().Bool("on") })

	reloaded, _ := f.scenes.FindAll(ctx)
	for _, rs := range reloaded {
		if rs.ID == "good-night" && !rs.Active {
			t.Error("active flag not persisted")
		}
	}

	s, err = f.reg.DeactivateScene(ctx, "good-night")
	if err != nil {
		t.Fatalf("DeactivateScene() error = %v", err)
	}
	if s.Active {
		t.Error("scene should be inactive")
	}
	if _, err := f.reg.ActivateScene(ctx, "nope"); !errors.Is(err, ErrSceneNotFound) {
		t.Errorf("ActivateScene() error = %v", err)
	}
}

// ─── Modules ────────────────────────────────────────────────────────────────

func TestRegistry_ModuleOfflineAndOnline(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	a := newAction("night-light", workflow.TriggerDevice,
		deviceTrigger("motion-1", "motionDetected", "on"),
		commandNode("on", "light-1", "setOn"),
	)
	if err := f.reg.AddAction(t.Context(), a); err != nil {
		t.Fatal(err)
	}

	if n := f.reg.RemoveDeviceForModule("mod-a"); n != 2 {
		t.Errorf("RemoveDeviceForModule() = %d, want 2", n)
	}
	if f.motion.ListenerCount("") != 0 {
		t.Error("listeners should be removed while the module is offline")
	}

	if n := f.reg.AddDevicesForModule("other"); n != 0 {
		t.Errorf("AddDevicesForModule(other) = %d, want 0", n)
	}
	if n := f.reg.AddDevicesForModule("mod-a"); n != 1 {
		t.Errorf("AddDevicesForModule() = %d, want 1", n)
	}
	if f.motion.ListenerCount("motionDetected") != 1 {
		t.Error("device trigger not restored")
	}

	f.motion.SetState("motion", true)
	waitFor(t, "light on", func() bool { return f.light.State().Bool("on") })
}

func TestRegistry_EmptyModuleIDIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	if f.reg.AddDevicesForModule("") != 0 || f.reg.RemoveDeviceForModule("") != 0 {
		t.Error("empty module id should be a no-op")
	}
}
