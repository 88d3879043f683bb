// Package schedule fires callbacks at recurring wall-clock times.
//
// A Spec is a daily, weekly, monthly or yearly time of day. It compiles to
// a cron expression and github.com/robfig/cron/v3 computes the next
// occurrence. A Trigger arms one timer at a time on a clockwork clock, so
// tests drive it with a fake clock:
//
//	spec, _ := schedule.Parse("weekly", "07:00", []int{1, 3})
//	trig := schedule.NewTrigger(actionID, spec, invoke, schedule.WithLocation(loc))
//	trig.Start()
//	defer trig.Stop()
package schedule
