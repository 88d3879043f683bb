package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Frequencies.
const (
	Daily   = "daily"
	Weekly  = "weekly"
	Monthly = "monthly"
	Yearly  = "yearly"
)

// Tolerance is how far from the target time a wake-up still fires.
const Tolerance = time.Minute

var (
	// ErrInvalidTime is returned for a time of day that is not HH:mm.
	ErrInvalidTime = errors.New("schedule: invalid time")

	// ErrInvalidFrequency is returned for an unknown frequency.
	ErrInvalidFrequency = errors.New("schedule: invalid frequency")

	// ErrInvalidWeekday is returned for a weekday outside 0..6.
	ErrInvalidWeekday = errors.New("schedule: invalid weekday")

	// ErrNoNextTime is returned when no future occurrence exists.
	ErrNoNextTime = errors.New("schedule: no next time")
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Spec is a recurring time of day.
//
// Weekdays (0 = Sunday) restrict weekly specs; an empty set means every
// day. Monthly specs run on the 1st and yearly specs on January 1st.
type Spec struct {
	Frequency string
	Hour      int
	Minute    int
	Weekdays  []int
}

// Parse builds a Spec from a frequency, an "HH:mm" time and weekdays.
func Parse(frequency, hhmm string, weekdays []int) (Spec, error) {
	switch frequency {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
	}

	hour, minute, err := parseClock(hhmm)
	if err != nil {
		return Spec{}, err
	}

	s := Spec{Frequency: frequency, Hour: hour, Minute: minute}
	if frequency == Weekly {
		for _, d := range weekdays {
			if d < 0 || d > 6 {
				return Spec{}, fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
			}
		}
		s.Weekdays = append([]int(nil), weekdays...)
		sort.Ints(s.Weekdays)
	}
	return s, nil
}

func parseClock(hhmm string) (int, int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	return hour, minute, nil
}

// CronExpr returns the five-field cron expression for the spec.
func (s Spec) CronExpr() string {
	switch s.Frequency {
	case Weekly:
		if len(s.Weekdays) == 0 {
			return fmt.Sprintf("%d %d * * *", s.Minute, s.Hour)
		}
		days := make([]string, len(s.Weekdays))
		for i, d := range s.Weekdays {
			days[i] = strconv.Itoa(d)
		}
		return fmt.Sprintf("%d %d * * %s", s.Minute, s.Hour, strings.Join(days, ","))
	case Monthly:
		return fmt.Sprintf("%d %d 1 * *", s.Minute, s.Hour)
	case Yearly:
		return fmt.Sprintf("%d %d 1 1 *", s.Minute, s.Hour)
	default:
		return fmt.Sprintf("%d %d * * *", s.Minute, s.Hour)
	}
}

// Next returns the first occurrence strictly after t, in t's location.
func (s Spec) Next(t time.Time) (time.Time, error) {
	sched, err := parser.Parse(s.CronExpr())
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", s.CronExpr(), err)
	}
	next := sched.Next(t)
	if next.IsZero() {
		return time.Time{}, ErrNoNextTime
	}
	return next, nil
}

// ShouldFire reports whether now is within Tolerance of today's target
// time and today matches the frequency's day rule.
func (s Spec) ShouldFire(now time.Time) bool {
	target := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
	diff := now.Sub(target)
	if diff < -Tolerance || diff > Tolerance {
		return false
	}

	switch s.Frequency {
	case Weekly:
		if len(s.Weekdays) == 0 {
			return true
		}
		today := int(now.Weekday())
		for _, d := range s.Weekdays {
			if d == today {
				return true
			}
		}
		return false
	case Monthly:
		return now.Day() == 1
	case Yearly:
		return now.Day() == 1 && now.Month() == time.January
	default:
		return true
	}
}

// String describes the spec for logs, e.g. "weekly at 07:00 on 1,3".
func (s Spec) String() string {
	out := fmt.Sprintf("%s at %02d:%02d", s.Frequency, s.Hour, s.Minute)
	if s.Frequency == Weekly && len(s.Weekdays) > 0 {
		days := make([]string, len(s.Weekdays))
		for i, d := range s.Weekdays {
			days[i] = strconv.Itoa(d)
		}
		out += " on " + strings.Join(days, ",")
	}
	return out
}
