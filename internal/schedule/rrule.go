package schedule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"soon/internal/calendar"
	"soon/internal/task"
)

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Options maps a task's recurrence onto an RFC 5545 rule. Times are UTC
// midnights so that expansion never crosses a DST shift.
func (s Scheduler) Options(t task.Task) (rrule.ROption, error) {
	switch r := t.Recurrence.(type) {
	case task.OnDate:
		return rrule.ROption{Freq: rrule.DAILY, Count: 1, Dtstart: s.utc(r.Day)}, nil
	case task.Weekly:
		days := r.Days.Days()
		by := make([]rrule.Weekday, len(days))
		for i, d := range days {
			by[i] = rruleWeekdays[d]
		}
		return rrule.ROption{Freq: rrule.WEEKLY, Byweekday: by, Dtstart: s.utc(0)}, nil
	case task.Interval:
		return rrule.ROption{Freq: rrule.DAILY, Interval: r.Every, Dtstart: s.utc(r.Start)}, nil
	case task.MonthDay:
		return rrule.ROption{Freq: rrule.MONTHLY, Bymonthday: []int{r.Day}, Dtstart: s.utc(0)}, nil
	default:
		return rrule.ROption{}, fmt.Errorf("%w for %s", ErrUnknownSchedule, t)
	}
}

func (s Scheduler) Rule(t task.Task) (*rrule.RRule, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	opt, err := s.Options(t)
	if err != nil {
		return nil, err
	}
	return rrule.NewRRule(opt)
}

// NextDue returns the first day on or after from when t is due. It reports
// false for one-off tasks whose date has passed.
func (s Scheduler) NextDue(t task.Task, from calendar.Day) (calendar.Day, bool, error) {
	r, err := s.Rule(t)
	if err != nil {
		return 0, false, err
	}
	next := r.After(s.utc(from), true)
	if next.IsZero() {
		return 0, false, nil
	}
	return calendar.Day(next.Sub(s.Calendar.Epoch()).Hours() / 24), true, nil
}

func (s Scheduler) utc(d calendar.Day) time.Time {
	return s.Calendar.Epoch().AddDate(0, 0, int(d))
}
