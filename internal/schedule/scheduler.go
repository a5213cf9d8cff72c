package schedule

import (
	"errors"
	"fmt"

	"soon/internal/calendar"
	"soon/internal/task"
)

var ErrUnknownSchedule = errors.New("unknown schedule")

// Scheduler decides whether a task is due on a given day.
type Scheduler struct {
	Calendar calendar.Calendar
}

func New(cal calendar.Calendar) Scheduler {
	return Scheduler{Calendar: cal}
}

// IsDue is pure. A task without a recurrence rule is an error, never "not due".
func (s Scheduler) IsDue(t task.Task, day calendar.Day) (bool, error) {
	switch r := t.Recurrence.(type) {
	case task.OnDate:
		return day == r.Day, nil
	case task.Weekly:
		return r.Days.Has(s.Calendar.Weekday(day)), nil
	case task.Interval:
		if r.Every < 1 {
			return false, fmt.Errorf("%w for %s: interval %d", ErrUnknownSchedule, t, r.Every)
		}
		if day < r.Start {
			return false, nil
		}
		return int(day-r.Start)%r.Every == 0, nil
	case task.MonthDay:
		return s.Calendar.DayOfMonth(day) == r.Day, nil
	default:
		return false, fmt.Errorf("%w for %s", ErrUnknownSchedule, t)
	}
}

// Due returns the tasks due on day, in list order.
func (s Scheduler) Due(tasks []task.Task, day calendar.Day) ([]task.Task, error) {
	var due []task.Task
	for _, t := range tasks {
		ok, err := s.IsDue(t, day)
		if err != nil {
			return nil, err
		}
		if ok {
			due = append(due, t)
		}
	}
	return due, nil
}
