package task

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"soon/internal/calendar"
)

const MaxMonthDay = 28

var (
	ErrInvalid      = errors.New("invalid task")
	ErrNoRecurrence = fmt.Errorf("%w: no recurrence rule set", ErrInvalid)
)

// Recurrence decides on which days a task is due. Exactly one of OnDate,
// Weekly, Interval and MonthDay; other implementations are not possible.
type Recurrence interface {
	Validate() error
	recurrence()
}

// OnDate is due once, on Day.
type OnDate struct {
	Day calendar.Day
}

// Weekly is due on every day whose weekday is in Days.
type Weekly struct {
	Days Weekdays
}

// Interval is due on Start and every Every days after it.
type Interval struct {
	Start calendar.Day
	Every int
}

// MonthDay is due on the same day of every month.
type MonthDay struct {
	Day int
}

func (OnDate) recurrence()   {}
func (Weekly) recurrence()   {}
func (Interval) recurrence() {}
func (MonthDay) recurrence() {}

func (r OnDate) Validate() error {
	if r.Day < 0 {
		return fmt.Errorf("%w: date %d is before the epoch", ErrInvalid, r.Day)
	}
	return nil
}

func (r Weekly) Validate() error {
	if !r.Days.Valid() {
		return fmt.Errorf("%w: weekly rule needs at least one weekday", ErrInvalid)
	}
	return nil
}

func (r Interval) Validate() error {
	if r.Start < 0 {
		return fmt.Errorf("%w: interval start %d is before the epoch", ErrInvalid, r.Start)
	}
	if r.Every < 1 {
		return fmt.Errorf("%w: interval must be at least 1 day, got %d", ErrInvalid, r.Every)
	}
	return nil
}

func (r MonthDay) Validate() error {
	if r.Day < 1 || r.Day > MaxMonthDay {
		return fmt.Errorf("%w: day of month must be in 1-%d, got %d", ErrInvalid, MaxMonthDay, r.Day)
	}
	return nil
}

type Task struct {
	ID         string
	Name       string
	Recurrence Recurrence
}

// New creates a task with a fresh id.
func New(name string, r Recurrence) Task {
	return Task{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Name:       name,
		Recurrence: r,
	}
}

// Validate checks the recurrence rule. Blank names are accepted.
func (t Task) Validate() error {
	if t.Recurrence == nil {
		return fmt.Errorf("task %q: %w", t.Name, ErrNoRecurrence)
	}
	if err := t.Recurrence.Validate(); err != nil {
		return fmt.Errorf("task %q: %w", t.Name, err)
	}
	return nil
}

// Equal compares every field, so an edited task is not equal to its previous
// version even though the id is kept.
func (t Task) Equal(o Task) bool {
	return t.ID == o.ID && t.Name == o.Name && t.Recurrence == o.Recurrence
}

// OneOff returns the rule of a task that is due on a single date.
func (t Task) OneOff() (OnDate, bool) {
	r, ok := t.Recurrence.(OnDate)
	return r, ok
}

func (t Task) WithRecurrence(r Recurrence) Task {
	t.Recurrence = r
	return t
}

func (t Task) String() string {
	return fmt.Sprintf("%s (%s)", t.Name, t.ID)
}

// Index returns the position of the first task equal to t, or -1.
func Index(tasks []Task, t Task) int {
	for i := range tasks {
		if tasks[i].Equal(t) {
			return i
		}
	}
	return -1
}
