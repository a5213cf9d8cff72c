package task

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"soon/internal/calendar"
)

// wireTask carries the recurrence as four optional fields, exactly one of
// which is set.
type wireTask struct {
	ID               string        `json:"id,omitempty" yaml:"id,omitempty"`
	Name             string        `json:"name" yaml:"name"`
	OnDate           *calendar.Day `json:"on_date,omitempty" yaml:"on_date,omitempty"`
	DaysOfWeek       *Weekdays     `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty"`
	IntervalFromDate *wireInterval `json:"interval_from_date,omitempty" yaml:"interval_from_date,omitempty"`
	NthDayOfMonth    *int          `json:"nth_day_of_month,omitempty" yaml:"nth_day_of_month,omitempty"`
}

type wireInterval struct {
	Start    calendar.Day `json:"start" yaml:"start"`
	Interval int          `json:"interval" yaml:"interval"`
}

func toWire(t Task) (wireTask, error) {
	w := wireTask{ID: t.ID, Name: t.Name}
	switch r := t.Recurrence.(type) {
	case OnDate:
		w.OnDate = &r.Day
	case Weekly:
		w.DaysOfWeek = &r.Days
	case Interval:
		w.IntervalFromDate = &wireInterval{Start: r.Start, Interval: r.Every}
	case MonthDay:
		w.NthDayOfMonth = &r.Day
	default:
		return w, fmt.Errorf("task %q: %w", t.Name, ErrNoRecurrence)
	}
	return w, nil
}

func (w wireTask) task() (Task, error) {
	t := Task{ID: w.ID, Name: w.Name}
	set := 0
	if w.OnDate != nil {
		t.Recurrence = OnDate{Day: *w.OnDate}
		set++
	}
	if w.DaysOfWeek != nil {
		t.Recurrence = Weekly{Days: *w.DaysOfWeek}
		set++
	}
	if w.IntervalFromDate != nil {
		t.Recurrence = Interval{Start: w.IntervalFromDate.Start, Every: w.IntervalFromDate.Interval}
		set++
	}
	if w.NthDayOfMonth != nil {
		t.Recurrence = MonthDay{Day: *w.NthDayOfMonth}
		set++
	}
	switch set {
	case 0:
		return Task{}, fmt.Errorf("task %q: %w", w.Name, ErrNoRecurrence)
	case 1:
		return t, nil
	default:
		return Task{}, fmt.Errorf("%w: task %q has %d recurrence rules", ErrInvalid, w.Name, set)
	}
}

func (t Task) MarshalJSON() ([]byte, error) {
	w, err := toWire(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var w wireTask
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := w.task()
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

func (t Task) MarshalYAML() (any, error) {
	return toWire(t)
}

func (t *Task) UnmarshalYAML(value *yaml.Node) error {
	var w wireTask
	if err := value.Decode(&w); err != nil {
		return err
	}
	decoded, err := w.task()
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

// MarshalYAML writes weekday names so exported files stay readable.
func (w Weekdays) MarshalYAML() (any, error) {
	days := w.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = strings.ToLower(d.String()[:3])
	}
	return names, nil
}

// UnmarshalYAML accepts either a list of weekday names or the bitmask.
func (w *Weekdays) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var bits uint8
		if err := value.Decode(&bits); err != nil {
			return err
		}
		if Weekdays(bits)&^allWeekdays != 0 {
			return fmt.Errorf("%w: days_of_week %d has bits outside Monday to Sunday", ErrInvalid, bits)
		}
		*w = Weekdays(bits)
		return nil
	}
	var names []string
	if err := value.Decode(&names); err != nil {
		return err
	}
	var out Weekdays
	for _, n := range names {
		d, err := ParseWeekday(n)
		if err != nil {
			return err
		}
		out = out.Add(d)
	}
	*w = out
	return nil
}

// ParseWeekday accepts English day names and their three-letter prefixes.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			name := strings.ToLower(d.String())
			if strings.HasPrefix(name, s) {
				return d, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
