package task

import (
	"strings"
	"time"
)

// Weekdays is a set of days of the week. The bit layout (Monday = bit 0
// through Sunday = bit 6) is also the persisted form.
type Weekdays uint8

const allWeekdays Weekdays = 1<<7 - 1

func bit(d time.Weekday) Weekdays {
	// time.Weekday starts at Sunday = 0.
	return 1 << ((int(d) + 6) % 7)
}

func WeekdaysOf(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w = w.Add(d)
	}
	return w
}

func (w Weekdays) Add(d time.Weekday) Weekdays    { return w | bit(d) }
func (w Weekdays) Remove(d time.Weekday) Weekdays { return w &^ bit(d) }
func (w Weekdays) Has(d time.Weekday) bool        { return w&bit(d) != 0 }
func (w Weekdays) Empty() bool                    { return w&allWeekdays == 0 }

// Valid reports whether the set is non-empty and uses only the seven day bits.
func (w Weekdays) Valid() bool {
	return !w.Empty() && w&^allWeekdays == 0
}

// Days lists the members starting from Monday.
func (w Weekdays) Days() []time.Weekday {
	var out []time.Weekday
	for i := 0; i < 7; i++ {
		d := time.Weekday((i + 1) % 7)
		if w.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (w Weekdays) String() string {
	days := w.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()[:3]
	}
	return strings.Join(names, ", ")
}
