package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"soon/internal/calendar"
	"soon/internal/task"
)

const displayLayout = "Jan 2, 2006"

// Parse reads the short schedule syntax used by the UI and the CLI:
//
//	today | tomorrow | 2026-10-20
//	mon,wed,fri | weekdays | weekends
//	daily | every 3 days | every 3 days from 2026-10-01
//	monthly 15 | 15th
func Parse(expr string, cal calendar.Calendar, today calendar.Day) (task.Recurrence, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return nil, fmt.Errorf("%w: empty schedule", task.ErrInvalid)
	}

	var r task.Recurrence
	switch {
	case s == "today":
		r = task.OnDate{Day: today}
	case s == "tomorrow":
		r = task.OnDate{Day: today + 1}
	case s == "daily":
		r = task.Interval{Start: today, Every: 1}
	case s == "weekdays":
		r = task.Weekly{Days: task.WeekdaysOf(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)}
	case s == "weekends":
		r = task.Weekly{Days: task.WeekdaysOf(time.Saturday, time.Sunday)}
	case strings.HasPrefix(s, "every "):
		iv, err := parseInterval(strings.TrimPrefix(s, "every "), cal, today)
		if err != nil {
			return nil, err
		}
		r = iv
	case strings.HasPrefix(s, "monthly "):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(s, "monthly ")))
		if err != nil {
			return nil, fmt.Errorf("%w: bad day of month in %q", task.ErrInvalid, expr)
		}
		r = task.MonthDay{Day: n}
	case isOrdinal(s):
		n, _ := strconv.Atoi(s[:len(s)-2])
		r = task.MonthDay{Day: n}
	case len(s) == len("2006-01-02") && s[4] == '-':
		d, err := cal.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", task.ErrInvalid, err)
		}
		r = task.OnDate{Day: d}
	default:
		w, err := parseWeekdays(s)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read schedule %q", task.ErrInvalid, expr)
		}
		r = task.Weekly{Days: w}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func parseInterval(s string, cal calendar.Calendar, today calendar.Day) (task.Interval, error) {
	start := today
	if i := strings.Index(s, " from "); i >= 0 {
		d, err := cal.ParseDate(strings.TrimSpace(s[i+len(" from "):]))
		if err != nil {
			return task.Interval{}, fmt.Errorf("%w: %v", task.ErrInvalid, err)
		}
		start = d
		s = s[:i]
	}
	fields := strings.Fields(s)
	if len(fields) == 1 && (fields[0] == "day" || fields[0] == "days") {
		return task.Interval{Start: start, Every: 1}, nil
	}
	if len(fields) != 2 || (fields[1] != "days" && fields[1] != "day") {
		return task.Interval{}, fmt.Errorf("%w: expected \"every N days\"", task.ErrInvalid)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return task.Interval{}, fmt.Errorf("%w: bad interval %q", task.ErrInvalid, fields[0])
	}
	return task.Interval{Start: start, Every: n}, nil
}

func parseWeekdays(s string) (task.Weekdays, error) {
	var w task.Weekdays
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		d, err := task.ParseWeekday(part)
		if err != nil {
			return 0, err
		}
		w = w.Add(d)
	}
	return w, nil
}

func isOrdinal(s string) bool {
	if len(s) < 3 {
		return false
	}
	n, err := strconv.Atoi(s[:len(s)-2])
	return err == nil && s[len(s)-2:] == ordinalSuffix(n)
}

func ordinalSuffix(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

// Expr renders r in the syntax accepted by Parse.
func Expr(r task.Recurrence, cal calendar.Calendar) string {
	switch r := r.(type) {
	case task.OnDate:
		return cal.Format(r.Day)
	case task.Weekly:
		days := r.Days.Days()
		names := make([]string, len(days))
		for i, d := range days {
			names[i] = strings.ToLower(d.String()[:3])
		}
		return strings.Join(names, ",")
	case task.Interval:
		return fmt.Sprintf("every %d days from %s", r.Every, cal.Format(r.Start))
	case task.MonthDay:
		return fmt.Sprintf("monthly %d", r.Day)
	}
	return ""
}

// Describe is the human-readable form shown in task lists.
func Describe(r task.Recurrence, cal calendar.Calendar) string {
	switch r := r.(type) {
	case task.OnDate:
		return cal.Date(r.Day).Format(displayLayout)
	case task.Weekly:
		return r.Days.String()
	case task.Interval:
		from := cal.Date(r.Start).Format(displayLayout)
		if r.Every == 1 {
			return "Every day from " + from
		}
		return fmt.Sprintf("Every %d days from %s", r.Every, from)
	case task.MonthDay:
		return fmt.Sprintf("Every %d%s of the month", r.Day, ordinalSuffix(r.Day))
	}
	return "No schedule"
}
