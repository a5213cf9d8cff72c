package exchange

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "soon/internal/log"
	"soon/internal/schedule"
	"soon/internal/task"
)

const productID = "-//soon//agenda export//EN"

// WriteICS exports tasks as all-day events. Recurring tasks carry an RRULE
// and start on their first due day; one-off tasks are single events.
func WriteICS(w io.Writer, tasks []task.Task, sched schedule.Scheduler, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	for _, t := range tasks {
		start, ok, err := sched.NextDue(t, 0)
		if err != nil {
			return fmt.Errorf("export %s: %w", t, err)
		}
		if !ok {
			appLog.Debug("skipping task with no occurrence", "task", t.Name)
			continue
		}
		day := sched.Calendar.Epoch().AddDate(0, 0, int(start))

		ev := cal.AddEvent(t.ID + "@soon")
		ev.SetSummary(t.Name)
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		if _, oneOff := t.OneOff(); oneOff {
			continue
		}
		opt, err := sched.Options(t)
		if err != nil {
			return fmt.Errorf("export %s: %w", t, err)
		}
		ev.AddRrule(opt.RRuleString())
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}
