package exchange

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soon/internal/calendar"
	"soon/internal/schedule"
	"soon/internal/task"
)

func sampleTasks() []task.Task {
	return []task.Task{
		task.New("dentist", task.OnDate{Day: 10}),
		task.New("gym", task.Weekly{Days: task.WeekdaysOf(time.Monday, time.Thursday)}),
		task.New("water plants", task.Interval{Start: 2, Every: 3}),
		task.New("rent", task.MonthDay{Day: 1}),
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	tasks := sampleTasks()
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, tasks))
	assert.Contains(t, buf.String(), "tasks:")
	assert.Contains(t, buf.String(), "- mon")

	got, err := ReadYAML(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(tasks))
	for i := range tasks {
		assert.True(t, tasks[i].Equal(got[i]), "task %d: %v != %v", i, tasks[i], got[i])
	}
}

func TestReadYAMLHandWritten(t *testing.T) {
	in := `
tasks:
  - name: stretch
    days_of_week: [mon, wed, fri]
  - name: taxes
    on_date: 120
`
	got, err := ReadYAML(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.Equal(t, task.Weekly{Days: task.WeekdaysOf(time.Monday, time.Wednesday, time.Friday)}, got[0].Recurrence)
	assert.Equal(t, task.OnDate{Day: 120}, got[1].Recurrence)
}

func TestReadYAMLRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no rule":      "tasks:\n  - name: x\n",
		"bad interval": "tasks:\n  - name: x\n    interval_from_date: {start: 0, interval: 0}\n",
		"bad month":    "tasks:\n  - name: x\n    nth_day_of_month: 31\n",
		"duplicate id": "tasks:\n  - {id: a, name: x, on_date: 1}\n  - {id: a, name: y, on_date: 2}\n",
		"not yaml":     "tasks: [",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadYAML(strings.NewReader(in))
			require.Error(t, err)
		})
	}
}

func TestReadYAMLEmpty(t *testing.T) {
	got, err := ReadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMerge(t *testing.T) {
	existing := sampleTasks()[:2]
	imported := append([]task.Task{existing[1]}, sampleTasks()[2:]...)
	added, skipped := Merge(existing, imported)
	assert.Equal(t, 1, skipped)
	assert.Len(t, added, 2)
}

func TestWriteICS(t *testing.T) {
	sched := schedule.New(calendar.Default())
	stamp := time.Date(2022, 1, 1, 12, 0, 0, 0, time.UTC)
	tasks := sampleTasks()

	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, tasks, sched, stamp))

	cal, err := ical.ParseCalendar(&buf)
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 4)

	byName := map[string]*ical.VEvent{}
	for _, ev := range events {
		byName[ev.GetProperty(ical.ComponentPropertySummary).Value] = ev
	}

	dentist := byName["dentist"]
	require.NotNil(t, dentist)
	assert.Equal(t, "20211227", dentist.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Nil(t, dentist.GetProperty(ical.ComponentPropertyRrule))

	gym := byName["gym"]
	require.NotNil(t, gym)
	// First Monday after the epoch.
	assert.Equal(t, "20211220", gym.GetProperty(ical.ComponentPropertyDtStart).Value)
	rule := gym.GetProperty(ical.ComponentPropertyRrule).Value
	assert.Contains(t, rule, "FREQ=WEEKLY")
	assert.Contains(t, rule, "MO")
	assert.Contains(t, rule, "TH")

	plants := byName["water plants"]
	require.NotNil(t, plants)
	assert.Equal(t, "20211219", plants.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Contains(t, plants.GetProperty(ical.ComponentPropertyRrule).Value, "INTERVAL=3")

	rent := byName["rent"]
	require.NotNil(t, rent)
	assert.Equal(t, "20220101", rent.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Contains(t, rent.GetProperty(ical.ComponentPropertyRrule).Value, "BYMONTHDAY=1")
}
