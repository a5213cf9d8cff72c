package agenda_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soon/internal/agenda"
	"soon/internal/calendar"
	"soon/internal/schedule"
	"soon/internal/task"
)

func testScheduler(t *testing.T) schedule.Scheduler {
	t.Helper()
	// Day 0 (2021-12-17) is a Friday, so day 3 is a Monday and day 6 a Thursday.
	cal, err := calendar.New(calendar.DefaultEpoch, 4, time.UTC)
	require.NoError(t, err)
	return schedule.New(cal)
}

func todoNames(a *agenda.Agenda) []string {
	var names []string
	for _, td := range a.Todos {
		names = append(names, td.Name())
	}
	return names
}

func TestRefreshWithoutAgendaCreatesOne(t *testing.T) {
	s := testScheduler(t)
	a := task.New("A", task.OnDate{Day: 7})
	b := task.New("B", task.OnDate{Day: 8})

	doc, sum, err := agenda.Refresh(agenda.Document{Tasks: []task.Task{a, b}}, 7, s)
	require.NoError(t, err)
	assert.False(t, sum.Rollover)
	require.NotNil(t, doc.Agenda)
	assert.EqualValues(t, 7, doc.Agenda.Date)
	assert.Equal(t, []string{"A"}, todoNames(doc.Agenda))
	assert.False(t, doc.Agenda.Todos[0].IsComplete)
	assert.Equal(t, []task.Task{a, b}, doc.Tasks)
}

func TestSameDayRefreshIsIdempotent(t *testing.T) {
	s := testScheduler(t)
	a := task.New("A", task.Interval{Start: 0, Every: 1})
	b := task.New("B", task.Interval{Start: 0, Every: 1})
	doc := agenda.Document{
		Tasks: []task.Task{a, b},
		Agenda: &agenda.Agenda{Date: 4, Todos: []agenda.Todo{
			{Task: &a, IsComplete: true},
			{Task: &b},
		}},
	}

	first, _, err := agenda.Refresh(doc, 4, s)
	require.NoError(t, err)
	second, _, err := agenda.Refresh(first, 4, s)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, second.Agenda.Todos[0].IsComplete)
	assert.False(t, second.Agenda.Todos[1].IsComplete)
}

func TestSameDayPicksUpNewAndDropsStaleTasks(t *testing.T) {
	s := testScheduler(t)
	kept := task.New("kept", task.OnDate{Day: 4})
	added := task.New("added", task.OnDate{Day: 4})
	stale := task.New("stale", task.OnDate{Day: 9})
	doc := agenda.Document{
		Tasks: []task.Task{added, kept, stale},
		Agenda: &agenda.Agenda{Date: 4, Todos: []agenda.Todo{
			{Task: &kept, IsComplete: true},
			{Task: &stale, IsComplete: true},
			{IsComplete: true},
		}},
	}

	out, _, err := agenda.Refresh(doc, 4, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"added", "kept"}, todoNames(out.Agenda))
	assert.False(t, out.Agenda.Todos[0].IsComplete)
	assert.True(t, out.Agenda.Todos[1].IsComplete)
	assert.Len(t, out.Tasks, 3, "tasks that are no longer due stay in the list")
}

func TestSameDayEditedTaskStartsIncomplete(t *testing.T) {
	s := testScheduler(t)
	a := task.New("A", task.OnDate{Day: 4})
	renamed := a
	renamed.Name = "A2"
	doc := agenda.Document{
		Tasks:  []task.Task{renamed},
		Agenda: &agenda.Agenda{Date: 4, Todos: []agenda.Todo{{Task: &a, IsComplete: true}}},
	}
	out, _, err := agenda.Refresh(doc, 4, s)
	require.NoError(t, err)
	require.Len(t, out.Agenda.Todos, 1)
	assert.False(t, out.Agenda.Todos[0].IsComplete)
}

func TestRolloverKeepsRecurringTasks(t *testing.T) {
	s := testScheduler(t)
	weekly := task.New("weekly", task.Weekly{Days: task.WeekdaysOf(time.Monday, time.Tuesday)})
	doc := agenda.Document{
		Tasks:  []task.Task{weekly},
		Agenda: &agenda.Agenda{Date: 3, Todos: []agenda.Todo{agenda.NewTodo(weekly)}},
	}

	out, sum, err := agenda.Refresh(doc, 4, s)
	require.NoError(t, err)
	assert.True(t, sum.Rollover)
	assert.Equal(t, []task.Task{weekly}, out.Tasks)
	require.Len(t, out.Agenda.Todos, 1)
	assert.False(t, out.Agenda.Todos[0].IsComplete)
	assert.EqualValues(t, 4, out.Agenda.Date)
}

func TestRolloverResetsCompletedRecurringTasks(t *testing.T) {
	s := testScheduler(t)
	daily := task.New("daily", task.Interval{Start: 0, Every: 1})
	doc := agenda.Document{
		Tasks:  []task.Task{daily},
		Agenda: &agenda.Agenda{Date: 3, Todos: []agenda.Todo{{Task: &daily, IsComplete: true}}},
	}
	out, sum, err := agenda.Refresh(doc, 4, s)
	require.NoError(t, err)
	assert.Zero(t, sum.Consumed)
	assert.Equal(t, []task.Task{daily}, out.Tasks)
	require.Len(t, out.Agenda.Todos, 1)
	assert.False(t, out.Agenda.Todos[0].IsComplete)
}

func TestRolloverConsumesFinishedOneOff(t *testing.T) {
	s := testScheduler(t)
	done := task.New("done", task.OnDate{Day: 3})
	other := task.New("other", task.MonthDay{Day: 1})
	doc := agenda.Document{
		Tasks:  []task.Task{done, other},
		Agenda: &agenda.Agenda{Date: 3, Todos: []agenda.Todo{{Task: &done, IsComplete: true}}},
	}
	out, sum, err := agenda.Refresh(doc, 4, s)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Consumed)
	assert.Equal(t, []task.Task{other}, out.Tasks)
	assert.Empty(t, out.Agenda.Todos)
}

func TestRolloverReschedulesMissedOneOff(t *testing.T) {
	s := testScheduler(t)
	missed := task.New("missed", task.OnDate{Day: 3})
	doc := agenda.Document{
		Tasks:  []task.Task{missed},
		Agenda: &agenda.Agenda{Date: 3, Todos: []agenda.Todo{agenda.NewTodo(missed)}},
	}
	out, sum, err := agenda.Refresh(doc, 4, s)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Rescheduled)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, task.OnDate{Day: 4}, out.Tasks[0].Recurrence)
	assert.Equal(t, missed.ID, out.Tasks[0].ID)
	assert.Equal(t, []string{"missed"}, todoNames(out.Agenda))
	assert.False(t, out.Agenda.Todos[0].IsComplete)
}

func TestRolloverAfterGapAdvancesMissedOneOffByOneDay(t *testing.T) {
	s := testScheduler(t)
	missed := task.New("missed", task.OnDate{Day: 3})
	doc := agenda.Document{
		Tasks:  []task.Task{missed},
		Agenda: &agenda.Agenda{Date: 3, Todos: []agenda.Todo{agenda.NewTodo(missed)}},
	}
	out, sum, err := agenda.Refresh(doc, 10, s)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Rescheduled)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, task.OnDate{Day: 4}, out.Tasks[0].Recurrence)
	assert.Empty(t, out.Agenda.Todos)
}

func TestRolloverLeavesUnscheduledOneOffAlone(t *testing.T) {
	s := testScheduler(t)
	future := task.New("future", task.OnDate{Day: 20})
	doc := agenda.Document{
		Tasks:  []task.Task{future},
		Agenda: &agenda.Agenda{Date: 3},
	}
	out, _, err := agenda.Refresh(doc, 4, s)
	require.NoError(t, err)
	assert.Equal(t, []task.Task{future}, out.Tasks)
}

func TestRolloverIgnoresTodosWithoutTask(t *testing.T) {
	s := testScheduler(t)
	a := task.New("A", task.OnDate{Day: 4})
	doc := agenda.Document{
		Tasks:  []task.Task{a},
		Agenda: &agenda.Agenda{Date: 3, Todos: []agenda.Todo{{IsComplete: true}, {}}},
	}
	out, _, err := agenda.Refresh(doc, 4, s)
	require.NoError(t, err)
	assert.Equal(t, []task.Task{a}, out.Tasks)
	assert.Equal(t, []string{"A"}, todoNames(out.Agenda))
}

// Task A (one-off on day 5) was missed; B repeats on Mondays. Day 6 is a
// Thursday, so only A shows up after it moves forward.
func TestRolloverScenario(t *testing.T) {
	s := testScheduler(t)
	a := task.New("A", task.OnDate{Day: 5})
	b := task.New("B", task.Weekly{Days: task.WeekdaysOf(time.Monday)})
	doc := agenda.Document{
		Tasks:  []task.Task{a, b},
		Agenda: &agenda.Agenda{Date: 5, Todos: []agenda.Todo{agenda.NewTodo(a)}},
	}
	require.NotEqual(t, time.Monday, s.Calendar.Weekday(6))

	out, _, err := agenda.Refresh(doc, 6, s)
	require.NoError(t, err)
	require.Len(t, out.Tasks, 2)
	assert.Equal(t, "A", out.Tasks[0].Name)
	assert.Equal(t, task.OnDate{Day: 6}, out.Tasks[0].Recurrence)
	assert.Equal(t, b, out.Tasks[1])

	assert.EqualValues(t, 6, out.Agenda.Date)
	assert.Equal(t, []string{"A"}, todoNames(out.Agenda))
	assert.False(t, out.Agenda.Todos[0].IsComplete)
}

type failingChecker struct{ err error }

func (f failingChecker) IsDue(task.Task, calendar.Day) (bool, error) { return false, f.err }

func TestRefreshFailsClosed(t *testing.T) {
	boom := errors.New("boom")
	a := task.New("A", task.OnDate{Day: 3})
	b := task.New("B", task.MonthDay{Day: 1})
	doc := agenda.Document{
		Tasks:  []task.Task{a, b},
		Agenda: &agenda.Agenda{Date: 3, Todos: []agenda.Todo{{Task: &a, IsComplete: true}}},
	}
	for _, today := range []calendar.Day{3, 4} {
		_, _, err := agenda.Refresh(doc, today, failingChecker{err: boom})
		require.ErrorIs(t, err, boom)
	}
	// Input document untouched.
	assert.Equal(t, []task.Task{a, b}, doc.Tasks)
	assert.True(t, doc.Agenda.Todos[0].IsComplete)
}

func TestRefreshUnknownScheduleAborts(t *testing.T) {
	s := testScheduler(t)
	doc := agenda.Document{Tasks: []task.Task{{Name: "broken"}}}
	_, _, err := agenda.Refresh(doc, 3, s)
	require.ErrorIs(t, err, schedule.ErrUnknownSchedule)
}

func TestRefreshDoesNotAliasInput(t *testing.T) {
	s := testScheduler(t)
	a := task.New("A", task.OnDate{Day: 3})
	doc := agenda.Document{
		Tasks:  []task.Task{a},
		Agenda: &agenda.Agenda{Date: 3, Todos: []agenda.Todo{agenda.NewTodo(a)}},
	}
	out, _, err := agenda.Refresh(doc, 3, s)
	require.NoError(t, err)
	out.Tasks[0].Name = "changed"
	out.Agenda.Todos[0].IsComplete = true
	assert.Equal(t, "A", doc.Tasks[0].Name)
	assert.False(t, doc.Agenda.Todos[0].IsComplete)
}
