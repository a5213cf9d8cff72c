package agenda

import (
	"fmt"

	"soon/internal/calendar"
	"soon/internal/task"
)

// DueChecker is implemented by schedule.Scheduler.
type DueChecker interface {
	IsDue(t task.Task, day calendar.Day) (bool, error)
}

// Summary describes what a refresh changed.
type Summary struct {
	Rollover    bool
	From        calendar.Day
	Consumed    int
	Rescheduled int
}

// Refresh computes the document for today. It never modifies doc. On error
// the returned document must be discarded.
func Refresh(doc Document, today calendar.Day, due DueChecker) (Document, Summary, error) {
	prev := Agenda{Date: today}
	if doc.Agenda != nil {
		prev = *doc.Agenda
	}
	if prev.Date == today {
		next, err := refreshSameDay(doc, prev, due)
		return next, Summary{From: today}, err
	}
	return rollover(doc, prev, today, due)
}

func refreshSameDay(doc Document, prev Agenda, due DueChecker) (Document, error) {
	todos, err := materialize(doc.Tasks, prev.Date, due, prev.Todos)
	if err != nil {
		return Document{}, err
	}
	out := doc.Clone()
	out.Agenda = &Agenda{Date: prev.Date, Todos: todos}
	return out, nil
}

func rollover(doc Document, prev Agenda, today calendar.Day, due DueChecker) (Document, Summary, error) {
	sum := Summary{Rollover: true, From: prev.Date}

	var finished, missed []task.Task
	for _, td := range prev.Todos {
		if td.Task == nil {
			continue
		}
		if _, ok := td.Task.OneOff(); !ok {
			continue
		}
		if td.IsComplete {
			finished = append(finished, *td.Task)
		} else {
			missed = append(missed, *td.Task)
		}
	}

	tasks := make([]task.Task, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		if task.Index(finished, t) >= 0 {
			sum.Consumed++
			continue
		}
		if task.Index(missed, t) >= 0 {
			r, _ := t.OneOff()
			r.Day++
			t = t.WithRecurrence(r)
			sum.Rescheduled++
		}
		tasks = append(tasks, t)
	}

	todos, err := materialize(tasks, today, due, nil)
	if err != nil {
		return Document{}, sum, err
	}
	return Document{
		Tasks:  tasks,
		Agenda: &Agenda{Date: today, Todos: todos},
	}, sum, nil
}

// materialize builds one todo per task due on day, keeping the completion
// flag of an identical task in existing.
func materialize(tasks []task.Task, day calendar.Day, due DueChecker, existing []Todo) ([]Todo, error) {
	todos := make([]Todo, 0, len(tasks))
	for _, t := range tasks {
		ok, err := due.IsDue(t, day)
		if err != nil {
			return nil, fmt.Errorf("refresh day %d: %w", day, err)
		}
		if !ok {
			continue
		}
		td := NewTodo(t)
		for _, e := range existing {
			if e.Task != nil && e.Task.Equal(t) {
				td.IsComplete = e.IsComplete
				break
			}
		}
		todos = append(todos, td)
	}
	return todos, nil
}
