package agenda

import (
	"context"
	"errors"
	"fmt"

	"soon/internal/calendar"
	appLog "soon/internal/log"
	"soon/internal/schedule"
	"soon/internal/task"
)

var (
	ErrTodoNotFound = errors.New("todo not on the current agenda")
	ErrTaskNotFound = errors.New("task not found")
)

// Store holds the document and serializes updates. Update applies f to the
// latest committed document and commits its result before any other update
// starts; if f fails or ctx is cancelled first, nothing is committed. f gets
// its own copy and may modify it.
type Store interface {
	Read(ctx context.Context) (Document, error)
	Update(ctx context.Context, f func(Document) (Document, error)) (Document, error)
	// Watch delivers the current document and then every committed one until
	// ctx is done. Slow readers only see the latest.
	Watch(ctx context.Context) <-chan Document
}

// Repository is the API used by the UI, the widget and the refresh trigger.
type Repository struct {
	store Store
	sched schedule.Scheduler
	clock calendar.Clock
}

func NewRepository(store Store, sched schedule.Scheduler, clock calendar.Clock) *Repository {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &Repository{store: store, sched: sched, clock: clock}
}

func (r *Repository) Calendar() calendar.Calendar { return r.sched.Calendar }

func (r *Repository) Scheduler() schedule.Scheduler { return r.sched }

func (r *Repository) Today() (calendar.Day, error) {
	return r.sched.Calendar.Today(r.clock.Now())
}

func (r *Repository) Agenda(ctx context.Context) (Agenda, error) {
	doc, err := r.store.Read(ctx)
	if err != nil {
		return Agenda{}, err
	}
	return r.agendaOf(doc)
}

func (r *Repository) Tasks(ctx context.Context) ([]task.Task, error) {
	doc, err := r.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Tasks, nil
}

func (r *Repository) agendaOf(doc Document) (Agenda, error) {
	if doc.Agenda != nil {
		return *doc.Agenda, nil
	}
	today, err := r.Today()
	if err != nil {
		return Agenda{}, err
	}
	return Agenda{Date: today}, nil
}

// RefreshAgenda brings the agenda up to today in a single update.
func (r *Repository) RefreshAgenda(ctx context.Context) (Agenda, error) {
	today, err := r.Today()
	if err != nil {
		appLog.Error("refresh aborted", err)
		return Agenda{}, err
	}
	doc, err := r.store.Update(ctx, func(doc Document) (Document, error) {
		return r.refresh(doc, today)
	})
	if err != nil {
		appLog.Error("refresh failed", err, "today", today)
		return Agenda{}, fmt.Errorf("refresh agenda: %w", err)
	}
	return *doc.Agenda, nil
}

func (r *Repository) refresh(doc Document, today calendar.Day) (Document, error) {
	next, sum, err := Refresh(doc, today, r.sched)
	if err != nil {
		return Document{}, err
	}
	if sum.Rollover {
		appLog.Info("agenda rolled over",
			"from", sum.From,
			"to", today,
			"consumed", sum.Consumed,
			"rescheduled", sum.Rescheduled,
			"todos", len(next.Agenda.Todos),
		)
	} else {
		appLog.Debug("agenda refreshed", "day", today, "todos", len(next.Agenda.Todos))
	}
	return next, nil
}

// ToggleComplete flips the todo equal to todo on the current agenda. The
// task list is not touched.
func (r *Repository) ToggleComplete(ctx context.Context, todo Todo) (Agenda, error) {
	doc, err := r.store.Update(ctx, func(doc Document) (Document, error) {
		if doc.Agenda == nil {
			a, err := r.agendaOf(doc)
			if err != nil {
				return Document{}, err
			}
			doc.Agenda = &a
		}
		for i := range doc.Agenda.Todos {
			if doc.Agenda.Todos[i].Equal(todo) {
				doc.Agenda.Todos[i].IsComplete = !doc.Agenda.Todos[i].IsComplete
				return doc, nil
			}
		}
		return Document{}, fmt.Errorf("toggle %q: %w", todo.Name(), ErrTodoNotFound)
	})
	if err != nil {
		return Agenda{}, err
	}
	return *doc.Agenda, nil
}

// AddTask appends tasks in one update. Nothing is added if any is invalid.
func (r *Repository) AddTask(ctx context.Context, added ...task.Task) error {
	for _, t := range added {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return r.mutateTasks(ctx, "add", func(tasks []task.Task) ([]task.Task, error) {
		return append(tasks, added...), nil
	})
}

func (r *Repository) RemoveTask(ctx context.Context, t task.Task) error {
	return r.mutateTasks(ctx, "remove", func(tasks []task.Task) ([]task.Task, error) {
		i := task.Index(tasks, t)
		if i < 0 {
			return nil, fmt.Errorf("remove %q: %w", t.Name, ErrTaskNotFound)
		}
		return append(tasks[:i], tasks[i+1:]...), nil
	})
}

func (r *Repository) UpdateTask(ctx context.Context, old, updated task.Task) error {
	if err := updated.Validate(); err != nil {
		return err
	}
	return r.mutateTasks(ctx, "update", func(tasks []task.Task) ([]task.Task, error) {
		i := task.Index(tasks, old)
		if i < 0 {
			return nil, fmt.Errorf("update %q: %w", old.Name, ErrTaskNotFound)
		}
		tasks[i] = updated
		return tasks, nil
	})
}

// mutateTasks edits the task list and refreshes the agenda in the same
// update, so a new or changed task shows up today if it is due.
func (r *Repository) mutateTasks(ctx context.Context, op string, f func([]task.Task) ([]task.Task, error)) error {
	today, err := r.Today()
	if err != nil {
		return err
	}
	_, err = r.store.Update(ctx, func(doc Document) (Document, error) {
		tasks, err := f(doc.Tasks)
		if err != nil {
			return Document{}, err
		}
		doc.Tasks = tasks
		return r.refresh(doc, today)
	})
	if err != nil {
		return err
	}
	appLog.Debug("task list changed", "op", op)
	return nil
}

// WatchAgenda streams the agenda after every committed change.
func (r *Repository) WatchAgenda(ctx context.Context) <-chan Agenda {
	out := make(chan Agenda, 1)
	docs := r.store.Watch(ctx)
	go func() {
		defer close(out)
		for doc := range docs {
			a, err := r.agendaOf(doc)
			if err != nil {
				appLog.Error("agenda stream", err)
				continue
			}
			select {
			case out <- a:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// WatchTasks streams the task list after every committed change.
func (r *Repository) WatchTasks(ctx context.Context) <-chan []task.Task {
	out := make(chan []task.Task, 1)
	docs := r.store.Watch(ctx)
	go func() {
		defer close(out)
		for doc := range docs {
			select {
			case out <- doc.Tasks:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
