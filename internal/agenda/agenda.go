package agenda

import (
	"slices"

	"soon/internal/calendar"
	"soon/internal/task"
)

// Todo is one occurrence of a task on the agenda day. Task is nil only for
// entries written by older versions.
type Todo struct {
	Task       *task.Task `json:"task,omitempty"`
	IsComplete bool       `json:"is_complete"`
}

func NewTodo(t task.Task) Todo {
	return Todo{Task: &t}
}

func (t Todo) Equal(o Todo) bool {
	if t.IsComplete != o.IsComplete {
		return false
	}
	if t.Task == nil || o.Task == nil {
		return t.Task == nil && o.Task == nil
	}
	return t.Task.Equal(*o.Task)
}

func (t Todo) Name() string {
	if t.Task == nil {
		return ""
	}
	return t.Task.Name
}

type Agenda struct {
	Date  calendar.Day `json:"date"`
	Todos []Todo       `json:"todos"`
}

// Document is the whole persisted unit.
type Document struct {
	Tasks  []task.Task `json:"tasks"`
	Agenda *Agenda     `json:"agenda,omitempty"`
}

// Clone copies the slices so that an update function can never write into a
// committed document.
func (d Document) Clone() Document {
	out := Document{Tasks: slices.Clone(d.Tasks)}
	if d.Agenda != nil {
		a := Agenda{Date: d.Agenda.Date, Todos: make([]Todo, len(d.Agenda.Todos))}
		for i, td := range d.Agenda.Todos {
			if td.Task != nil {
				tk := *td.Task
				td.Task = &tk
			}
			a.Todos[i] = td
		}
		out.Agenda = &a
	}
	return out
}
