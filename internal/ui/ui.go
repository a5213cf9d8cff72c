package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"soon/internal/agenda"
	"soon/internal/calendar"
	"soon/internal/config"
	appLog "soon/internal/log"
	"soon/internal/schedule"
	"soon/internal/task"
)

// Repository is the part of agenda.Repository the UI drives.
type Repository interface {
	Calendar() calendar.Calendar
	Today() (calendar.Day, error)
	Agenda(ctx context.Context) (agenda.Agenda, error)
	Tasks(ctx context.Context) ([]task.Task, error)
	RefreshAgenda(ctx context.Context) (agenda.Agenda, error)
	ToggleComplete(ctx context.Context, todo agenda.Todo) (agenda.Agenda, error)
	AddTask(ctx context.Context, tasks ...task.Task) error
	RemoveTask(ctx context.Context, t task.Task) error
	UpdateTask(ctx context.Context, old, updated task.Task) error
	WatchAgenda(ctx context.Context) <-chan agenda.Agenda
	WatchTasks(ctx context.Context) <-chan []task.Task
}

type view int

const (
	viewAgenda view = iota
	viewTasks
)

type mode int

const (
	modeList mode = iota
	modeForm
)

const defaultSchedule = "tomorrow"

type formState struct {
	editing  *task.Task
	name     string
	schedule string
	index    int
}

type agendaMsg agenda.Agenda

type tasksMsg []task.Task

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	doneStyle   = lipgloss.NewStyle().Strikethrough(true).Faint(true)
)

type Model struct {
	ctx        context.Context
	repo       Repository
	keys       config.Keymap
	agendaCh   <-chan agenda.Agenda
	tasksCh    <-chan []task.Task
	agenda     agenda.Agenda
	tasks      []task.Task
	view       view
	cursors    [2]int
	mode       mode
	input      textinput.Model
	status     string
	confirmDel bool
	pendingDel *task.Task
	form       *formState
}

// New loads the current agenda and task list and subscribes to both.
func New(ctx context.Context, repo Repository, keys config.Keymap) (Model, error) {
	a, err := repo.Agenda(ctx)
	if err != nil {
		return Model{}, err
	}
	tasks, err := repo.Tasks(ctx)
	if err != nil {
		return Model{}, err
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	return Model{
		ctx:      ctx,
		repo:     repo,
		keys:     keys,
		agendaCh: repo.WatchAgenda(ctx),
		tasksCh:  repo.WatchTasks(ctx),
		agenda:   a,
		tasks:    tasks,
		input:    ti,
		mode:     modeList,
		status: fmt.Sprintf("Press '%s' to toggle, '%s' for the task list.",
			keyLabel(keys.Toggle), keyLabel(keys.SwitchView)),
	}, nil
}

func Run(ctx context.Context, repo Repository, cfg config.Config) error {
	m, err := New(ctx, repo, cfg.Keys)
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithContext(ctx))
	_, err = program.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitAgenda(m.agendaCh), waitTasks(m.tasksCh))
}

func waitAgenda(ch <-chan agenda.Agenda) tea.Cmd {
	return func() tea.Msg {
		a, ok := <-ch
		if !ok {
			return nil
		}
		return agendaMsg(a)
	}
}

func waitTasks(ch <-chan []task.Task) tea.Cmd {
	return func() tea.Msg {
		tasks, ok := <-ch
		if !ok {
			return nil
		}
		return tasksMsg(tasks)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case agendaMsg:
		m.agenda = agenda.Agenda(msg)
		m.clampCursors()
		return m, waitAgenda(m.agendaCh)
	case tasksMsg:
		m.tasks = msg
		m.clampCursors()
		return m, waitTasks(m.tasksCh)
	case tea.KeyMsg:
		if m.form != nil {
			return m.updateFormMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		return m.updateListMode(msg.String())
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) listLen() int {
	if m.view == viewAgenda {
		return len(m.agenda.Todos)
	}
	return len(m.tasks)
}

func (m *Model) clampCursors() {
	m.cursors[viewAgenda] = clampCursor(m.cursors[viewAgenda], len(m.agenda.Todos))
	m.cursors[viewTasks] = clampCursor(m.cursors[viewTasks], len(m.tasks))
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	cur := &m.cursors[m.view]
	switch key {
	case "ctrl+c", m.keys.Quit:
		return m, tea.Quit
	case m.keys.Down, "down":
		*cur = clampCursor(*cur+1, m.listLen())
	case m.keys.Up, "up":
		*cur = clampCursor(*cur-1, m.listLen())
	case m.keys.SwitchView:
		if m.view == viewAgenda {
			m.view = viewTasks
			m.status = fmt.Sprintf("Tasks: '%s' add, '%s' edit, '%s' delete.",
				keyLabel(m.keys.Add), keyLabel(m.keys.Edit), keyLabel(m.keys.Delete))
		} else {
			m.view = viewAgenda
			m.status = "Agenda"
		}
	case m.keys.Refresh:
		a, err := m.repo.RefreshAgenda(m.ctx)
		if err != nil {
			m.status = fmt.Sprintf("refresh failed: %v", err)
			return m, nil
		}
		m.agenda = a
		m.clampCursors()
		m.status = "Refreshed"
	case m.keys.Toggle:
		if m.view != viewAgenda || len(m.agenda.Todos) == 0 {
			return m, nil
		}
		todo := m.agenda.Todos[*cur]
		a, err := m.repo.ToggleComplete(m.ctx, todo)
		if err != nil {
			m.status = fmt.Sprintf("toggle failed: %v", err)
			return m, nil
		}
		m.agenda = a
		m.clampCursors()
		m.status = "Toggled " + todo.Name()
	case m.keys.Add:
		if m.view != viewTasks {
			return m, nil
		}
		return m.startForm(nil)
	case m.keys.Edit:
		if m.view != viewTasks || len(m.tasks) == 0 {
			return m, nil
		}
		t := m.tasks[*cur]
		return m.startForm(&t)
	case m.keys.Delete:
		if m.view != viewTasks || len(m.tasks) == 0 {
			return m, nil
		}
		t := m.tasks[*cur]
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Name)
	}
	return m, nil
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.keys.Cancel:
		m.status = "Delete cancelled"
	case "y", "Y":
		if err := m.repo.RemoveTask(m.ctx, *m.pendingDel); err != nil {
			m.status = fmt.Sprintf("delete failed: %v", err)
		} else {
			m.reload()
			m.status = "Deleted " + m.pendingDel.Name
		}
	default:
		return m, nil
	}
	m.confirmDel = false
	m.pendingDel = nil
	return m, nil
}

func (m Model) startForm(editing *task.Task) (tea.Model, tea.Cmd) {
	m.form = &formState{editing: editing, schedule: defaultSchedule}
	if editing != nil {
		m.form.name = editing.Name
		m.form.schedule = schedule.Expr(editing.Recurrence, m.repo.Calendar())
	}
	m.showField()
	m.input.Focus()
	m.mode = modeForm
	m.status = m.formPrompt()
	return m, nil
}

func (m Model) updateFormMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.keys.Cancel, "esc":
		m.form = nil
		m.mode = modeList
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case "tab", "down", "shift+tab", "up":
		step := 1
		if key == "shift+tab" || key == "up" {
			step = -1
		}
		m.form.setCurrentValue(m.input.Value())
		m.form.index = wrapIndex(m.form.index+step, len(formFields()))
		m.showField()
		m.status = m.formPrompt()
		return m, nil
	case m.keys.Confirm, "enter":
		m.form.setCurrentValue(m.input.Value())
		if m.form.index >= len(formFields())-1 {
			return m.saveForm()
		}
		m.form.index++
		m.showField()
		m.status = m.formPrompt()
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) saveForm() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.form.name)
	if name == "" {
		m.status = "Name cannot be empty"
		return m, nil
	}
	today, err := m.repo.Today()
	if err != nil {
		m.status = fmt.Sprintf("save failed: %v", err)
		return m, nil
	}
	rule, err := schedule.Parse(m.form.schedule, m.repo.Calendar(), today)
	if err != nil {
		m.status = fmt.Sprintf("schedule invalid: %v", err)
		return m, nil
	}

	if old := m.form.editing; old != nil {
		updated := old.WithRecurrence(rule)
		updated.Name = name
		err = m.repo.UpdateTask(m.ctx, *old, updated)
	} else {
		err = m.repo.AddTask(m.ctx, task.New(name, rule))
	}
	if err != nil {
		m.status = fmt.Sprintf("save failed: %v", err)
		return m, nil
	}

	editing := m.form.editing != nil
	m.form = nil
	m.mode = modeList
	m.input.Blur()
	m.reload()
	if editing {
		m.status = "Saved " + name
	} else {
		m.cursors[viewTasks] = clampCursor(len(m.tasks)-1, len(m.tasks))
		m.status = "Added " + name
	}
	return m, nil
}

// reload reads the store after a change so the view does not wait for the
// watch streams.
func (m *Model) reload() {
	tasks, err := m.repo.Tasks(m.ctx)
	if err != nil {
		appLog.Error("reload tasks", err)
		m.status = fmt.Sprintf("reload failed: %v", err)
		return
	}
	a, err := m.repo.Agenda(m.ctx)
	if err != nil {
		appLog.Error("reload agenda", err)
		m.status = fmt.Sprintf("reload failed: %v", err)
		return
	}
	m.tasks, m.agenda = tasks, a
	m.clampCursors()
}

func (m *Model) showField() {
	m.input.SetValue(m.form.currentValue())
	m.input.CursorEnd()
	m.input.Placeholder = m.form.currentLabel()
}

func formFields() []string {
	return []string{"name", "schedule"}
}

func (fs formState) currentLabel() string {
	return formFields()[fs.index]
}

func (fs formState) currentValue() string {
	if fs.index == 0 {
		return fs.name
	}
	return fs.schedule
}

func (fs *formState) setCurrentValue(v string) {
	if fs.index == 0 {
		fs.name = v
	} else {
		fs.schedule = v
	}
}

func (m Model) formPrompt() string {
	verb := "New task"
	if m.form.editing != nil {
		verb = "Editing " + m.form.editing.Name
	}
	return fmt.Sprintf("%s: %s (field %d of %d). Enter to advance, Esc to cancel.",
		verb, m.form.currentLabel(), m.form.index+1, len(formFields()))
}

func (m Model) View() string {
	var b strings.Builder

	title := "Agenda"
	if m.view == viewTasks {
		title = "Tasks"
	}
	date := m.repo.Calendar().Date(m.agenda.Date).Format("Mon, Jan 2")
	b.WriteString(headerStyle.Render(fmt.Sprintf("soon • %s • %s", date, title)))
	b.WriteString("\n\n")

	if m.view == viewAgenda {
		b.WriteString(m.renderAgenda())
	} else {
		b.WriteString(m.renderTasks())
	}

	b.WriteString("\n---\n")
	if m.form != nil {
		b.WriteString(m.renderFormBox())
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(renderHelp(m.keys)))
	return b.String()
}

func (m Model) renderAgenda() string {
	if len(m.agenda.Todos) == 0 {
		return "Nothing due today.\n"
	}
	var b strings.Builder
	for i, td := range m.agenda.Todos {
		cursor := " "
		if m.cursors[viewAgenda] == i && m.mode == modeList {
			cursor = ">"
		}
		name := td.Name()
		checkbox := "[ ]"
		if td.IsComplete {
			checkbox = "[x]"
			name = doneStyle.Render(name)
		}
		fmt.Fprintf(&b, "%s %s %s\n", cursor, checkbox, name)
	}
	return b.String()
}

func (m Model) renderTasks() string {
	if len(m.tasks) == 0 {
		return fmt.Sprintf("No tasks yet. Press '%s' to add one.\n", keyLabel(m.keys.Add))
	}
	cal := m.repo.Calendar()
	var b strings.Builder
	for i, t := range m.tasks {
		cursor := " "
		if m.cursors[viewTasks] == i && m.mode == modeList {
			cursor = ">"
		}
		fmt.Fprintf(&b, "%s %s  %s\n", cursor, t.Name, dimStyle.Render(schedule.Describe(t.Recurrence, cal)))
	}
	return b.String()
}

func (m Model) renderFormBox() string {
	values := []string{m.form.name, m.form.schedule}
	var b strings.Builder
	for i, name := range formFields() {
		prefix := " "
		if i == m.form.index {
			prefix = ">"
		}
		val := values[i]
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
		}
		fmt.Fprintf(&b, "%s %-8s : %s\n", prefix, name, val)
	}
	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s switch • %s toggle • %s add • %s edit • %s delete • %s refresh • %s quit",
		k.Up, k.Down, keyLabel(k.SwitchView), keyLabel(k.Toggle), k.Add, k.Edit, k.Delete, k.Refresh, k.Quit)
}

func keyLabel(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
