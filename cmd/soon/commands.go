package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"soon/internal/agenda"
	"soon/internal/calendar"
	"soon/internal/config"
	"soon/internal/exchange"
	appLog "soon/internal/log"
	"soon/internal/schedule"
	"soon/internal/storage"
	"soon/internal/task"
	"soon/internal/trigger"
	"soon/internal/ui"
	"soon/internal/widget"
)

type app struct {
	cfg   config.Config
	clock calendar.Clock
	store storage.Backend
	repo  *agenda.Repository
}

func openApp(ctx context.Context, cfg config.Config, clock calendar.Clock) (*app, error) {
	cal, err := cfg.Calendar()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, err
	}
	appLog.Debug("storage opened", "driver", cfg.Driver)
	return &app{
		cfg:   cfg,
		clock: clock,
		store: store,
		repo:  agenda.NewRepository(store, schedule.New(cal), clock),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		appLog.Error("close storage", err)
	}
}

// startTrigger refreshes now and then on the configured schedule until ctx
// is done.
func (a *app) startTrigger(ctx context.Context) error {
	run, err := trigger.New(a.cfg.RefreshSchedule(), a.repo.Calendar().Location(), a.repo)
	if err != nil {
		return err
	}
	run.Start(ctx)
	appLog.Info("refresh scheduled", "next", run.Next().Format(time.RFC3339))
	return nil
}

type command struct {
	verb string
	help string
	run  func(ctx context.Context, a *app, args []string, out io.Writer) error
}

var commandOrder = []string{"ui", "refresh", "agenda", "widget", "tasks", "add", "remove", "export", "import"}

var commands = map[string]command{
	"ui":      {verb: "run ui", help: "interactive agenda and task editor (default)", run: runUI},
	"refresh": {verb: "refresh agenda", help: "refresh the agenda and print it", run: runRefresh},
	"agenda":  {verb: "show agenda", help: "same as widget", run: runWidget},
	"widget":  {verb: "show agenda", help: "print the agenda box [-follow] [-width N]", run: runWidget},
	"tasks":   {verb: "list tasks", help: "list tasks with their schedule and next due day", run: runTasks},
	"add":     {verb: "add task", help: "add a task: -name NAME [-when SCHEDULE]", run: runAdd},
	"remove":  {verb: "remove task", help: "remove the task with the given id", run: runRemove},
	"export":  {verb: "export tasks", help: "write tasks: [-format yaml|ics] [-o FILE]", run: runExport},
	"import":  {verb: "import tasks", help: "add tasks from a YAML file", run: runImport},
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func runUI(ctx context.Context, a *app, _ []string, _ io.Writer) error {
	if err := a.startTrigger(ctx); err != nil {
		return err
	}
	return ui.Run(ctx, a.repo, a.cfg)
}

func runRefresh(ctx context.Context, a *app, _ []string, out io.Writer) error {
	return renderAgenda(ctx, a, out, widget.DefaultWidth)
}

func runWidget(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlagSet("widget", out)
	follow := fs.Bool("follow", false, "redraw on every change and keep refreshing")
	width := fs.Int("width", widget.DefaultWidth, "box width")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*follow {
		return renderAgenda(ctx, a, out, *width)
	}
	if err := a.startTrigger(ctx); err != nil {
		return err
	}
	return widget.Follow(ctx, a.repo.WatchAgenda(ctx), a.repo.Calendar(), out, *width)
}

func renderAgenda(ctx context.Context, a *app, out io.Writer, width int) error {
	ag, err := a.repo.RefreshAgenda(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, widget.Render(ag, a.repo.Calendar(), width))
	return err
}

func runTasks(ctx context.Context, a *app, _ []string, out io.Writer) error {
	tasks, err := a.repo.Tasks(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(out, "no tasks")
		return err
	}
	today, err := a.repo.Today()
	if err != nil {
		return err
	}
	cal, sched := a.repo.Calendar(), a.repo.Scheduler()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCHEDULE\tNEXT\tID")
	for _, t := range tasks {
		next := "-"
		if d, ok, err := sched.NextDue(t, today); err != nil {
			return err
		} else if ok {
			next = cal.Format(d)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name, schedule.Describe(t.Recurrence, cal), next, t.ID)
	}
	return tw.Flush()
}

func runAdd(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlagSet("add", out)
	name := fs.String("name", "", "task name")
	when := fs.String("when", "tomorrow", "schedule, e.g. 2026-10-20, mon,thu, every 3 days, monthly 15")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("task name cannot be empty")
	}
	today, err := a.repo.Today()
	if err != nil {
		return err
	}
	rule, err := schedule.Parse(*when, a.repo.Calendar(), today)
	if err != nil {
		return err
	}
	t := task.New(strings.TrimSpace(*name), rule)
	if err := a.repo.AddTask(ctx, t); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "added %s: %s\n", t.Name, schedule.Describe(rule, a.repo.Calendar()))
	return err
}

func runRemove(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: soon remove ID")
	}
	tasks, err := a.repo.Tasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID == args[0] {
			if err := a.repo.RemoveTask(ctx, t); err != nil {
				return err
			}
			_, err := fmt.Fprintf(out, "removed %s\n", t.Name)
			return err
		}
	}
	return fmt.Errorf("%s: %w", args[0], agenda.ErrTaskNotFound)
}

func runExport(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlagSet("export", out)
	format := fs.String("format", "yaml", "yaml or ics")
	path := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format != "yaml" && *format != "ics" {
		return fmt.Errorf("unknown format %q", *format)
	}
	tasks, err := a.repo.Tasks(ctx)
	if err != nil {
		return err
	}

	w := out
	if *path != "" {
		f, err := os.Create(*path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	switch *format {
	case "yaml":
		err = exchange.WriteYAML(w, tasks)
	case "ics":
		err = exchange.WriteICS(w, tasks, a.repo.Scheduler(), a.clock.Now())
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		return err
	}
	appLog.Info("tasks exported", "format", *format, "count", len(tasks), "path", *path)
	return nil
}

func runImport(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: soon import FILE")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	imported, err := exchange.ReadYAML(f)
	if err != nil {
		return err
	}
	existing, err := a.repo.Tasks(ctx)
	if err != nil {
		return err
	}
	added, skipped := exchange.Merge(existing, imported)
	if len(added) > 0 {
		if err := a.repo.AddTask(ctx, added...); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(out, "imported %d tasks, skipped %d already present\n", len(added), skipped)
	return err
}
