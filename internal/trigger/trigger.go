package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"soon/internal/agenda"
	appLog "soon/internal/log"
)

// Refresher is implemented by agenda.Repository.
type Refresher interface {
	RefreshAgenda(ctx context.Context) (agenda.Agenda, error)
}

// Runner calls RefreshAgenda on start and then on a cron schedule, so the
// agenda rolls over even when nobody touches the UI.
type Runner struct {
	cron      *cron.Cron
	loc       *time.Location
	refresher Refresher

	mu  sync.Mutex
	ctx context.Context
}

func New(spec string, loc *time.Location, r Refresher) (*Runner, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	run := &Runner{cron: c, loc: loc, refresher: r, ctx: context.Background()}
	if _, err := c.AddFunc(spec, run.job); err != nil {
		return nil, err
	}
	return run, nil
}

// Start refreshes once and begins the schedule. The schedule stops when ctx
// is done.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	r.job()
	r.cron.Start()
	go func() {
		<-ctx.Done()
		<-r.cron.Stop().Done()
	}()
}

// Next is the time of the next scheduled refresh.
func (r *Runner) Next() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now().In(r.loc))
}

func (r *Runner) job() {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	a, err := r.refresher.RefreshAgenda(ctx)
	if err != nil {
		// Already logged by the repository; the stale agenda stays visible.
		return
	}
	appLog.Debug("scheduled refresh", "day", a.Date, "todos", len(a.Todos))
}

// cronLogger routes cron's own messages into the app log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
