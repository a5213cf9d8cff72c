package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"soon/internal/agenda"
	"soon/internal/calendar"
	appLog "soon/internal/log"
	"soon/internal/task"
)

// SQLite stores the document as rows: the ordered task list, the agenda
// date and its todos. Every update rewrites them in one transaction.
type SQLite struct {
	db  *sql.DB
	sem chan struct{}
	hub hub
}

func OpenSQLite(dbPath string) (*SQLite, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, sem: make(chan struct{}, 1)}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error {
	s.hub.closeAll()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	position INTEGER PRIMARY KEY,
	id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	on_date INTEGER DEFAULT NULL,
	days_of_week INTEGER DEFAULT NULL,
	interval_start INTEGER DEFAULT NULL,
	interval_days INTEGER DEFAULT NULL,
	nth_day_of_month INTEGER DEFAULT NULL
);
CREATE TABLE IF NOT EXISTS agenda (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	date INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS todos (
	position INTEGER PRIMARY KEY,
	task TEXT DEFAULT NULL,
	is_complete INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS meta (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);
INSERT OR IGNORE INTO meta (id, version, updated_at) VALUES (1, 0, '');`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.ensureTaskColumns()
}

// ensureTaskColumns upgrades task tables created before ids and month days
// were stored.
func (s *SQLite) ensureTaskColumns() error {
	required := map[string]string{
		"id":               "ALTER TABLE tasks ADD COLUMN id TEXT NOT NULL DEFAULT '';",
		"nth_day_of_month": "ALTER TABLE tasks ADD COLUMN nth_day_of_month INTEGER DEFAULT NULL;",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(tasks);`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) lock(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLite) unlock() { <-s.sem }

func (s *SQLite) Read(ctx context.Context) (agenda.Document, error) {
	if err := s.lock(ctx); err != nil {
		return agenda.Document{}, err
	}
	defer s.unlock()
	return s.load(ctx, s.db)
}

func (s *SQLite) Update(ctx context.Context, f func(agenda.Document) (agenda.Document, error)) (agenda.Document, error) {
	if err := s.lock(ctx); err != nil {
		return agenda.Document{}, err
	}
	defer s.unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return agenda.Document{}, err
	}
	defer tx.Rollback()

	doc, err := s.load(ctx, tx)
	if err != nil {
		return agenda.Document{}, err
	}
	next, err := f(doc)
	if err != nil {
		return agenda.Document{}, err
	}
	if err := s.write(ctx, tx, next); err != nil {
		return agenda.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return agenda.Document{}, err
	}
	s.hub.publish(next)
	return next, nil
}

func (s *SQLite) Watch(ctx context.Context) <-chan agenda.Document {
	if err := s.lock(ctx); err != nil {
		return s.hub.subscribe(ctx, nil)
	}
	defer s.unlock()
	doc, err := s.load(ctx, s.db)
	if err != nil {
		appLog.Error("watch: load document", err)
		return s.hub.subscribe(ctx, nil)
	}
	return s.hub.subscribe(ctx, &doc)
}

// Version counts committed updates.
func (s *SQLite) Version(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM meta WHERE id = 1;`).Scan(&v)
	return v, err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) load(ctx context.Context, q querier) (agenda.Document, error) {
	var doc agenda.Document

	rows, err := q.QueryContext(ctx, `SELECT id, name, on_date, days_of_week, interval_start, interval_days, nth_day_of_month FROM tasks ORDER BY position;`)
	if err != nil {
		return doc, err
	}
	defer rows.Close()
	for rows.Next() {
		var t task.Task
		var c ruleColumns
		if err := rows.Scan(&t.ID, &t.Name, &c.onDate, &c.daysOfWeek, &c.intervalStart, &c.intervalDays, &c.nthDayOfMonth); err != nil {
			return doc, err
		}
		t.Recurrence, err = c.recurrence()
		if err != nil {
			return doc, fmt.Errorf("task %q: %w", t.Name, err)
		}
		doc.Tasks = append(doc.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return doc, err
	}

	var date int
	err = q.QueryRowContext(ctx, `SELECT date FROM agenda WHERE id = 1;`).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	a := agenda.Agenda{Date: calendar.Day(date)}

	todoRows, err := q.QueryContext(ctx, `SELECT task, is_complete FROM todos ORDER BY position;`)
	if err != nil {
		return doc, err
	}
	defer todoRows.Close()
	for todoRows.Next() {
		var raw sql.NullString
		var complete int
		if err := todoRows.Scan(&raw, &complete); err != nil {
			return doc, err
		}
		td := agenda.Todo{IsComplete: complete == 1}
		if raw.Valid {
			var t task.Task
			if err := json.Unmarshal([]byte(raw.String), &t); err != nil {
				return doc, err
			}
			td.Task = &t
		}
		a.Todos = append(a.Todos, td)
	}
	if err := todoRows.Err(); err != nil {
		return doc, err
	}
	doc.Agenda = &a
	return doc, nil
}

func (s *SQLite) write(ctx context.Context, tx *sql.Tx, doc agenda.Document) error {
	for _, stmt := range []string{`DELETE FROM tasks;`, `DELETE FROM agenda;`, `DELETE FROM todos;`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for i, t := range doc.Tasks {
		c, err := columnsOf(t)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO tasks (position, id, name, on_date, days_of_week, interval_start, interval_days, nth_day_of_month) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
			i, t.ID, t.Name, c.onDate, c.daysOfWeek, c.intervalStart, c.intervalDays, c.nthDayOfMonth)
		if err != nil {
			return err
		}
	}
	if doc.Agenda != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO agenda (id, date) VALUES (1, ?);`, int(doc.Agenda.Date)); err != nil {
			return err
		}
		for i, td := range doc.Agenda.Todos {
			raw := sql.NullString{}
			if td.Task != nil {
				data, err := json.Marshal(td.Task)
				if err != nil {
					return err
				}
				raw = sql.NullString{String: string(data), Valid: true}
			}
			complete := 0
			if td.IsComplete {
				complete = 1
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO todos (position, task, is_complete) VALUES (?, ?, ?);`, i, raw, complete); err != nil {
				return err
			}
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `UPDATE meta SET version = version + 1, updated_at = ? WHERE id = 1;`, now)
	return err
}

type ruleColumns struct {
	onDate        sql.NullInt64
	daysOfWeek    sql.NullInt64
	intervalStart sql.NullInt64
	intervalDays  sql.NullInt64
	nthDayOfMonth sql.NullInt64
}

func columnsOf(t task.Task) (ruleColumns, error) {
	var c ruleColumns
	switch r := t.Recurrence.(type) {
	case task.OnDate:
		c.onDate = sql.NullInt64{Int64: int64(r.Day), Valid: true}
	case task.Weekly:
		c.daysOfWeek = sql.NullInt64{Int64: int64(r.Days), Valid: true}
	case task.Interval:
		c.intervalStart = sql.NullInt64{Int64: int64(r.Start), Valid: true}
		c.intervalDays = sql.NullInt64{Int64: int64(r.Every), Valid: true}
	case task.MonthDay:
		c.nthDayOfMonth = sql.NullInt64{Int64: int64(r.Day), Valid: true}
	default:
		return c, fmt.Errorf("task %q: %w", t.Name, task.ErrNoRecurrence)
	}
	return c, nil
}

func (c ruleColumns) recurrence() (task.Recurrence, error) {
	var rules []task.Recurrence
	if c.onDate.Valid {
		rules = append(rules, task.OnDate{Day: calendar.Day(c.onDate.Int64)})
	}
	if c.daysOfWeek.Valid {
		rules = append(rules, task.Weekly{Days: task.Weekdays(c.daysOfWeek.Int64)})
	}
	if c.intervalStart.Valid || c.intervalDays.Valid {
		rules = append(rules, task.Interval{Start: calendar.Day(c.intervalStart.Int64), Every: int(c.intervalDays.Int64)})
	}
	if c.nthDayOfMonth.Valid {
		rules = append(rules, task.MonthDay{Day: int(c.nthDayOfMonth.Int64)})
	}
	switch len(rules) {
	case 0:
		return nil, task.ErrNoRecurrence
	case 1:
		return rules[0], nil
	default:
		return nil, fmt.Errorf("%w: %d recurrence rules set", task.ErrInvalid, len(rules))
	}
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
