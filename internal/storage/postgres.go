package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"soon/internal/agenda"
	appLog "soon/internal/log"
)

// Postgres keeps the document as a single JSONB row. Updates lock the row
// with SELECT ... FOR UPDATE, which also serializes writers in other
// processes. Watchers only see commits made through this process.
type Postgres struct {
	pool *pgxpool.Pool
	sem  chan struct{}
	hub  hub
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &Postgres{pool: pool, sem: make(chan struct{}, 1)}
	if err := s.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureTable creates the document table and its single row.
func (s *Postgres) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS soon_document (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			version    BIGINT NOT NULL DEFAULT 0,
			body       JSONB NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO soon_document (id, body) VALUES (1, '{"tasks":[]}') ON CONFLICT (id) DO NOTHING`)
	return err
}

func (s *Postgres) Read(ctx context.Context) (agenda.Document, error) {
	var body []byte
	if err := s.pool.QueryRow(ctx, `SELECT body FROM soon_document WHERE id = 1`).Scan(&body); err != nil {
		return agenda.Document{}, err
	}
	return decodeDocument(body)
}

func (s *Postgres) lock(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Postgres) unlock() { <-s.sem }

// Update holds the process lock from begin to publish so that watchers see
// commits in version order.
func (s *Postgres) Update(ctx context.Context, f func(agenda.Document) (agenda.Document, error)) (agenda.Document, error) {
	if err := s.lock(ctx); err != nil {
		return agenda.Document{}, err
	}
	defer s.unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return agenda.Document{}, err
	}
	defer tx.Rollback(ctx)

	var body []byte
	if err := tx.QueryRow(ctx, `SELECT body FROM soon_document WHERE id = 1 FOR UPDATE`).Scan(&body); err != nil {
		return agenda.Document{}, err
	}
	doc, err := decodeDocument(body)
	if err != nil {
		return agenda.Document{}, err
	}
	next, err := f(doc)
	if err != nil {
		return agenda.Document{}, err
	}
	out, err := json.Marshal(next)
	if err != nil {
		return agenda.Document{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE soon_document SET body = $1, version = version + 1, updated_at = NOW() WHERE id = 1`, out); err != nil {
		return agenda.Document{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return agenda.Document{}, err
	}
	s.hub.publish(next)
	return next, nil
}

func (s *Postgres) Watch(ctx context.Context) <-chan agenda.Document {
	if err := s.lock(ctx); err != nil {
		return s.hub.subscribe(ctx, nil)
	}
	defer s.unlock()
	doc, err := s.Read(ctx)
	if err != nil {
		appLog.Error("watch: load document", err)
		return s.hub.subscribe(ctx, nil)
	}
	return s.hub.subscribe(ctx, &doc)
}

func (s *Postgres) Version(ctx context.Context) (int64, error) {
	var v int64
	err := s.pool.QueryRow(ctx, `SELECT version FROM soon_document WHERE id = 1`).Scan(&v)
	return v, err
}

func (s *Postgres) Close() error {
	s.hub.closeAll()
	s.pool.Close()
	return nil
}

func decodeDocument(body []byte) (agenda.Document, error) {
	var doc agenda.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return agenda.Document{}, err
	}
	return doc, nil
}
