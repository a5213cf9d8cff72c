package storage

import (
	"context"

	"soon/internal/agenda"
)

// Memory keeps the document in process. It is used by tests and by the
// "memory" driver.
type Memory struct {
	sem     chan struct{}
	doc     agenda.Document
	version int64
	hub     hub
}

func NewMemory(initial agenda.Document) *Memory {
	return &Memory{
		sem: make(chan struct{}, 1),
		doc: initial.Clone(),
	}
}

func (m *Memory) lock(ctx context.Context) error {
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) unlock() { <-m.sem }

func (m *Memory) Read(ctx context.Context) (agenda.Document, error) {
	if err := m.lock(ctx); err != nil {
		return agenda.Document{}, err
	}
	defer m.unlock()
	return m.doc.Clone(), nil
}

func (m *Memory) Update(ctx context.Context, f func(agenda.Document) (agenda.Document, error)) (agenda.Document, error) {
	if err := m.lock(ctx); err != nil {
		return agenda.Document{}, err
	}
	defer m.unlock()

	next, err := f(m.doc.Clone())
	if err != nil {
		return agenda.Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return agenda.Document{}, err
	}
	m.doc = next.Clone()
	m.version++
	m.hub.publish(m.doc)
	return next, nil
}

func (m *Memory) Watch(ctx context.Context) <-chan agenda.Document {
	if err := m.lock(ctx); err != nil {
		return m.hub.subscribe(ctx, nil)
	}
	defer m.unlock()
	return m.hub.subscribe(ctx, &m.doc)
}

// Version counts committed updates.
func (m *Memory) Version() int64 {
	m.sem <- struct{}{}
	defer m.unlock()
	return m.version
}

func (m *Memory) Close() error {
	m.hub.closeAll()
	return nil
}
