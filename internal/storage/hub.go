package storage

import (
	"context"
	"sync"

	"soon/internal/agenda"
)

// hub fans committed documents out to watchers. Each watcher has a single
// slot; a newer document replaces one that was not read yet.
type hub struct {
	mu   sync.Mutex
	subs map[chan agenda.Document]struct{}
}

func (h *hub) subscribe(ctx context.Context, current *agenda.Document) <-chan agenda.Document {
	ch := make(chan agenda.Document, 1)
	if current != nil {
		ch <- current.Clone()
	}

	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[chan agenda.Document]struct{})
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}()
	return ch
}

func (h *hub) publish(doc agenda.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- doc.Clone():
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		ch <- doc.Clone()
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
