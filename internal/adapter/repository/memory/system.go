package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/strogmv/notifyevents/internal/port"
)

// SystemRepositoryStub implements IdempotencyStore and OutboxRepository in memory.
type SystemRepositoryStub struct {
	mu        sync.Mutex
	keys      map[string][]byte
	outbox    []port.OutboxMessage
	processed map[string]bool
}

func NewSystemRepositoryStub() *SystemRepositoryStub {
	return &SystemRepositoryStub{
		keys:      make(map[string][]byte),
		processed: make(map[string]bool),
	}
}

func (r *SystemRepositoryStub) Check(ctx context.Context, key string) (bool, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.keys[key]
	return ok, data, nil
}

func (r *SystemRepositoryStub) Save(ctx context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key]; ok {
		return port.ErrIdempotencyKeyExists
	}
	r.keys[key] = append([]byte(nil), data...)
	return nil
}

func (r *SystemRepositoryStub) SaveEvent(ctx context.Context, id, topic string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outbox = append(r.outbox, port.OutboxMessage{ID: id, Topic: topic, Payload: append([]byte(nil), payload...)})
	return nil
}

func (r *SystemRepositoryStub) ListPending(ctx context.Context, limit int) ([]port.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []port.OutboxMessage
	for _, m := range r.outbox {
		if r.processed[m.ID] {
			continue
		}
		items = append(items, m)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (r *SystemRepositoryStub) MarkProcessed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[id] = true
	return nil
}

// Topics returns the topics of every recorded outbox message, in insertion order.
func (r *SystemRepositoryStub) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.outbox))
	for _, m := range r.outbox {
		out = append(out, m.Topic)
	}
	return out
}

// Keys returns the stored idempotency keys, sorted.
func (r *SystemRepositoryStub) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.keys))
	for k := range r.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// TxManager runs fn directly. The memory stores have no rollback.
type TxManager struct{}

func (TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	_ port.IdempotencyStore = (*SystemRepositoryStub)(nil)
	_ port.OutboxRepository = (*SystemRepositoryStub)(nil)
	_ port.TxManager        = TxManager{}
)
