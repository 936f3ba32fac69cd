package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/port"
)

type EventRepositoryStub struct {
	mu     sync.RWMutex
	data   map[int64]domain.NotificationEvent
	nextID int64
	apps   port.ApplicationRepository
	now    func() time.Time
}

// NewEventRepositoryStub creates an event store. apps resolves the application join and may be nil.
func NewEventRepositoryStub(apps port.ApplicationRepository) *EventRepositoryStub {
	return &EventRepositoryStub{
		data: make(map[int64]domain.NotificationEvent),
		apps: apps,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source.
func (r *EventRepositoryStub) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func cloneEvent(e domain.NotificationEvent) domain.NotificationEvent {
	if e.Data != nil {
		data := make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			data[k] = v
		}
		e.Data = data
	}
	e.Attachments = append([]domain.Attachment{}, e.Attachments...)
	if e.LastError != nil {
		v := *e.LastError
		e.LastError = &v
	}
	if e.RegisteredBy != nil {
		v := *e.RegisteredBy
		e.RegisteredBy = &v
	}
	e.Application = nil
	return e
}

func (r *EventRepositoryStub) Create(ctx context.Context, e *domain.NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	now := r.now()
	e.CreatedAt, e.UpdatedAt = now, now
	r.data[e.ID] = cloneEvent(*e)
	return nil
}

func (r *EventRepositoryStub) FindByID(ctx context.Context, id int64) (*domain.NotificationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.data[id]
	if !ok {
		return nil, nil
	}
	out := cloneEvent(e)
	return &out, nil
}

func (r *EventRepositoryStub) Update(ctx context.Context, id int64, p port.EventPatch) (*domain.NotificationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok {
		return nil, nil
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.SendTo != nil {
		e.SendTo = *p.SendTo
	}
	if p.Data != nil {
		e.Data = p.Data
	}
	if p.NotificationMediumID != nil {
		e.NotificationMediumID = *p.NotificationMediumID
	}
	if p.ClearLastError {
		e.LastError = nil
	}
	if p.LastError != nil {
		e.LastError = p.LastError
	}
	if p.Attempts != nil {
		e.Attempts = *p.Attempts
	}
	e.UpdatedAt = r.now()
	r.data[id] = cloneEvent(e)
	out := cloneEvent(e)
	return &out, nil
}

func (r *EventRepositoryStub) List(ctx context.Context, q port.EventQuery) ([]domain.NotificationEvent, int64, error) {
	r.mu.RLock()
	var items []domain.NotificationEvent
	for _, e := range r.data {
		if matchesEvent(e, q) {
			items = append(items, cloneEvent(e))
		}
	}
	r.mu.RUnlock()

	sortEvents(items, q.Sort)
	total := int64(len(items))
	if q.Limit > 0 {
		if q.Offset >= len(items) {
			items = []domain.NotificationEvent{}
		} else {
			end := q.Offset + q.Limit
			if end > len(items) {
				end = len(items)
			}
			items = items[q.Offset:end]
		}
	}

	if q.IncludeApplication && r.apps != nil {
		for i := range items {
			if items[i].RegisteredBy == nil {
				continue
			}
			app, err := r.apps.FindByID(ctx, *items[i].RegisteredBy)
			if err != nil {
				return nil, 0, err
			}
			if app != nil {
				items[i].Application = &domain.ApplicationSummary{ID: app.ID, Name: app.Name, Code: app.Code}
			}
		}
	}
	return items, total, nil
}

func matchesEvent(e domain.NotificationEvent, q port.EventQuery) bool {
	if q.RegisteredBy != nil && (e.RegisteredBy == nil || *e.RegisteredBy != *q.RegisteredBy) {
		return false
	}
	if q.SendTo != "" && !strings.Contains(strings.ToLower(e.SendTo), strings.ToLower(q.SendTo)) {
		return false
	}
	if q.Status != nil && e.Status != *q.Status {
		return false
	}
	if q.CreatedFrom != nil && e.CreatedAt.Before(*q.CreatedFrom) {
		return false
	}
	if q.CreatedTo != nil && e.CreatedAt.After(*q.CreatedTo) {
		return false
	}
	return true
}

func sortEvents(items []domain.NotificationEvent, specs []port.SortSpec) {
	if len(specs) == 0 {
		specs = []port.SortSpec{{Field: port.SortID}}
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, s := range specs {
			c := compareEvents(items[i], items[j], s.Field)
			if c == 0 {
				continue
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return items[i].ID < items[j].ID
	})
}

func compareEvents(a, b domain.NotificationEvent, field string) int {
	switch field {
	case port.SortSendTo:
		return strings.Compare(a.SendTo, b.SendTo)
	case port.SortStatus:
		return compareInt64(int64(a.Status), int64(b.Status))
	case port.SortAttempts:
		return compareInt64(int64(a.Attempts), int64(b.Attempts))
	case port.SortMedium:
		return compareInt64(a.NotificationMediumID, b.NotificationMediumID)
	case port.SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case port.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return compareInt64(a.ID, b.ID)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var _ port.EventRepository = (*EventRepositoryStub)(nil)
