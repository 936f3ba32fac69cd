// Package memory provides in-memory implementations of the repositories.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/port"
)

// CatalogStub holds notification types, applications, media and templates.
type CatalogStub struct {
	mu        sync.RWMutex
	types     map[int64]domain.NotificationType
	apps      map[int64]domain.AuthorizedApplication
	media     map[int64]domain.DeliveryMedium
	templates map[string]domain.NotificationTemplate
	nextID    int64
}

func NewCatalogStub() *CatalogStub {
	return &CatalogStub{
		types:     make(map[int64]domain.NotificationType),
		apps:      make(map[int64]domain.AuthorizedApplication),
		media:     make(map[int64]domain.DeliveryMedium),
		templates: make(map[string]domain.NotificationTemplate),
	}
}

func (r *CatalogStub) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *CatalogStub) UpsertType(ctx context.Context, t *domain.NotificationType) error {
	if t == nil || t.Code == "" {
		return fmt.Errorf("notification type code is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.types {
		if existing.Code == t.Code {
			t.ID = id
			r.types[id] = *t
			return nil
		}
	}
	if t.ID == 0 {
		t.ID = r.id()
	}
	r.types[t.ID] = *t
	return nil
}

func (r *CatalogStub) UpsertApplication(ctx context.Context, a *domain.AuthorizedApplication) error {
	if a == nil || a.Code == "" {
		return fmt.Errorf("application code is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.apps {
		if existing.Code == a.Code {
			a.ID = id
			r.apps[id] = *a
			return nil
		}
	}
	if a.ID == 0 {
		a.ID = r.id()
	}
	r.apps[a.ID] = *a
	return nil
}

func (r *CatalogStub) UpsertMedium(ctx context.Context, m *domain.DeliveryMedium) error {
	if m == nil || m.Name == "" {
		return fmt.Errorf("medium name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[m.NotificationTypeID]; !ok {
		return fmt.Errorf("notification type %d does not exist", m.NotificationTypeID)
	}
	for id, existing := range r.media {
		if existing.Name == m.Name {
			m.ID = id
			r.media[id] = *m
			return nil
		}
	}
	if m.ID == 0 {
		m.ID = r.id()
	}
	r.media[m.ID] = *m
	return nil
}

func (r *CatalogStub) UpsertTemplate(ctx context.Context, t *domain.NotificationTemplate) error {
	if t == nil || t.Code == "" {
		return fmt.Errorf("template code is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.templates[t.Code]; ok {
		t.ID = existing.ID
	} else if t.ID == 0 {
		t.ID = r.id()
	}
	r.templates[t.Code] = *t
	return nil
}

// joined fills the kind code and bound application token of m. Callers hold r.mu.
func (r *CatalogStub) joined(m domain.DeliveryMedium) *domain.DeliveryMedium {
	m.Kind = r.types[m.NotificationTypeID].Code
	m.ApplicationToken = nil
	if m.AuthorizedApplicationID != nil {
		if app, ok := r.apps[*m.AuthorizedApplicationID]; ok {
			token := app.Token
			m.ApplicationToken = &token
		}
	}
	return &m
}

func (r *CatalogStub) FindByID(ctx context.Context, id int64) (*domain.DeliveryMedium, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.media[id]
	if !ok {
		return nil, nil
	}
	return r.joined(m), nil
}

func (r *CatalogStub) FindFirstActive(ctx context.Context, f port.MediumFilter) (*domain.DeliveryMedium, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.media))
	for id := range r.media {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		m := r.media[id]
		if !m.Active {
			continue
		}
		if f.Name != "" && m.Name != f.Name {
			continue
		}
		if f.NotificationTypeID != 0 && m.NotificationTypeID != f.NotificationTypeID {
			continue
		}
		if f.ApplicationID != nil && (m.AuthorizedApplicationID == nil || *m.AuthorizedApplicationID != *f.ApplicationID) {
			continue
		}
		return r.joined(m), nil
	}
	return nil, nil
}

// Types exposes the notification type finder.
func (r *CatalogStub) Types() port.NotificationTypeRepository { return typeFinder{r} }

// Applications exposes the application finder.
func (r *CatalogStub) Applications() port.ApplicationRepository { return appFinder{r} }

// Templates exposes the template finder.
func (r *CatalogStub) Templates() port.TemplateRepository { return templateFinder{r} }

type typeFinder struct{ r *CatalogStub }

func (f typeFinder) FindByCode(ctx context.Context, code domain.Kind) (*domain.NotificationType, error) {
	f.r.mu.RLock()
	defer f.r.mu.RUnlock()
	for _, t := range f.r.types {
		if t.Code == code {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

type appFinder struct{ r *CatalogStub }

func (f appFinder) FindByID(ctx context.Context, id int64) (*domain.AuthorizedApplication, error) {
	f.r.mu.RLock()
	defer f.r.mu.RUnlock()
	a, ok := f.r.apps[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (f appFinder) FindByToken(ctx context.Context, token string) (*domain.AuthorizedApplication, error) {
	f.r.mu.RLock()
	defer f.r.mu.RUnlock()
	for _, a := range f.r.apps {
		if a.Token == token && token != "" {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

type templateFinder struct{ r *CatalogStub }

func (f templateFinder) FindByCode(ctx context.Context, code string) (*domain.NotificationTemplate, error) {
	f.r.mu.RLock()
	defer f.r.mu.RUnlock()
	t, ok := f.r.templates[code]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

var (
	_ port.MediumRepository = (*CatalogStub)(nil)
	_ port.CatalogWriter    = (*CatalogStub)(nil)
)
