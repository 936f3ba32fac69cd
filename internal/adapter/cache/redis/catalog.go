package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/logger"
	"github.com/strogmv/notifyevents/internal/port"
)

const keyPrefix = "notifyevents:"

// mediumEntry is the cached form of a medium. It keeps the bound token, which the
// domain type hides from JSON.
type mediumEntry struct {
	ID                      int64   `json:"id"`
	NotificationTypeID      int64   `json:"notificationTypeId"`
	Kind                    string  `json:"kind"`
	Name                    string  `json:"name"`
	Active                  bool    `json:"active"`
	AuthorizedApplicationID *int64  `json:"authorizedApplicationId,omitempty"`
	ApplicationToken        *string `json:"applicationToken,omitempty"`
}

func toEntry(m *domain.DeliveryMedium) mediumEntry {
	return mediumEntry{
		ID:                      m.ID,
		NotificationTypeID:      m.NotificationTypeID,
		Kind:                    string(m.Kind),
		Name:                    m.Name,
		Active:                  m.Active,
		AuthorizedApplicationID: m.AuthorizedApplicationID,
		ApplicationToken:        m.ApplicationToken,
	}
}

func (e mediumEntry) medium() *domain.DeliveryMedium {
	return &domain.DeliveryMedium{
		ID:                      e.ID,
		NotificationTypeID:      e.NotificationTypeID,
		Kind:                    domain.Kind(e.Kind),
		Name:                    e.Name,
		Active:                  e.Active,
		AuthorizedApplicationID: e.AuthorizedApplicationID,
		ApplicationToken:        e.ApplicationToken,
	}
}

// readThrough serves key from Redis or loads it with load. Only non-nil results are
// stored, and Redis failures degrade to the loader.
func readThrough[T any](ctx context.Context, rdb redis.Cmdable, ttl time.Duration, key string, load func() (*T, error)) (*T, error) {
	raw, err := rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return &v, nil
		}
		logger.From(ctx).Warn("Dropping undecodable cache entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		logger.From(ctx).Warn("Cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	v, err := load()
	if err != nil || v == nil {
		return v, err
	}
	if payload, err := json.Marshal(v); err == nil {
		if err := rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
			logger.From(ctx).Warn("Cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return v, nil
}

// CachedMedia caches medium lookups.
type CachedMedia struct {
	base port.MediumRepository
	rdb  redis.Cmdable
	ttl  time.Duration
}

func NewCachedMedia(base port.MediumRepository, rdb redis.Cmdable, ttl time.Duration) *CachedMedia {
	return &CachedMedia{base: base, rdb: rdb, ttl: ttl}
}

func (c *CachedMedia) FindByID(ctx context.Context, id int64) (*domain.DeliveryMedium, error) {
	e, err := readThrough(ctx, c.rdb, c.ttl, keyPrefix+"medium:id:"+strconv.FormatInt(id, 10), func() (*mediumEntry, error) {
		m, err := c.base.FindByID(ctx, id)
		if err != nil || m == nil {
			return nil, err
		}
		entry := toEntry(m)
		return &entry, nil
	})
	if err != nil || e == nil {
		return nil, err
	}
	return e.medium(), nil
}

func (c *CachedMedia) FindFirstActive(ctx context.Context, f port.MediumFilter) (*domain.DeliveryMedium, error) {
	e, err := readThrough(ctx, c.rdb, c.ttl, keyPrefix+"medium:first:"+filterKey(f), func() (*mediumEntry, error) {
		m, err := c.base.FindFirstActive(ctx, f)
		if err != nil || m == nil {
			return nil, err
		}
		entry := toEntry(m)
		return &entry, nil
	})
	if err != nil || e == nil {
		return nil, err
	}
	return e.medium(), nil
}

func filterKey(f port.MediumFilter) string {
	app := "*"
	if f.ApplicationID != nil {
		app = strconv.FormatInt(*f.ApplicationID, 10)
	}
	return fmt.Sprintf("name=%s|type=%d|app=%s", f.Name, f.NotificationTypeID, app)
}

// CachedTemplates caches template lookups by code.
type CachedTemplates struct {
	base port.TemplateRepository
	rdb  redis.Cmdable
	ttl  time.Duration
}

func NewCachedTemplates(base port.TemplateRepository, rdb redis.Cmdable, ttl time.Duration) *CachedTemplates {
	return &CachedTemplates{base: base, rdb: rdb, ttl: ttl}
}

func (c *CachedTemplates) FindByCode(ctx context.Context, code string) (*domain.NotificationTemplate, error) {
	return readThrough(ctx, c.rdb, c.ttl, keyPrefix+"template:"+code, func() (*domain.NotificationTemplate, error) {
		return c.base.FindByCode(ctx, code)
	})
}

var (
	_ port.MediumRepository   = (*CachedMedia)(nil)
	_ port.TemplateRepository = (*CachedTemplates)(nil)
)
