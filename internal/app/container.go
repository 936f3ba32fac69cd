// Package app wires repositories, adapters and services into a runnable container.
package app

import (
	"context"
	"net/http"

	rediscache "github.com/strogmv/notifyevents/internal/adapter/cache/redis"
	natsadapter "github.com/strogmv/notifyevents/internal/adapter/events/nats"
	"github.com/strogmv/notifyevents/internal/adapter/notifications"
	"github.com/strogmv/notifyevents/internal/adapter/repository/memory"
	"github.com/strogmv/notifyevents/internal/adapter/repository/postgres"
	"github.com/strogmv/notifyevents/internal/adapter/storage"
	"github.com/strogmv/notifyevents/internal/bootstrap"
	"github.com/strogmv/notifyevents/internal/config"
	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/auth"
	"github.com/strogmv/notifyevents/internal/pkg/circuitbreaker"
	"github.com/strogmv/notifyevents/internal/pkg/report"
	"github.com/strogmv/notifyevents/internal/pkg/templaterender"
	"github.com/strogmv/notifyevents/internal/port"
	"github.com/strogmv/notifyevents/internal/service"
	transport "github.com/strogmv/notifyevents/internal/transport/http"
	"github.com/strogmv/notifyevents/templates"
)

var dispatchKinds = []domain.Kind{domain.KindEmail, domain.KindPush, domain.KindSMS, domain.KindPushAWS}

type Container struct {
	Config  *config.Config
	Runtime *bootstrap.Runtime

	Media        port.MediumRepository
	Types        port.NotificationTypeRepository
	Applications port.ApplicationRepository
	Templates    port.TemplateRepository
	Catalog      port.CatalogWriter
	Events       port.EventRepository
	Outbox       port.OutboxRepository
	Idempotency  port.IdempotencyStore
	TxManager    port.TxManager

	// Dispatcher and Relay are nil without a NATS connection.
	Dispatcher *notifications.Dispatcher
	Relay      *natsadapter.OutboxRelay

	SvcNotificationEvents port.NotificationEvents
}

func NewContainer(ctx context.Context, cfg *config.Config, rt *bootstrap.Runtime) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Runtime: rt,
	}

	if rt.Pool != nil {
		catalog := postgres.NewCatalogRepository(rt.Pool)
		system := postgres.NewSystemRepository(rt.Pool)
		c.Media = postgres.NewMediumRepository(rt.Pool)
		c.Types = catalog.Types()
		c.Applications = catalog.Applications()
		c.Templates = catalog.Templates()
		c.Catalog = catalog
		c.Events = postgres.NewEventRepository(rt.Pool)
		c.Outbox = system
		c.Idempotency = system
		c.TxManager = postgres.NewTxManager(rt.Pool)
	} else {
		catalog := memory.NewCatalogStub()
		system := memory.NewSystemRepositoryStub()
		c.Media = catalog
		c.Types = catalog.Types()
		c.Applications = catalog.Applications()
		c.Templates = catalog.Templates()
		c.Catalog = catalog
		c.Events = memory.NewEventRepositoryStub(catalog.Applications())
		c.Outbox = system
		c.Idempotency = system
		c.TxManager = memory.TxManager{}
	}

	if rt.Redis != nil && cfg.CacheTTL > 0 {
		c.Media = rediscache.NewCachedMedia(c.Media, rt.Redis, cfg.CacheTTL)
		c.Templates = rediscache.NewCachedTemplates(c.Templates, rt.Redis, cfg.CacheTTL)
	}

	deps := service.Deps{
		Media:             c.Media,
		Types:             c.Types,
		Templates:         c.Templates,
		Events:            c.Events,
		Idempotency:       c.Idempotency,
		Renderer:          templaterender.NewRenderer(templates.FS, "mail"),
		Attachments:       storage.NewAttachmentStore(rt.Files, cfg.AttachmentKeyPrefix),
		TxManager:         c.TxManager,
		AttachmentWorkers: cfg.AttachmentWorkers,
	}

	if rt.NATS != nil {
		c.Dispatcher = notifications.NewDispatcher(cfg.DispatchTimeout, notifications.BreakerSettings{
			Threshold:   cfg.BreakerThreshold,
			Timeout:     cfg.BreakerTimeout,
			HalfOpenMax: cfg.BreakerHalfOpenMax,
		})
		for _, kind := range dispatchKinds {
			c.Dispatcher.Register(kind, natsadapter.NewRequestSink(rt.NATS, cfg.DispatchSubject, kind))
		}
		c.Relay = &natsadapter.OutboxRelay{
			Outbox:    c.Outbox,
			Publisher: rt.NATS,
			TxManager: c.TxManager,
			Interval:  cfg.OutboxPollInterval,
			BatchSize: cfg.OutboxBatchSize,
		}
		deps.Dispatcher = c.Dispatcher
		deps.Outbox = c.Outbox
	}

	c.SvcNotificationEvents = service.NewNotificationEventsImpl(deps)
	return c, nil
}

// Router builds the HTTP surface over the container's service.
func (c *Container) Router() (http.Handler, error) {
	verifier, err := auth.NewVerifier(c.Config)
	if err != nil {
		return nil, err
	}

	checks := map[string]transport.HealthCheck{}
	for name, fn := range c.Runtime.HealthChecks() {
		checks[name] = fn
	}

	var limiter *transport.RateLimiter
	if c.Runtime.Redis != nil {
		limiter = transport.NewRateLimiter(c.Runtime.Redis, c.Config.RateLimitRPS, c.Config.RateLimitBurst)
	} else {
		limiter = transport.NewRateLimiter(nil, c.Config.RateLimitRPS, c.Config.RateLimitBurst)
	}

	return transport.NewRouter(transport.RouterConfig{
		Handlers: &transport.Handlers{
			Events:        c.SvcNotificationEvents,
			Reports:       report.NewGenerator(),
			PublicBaseURL: c.Config.PublicBaseURL,
		},
		Identity: &transport.Identity{
			Verifier:     verifier,
			Applications: c.Applications,
			AdminRole:    c.Config.AdminRole,
		},
		Limiter:        limiter,
		Breaker:        circuitbreaker.NewBreaker("http", c.Config.BreakerThreshold, c.Config.BreakerTimeout, c.Config.BreakerHalfOpenMax),
		BreakerTimeout: c.Config.BreakerTimeout,
		Checks:         checks,
		CORSOrigins:    c.Config.CORSOrigins,
		RequestTimeout: c.Config.RequestTimeout,
		MaxBodyBytes:   c.Config.MaxBodyBytes,
		ServiceName:    c.Config.ServiceName,
	}), nil
}
