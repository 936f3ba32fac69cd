package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/pkg/logger"
	"github.com/strogmv/notifyevents/internal/port"
)

const serviceName = "NotificationEvents"

var tracer = otel.Tracer("github.com/strogmv/notifyevents/internal/service")

// Deps lists the collaborators of NotificationEventsImpl.
// Outbox, Idempotency, Dispatcher and Attachments are optional.
type Deps struct {
	Media             port.MediumRepository
	Types             port.NotificationTypeRepository
	Templates         port.TemplateRepository
	Events            port.EventRepository
	Outbox            port.OutboxRepository
	Idempotency       port.IdempotencyStore
	Renderer          port.TemplateRenderer
	Attachments       port.AttachmentStore
	Dispatcher        port.LiveDispatcher
	TxManager         port.TxManager
	AttachmentWorkers int
}

type NotificationEventsImpl struct {
	Media       port.MediumRepository
	Types       port.NotificationTypeRepository
	Templates   port.TemplateRepository
	Events      port.EventRepository
	Outbox      port.OutboxRepository
	Idempotency port.IdempotencyStore
	Renderer    port.TemplateRenderer
	Attachments port.AttachmentStore
	Dispatcher  port.LiveDispatcher

	txManager         port.TxManager
	payloads          *PayloadValidator
	attachmentWorkers int
}

func NewNotificationEventsImpl(d Deps) *NotificationEventsImpl {
	workers := d.AttachmentWorkers
	if workers <= 0 {
		workers = 4
	}
	return &NotificationEventsImpl{
		Media:             d.Media,
		Types:             d.Types,
		Templates:         d.Templates,
		Events:            d.Events,
		Outbox:            d.Outbox,
		Idempotency:       d.Idempotency,
		Renderer:          d.Renderer,
		Attachments:       d.Attachments,
		Dispatcher:        d.Dispatcher,
		txManager:         d.TxManager,
		payloads:          NewPayloadValidator(),
		attachmentWorkers: workers,
	}
}

var _ port.NotificationEvents = (*NotificationEventsImpl)(nil)

func (s *NotificationEventsImpl) start(ctx context.Context, method string, caller port.Caller) (context.Context, trace.Span, *slog.Logger) {
	ctx, span := tracer.Start(ctx, serviceName+"."+method, trace.WithAttributes(
		attribute.Bool("caller.admin", caller.Admin),
		attribute.Int64("caller.application_id", caller.ApplicationID),
	))
	l := logger.From(ctx).With(slog.String("service", serviceName), slog.String("method", method))
	return ctx, span, l
}

// fail logs err with the rule that produced it and records it on the span.
func fail(l *slog.Logger, span trace.Span, method string, err error) error {
	code := "unknown"
	status := http.StatusInternalServerError
	if e, ok := errors.As(err); ok {
		code = e.Code
		status = e.Status
	}
	eventsRejected.WithLabelValues(method, code).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	if status >= http.StatusInternalServerError {
		l.Error("Operation failed", slog.String("rule", code), slog.Any("error", err))
	} else {
		l.Warn("Request rejected", slog.String("rule", code), slog.Any("error", err))
	}
	return err
}

func (s *NotificationEventsImpl) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txManager == nil {
		return fn(ctx)
	}
	return s.txManager.WithTx(ctx, fn)
}

type idempotencyRecord struct {
	EventID int64 `json:"eventId"`
}

func idempotencyScope(caller port.Caller, key string) string {
	if caller.Admin {
		return "admin:" + key
	}
	return "app:" + strconv.FormatInt(caller.ApplicationID, 10) + ":" + key
}

func (s *NotificationEventsImpl) Create(ctx context.Context, req port.CreateEventRequest) (resp port.CreateEventResult, err error) {
	const method = "Create"
	ctx, span, l := s.start(ctx, method, req.Caller)
	defer span.End()

	if req.IdempotencyKey != "" && s.Idempotency != nil {
		replayed, err := s.replay(ctx, idempotencyScope(req.Caller, req.IdempotencyKey))
		if err != nil {
			return resp, fail(l, span, method, err)
		}
		if replayed != nil {
			l.Info("Idempotent replay", slog.Int64("event_id", replayed.ID))
			return port.CreateEventResult{Event: *replayed, Replayed: true}, nil
		}
	}

	// The template is read before the guard only when its kind selects the medium.
	var tpl *domain.NotificationTemplate
	hint := hintFromRequest(req)
	if hint.empty() && req.Data == nil {
		if tpl, err = s.loadTemplate(ctx, req.TemplateCode, req.Context); err != nil {
			return resp, fail(l, span, method, err)
		}
		hint.Kind = tpl.Kind
	}
	medium, err := s.resolveMedium(ctx, req.Caller, hint)
	if err != nil {
		return resp, fail(l, span, method, err)
	}
	if err := guard(req.Caller, medium); err != nil {
		return resp, fail(l, span, method, err)
	}
	span.SetAttributes(attribute.Int64("medium.id", medium.ID), attribute.String("medium.kind", string(medium.Kind)))

	data := req.Data
	if data == nil && tpl == nil {
		if tpl, err = s.loadTemplate(ctx, req.TemplateCode, req.Context); err != nil {
			return resp, fail(l, span, method, err)
		}
	}
	if tpl != nil {
		if data, err = s.buildFromTemplate(ctx, tpl, req.Context); err != nil {
			return resp, fail(l, span, method, err)
		}
	}
	if err := s.payloads.Validate(medium.Kind, req.SendTo, data); err != nil {
		return resp, fail(l, span, method, err)
	}

	attachments, err := s.normalizeAttachments(ctx, req.Attachments)
	if err != nil {
		return resp, fail(l, span, method, err)
	}

	event := &domain.NotificationEvent{
		SendTo:               req.SendTo.Join(),
		Data:                 data,
		NotificationMediumID: medium.ID,
		RegisteredBy:         req.Caller.ApplicationRef(),
		Attachments:          attachments,
		Status:               domain.StatusPending,
	}
	err = s.withTx(ctx, func(ctx context.Context) error {
		if err := s.Events.Create(ctx, event); err != nil {
			return err
		}
		if err := s.enqueue(ctx, domain.TopicEventQueued, domain.EventQueued{
			EventID: event.ID, MediumID: medium.ID, Kind: medium.Kind, Live: req.IsLive,
		}); err != nil {
			return err
		}
		if req.IdempotencyKey != "" && s.Idempotency != nil {
			rec, _ := json.Marshal(idempotencyRecord{EventID: event.ID})
			return s.Idempotency.Save(ctx, idempotencyScope(req.Caller, req.IdempotencyKey), rec)
		}
		return nil
	})
	if stderrors.Is(err, port.ErrIdempotencyKeyExists) {
		// A concurrent request with the same key committed first.
		replayed, rerr := s.replay(ctx, idempotencyScope(req.Caller, req.IdempotencyKey))
		if rerr != nil {
			return resp, fail(l, span, method, rerr)
		}
		if replayed != nil {
			l.Info("Idempotent replay after concurrent create", slog.Int64("event_id", replayed.ID))
			return port.CreateEventResult{Event: *replayed, Replayed: true}, nil
		}
	}
	if err != nil {
		return resp, fail(l, span, method, errors.Processing(domain.CodeRegisterEvent, err))
	}
	eventsCreated.WithLabelValues(string(medium.Kind)).Inc()
	span.SetAttributes(attribute.Int64("event.id", event.ID))
	l.Info("Notification event registered", slog.Int64("event_id", event.ID), slog.Int64("medium_id", medium.ID))

	resp.Event = *event
	if req.IsLive {
		resp.Dispatch = s.dispatchLive(ctx, l, *event, medium.Kind)
	}
	return resp, nil
}

func (s *NotificationEventsImpl) replay(ctx context.Context, key string) (*domain.NotificationEvent, error) {
	found, raw, err := s.Idempotency.Check(ctx, key)
	if err != nil {
		return nil, errors.Processing(domain.CodeRegisterEvent, fmt.Errorf("check idempotency key: %w", err))
	}
	if !found {
		return nil, nil
	}
	var rec idempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Processing(domain.CodeRegisterEvent, fmt.Errorf("decode idempotency record: %w", err))
	}
	ev, err := s.Events.FindByID(ctx, rec.EventID)
	if err != nil {
		return nil, errors.Processing(domain.CodeRegisterEvent, fmt.Errorf("load replayed event: %w", err))
	}
	return ev, nil
}

// enqueue records a lifecycle notice in the outbox of the current transaction.
func (s *NotificationEventsImpl) enqueue(ctx context.Context, topic string, notice any) error {
	if s.Outbox == nil {
		return nil
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	if err := s.Outbox.SaveEvent(ctx, uuid.NewString(), topic, payload); err != nil {
		return fmt.Errorf("save %s to outbox: %w", topic, err)
	}
	return nil
}

// dispatchLive hands a persisted event to synchronous delivery. Failures never undo the write.
func (s *NotificationEventsImpl) dispatchLive(ctx context.Context, l *slog.Logger, event domain.NotificationEvent, kind domain.Kind) *port.DispatchOutcome {
	if s.Dispatcher == nil {
		liveDispatches.WithLabelValues(string(kind), "unconfigured").Inc()
		l.Error("Live dispatch unavailable", slog.Int64("event_id", event.ID), slog.String("rule", domain.CodeLiveDispatch))
		return &port.DispatchOutcome{Code: domain.CodeLiveDispatch, Detail: "live dispatch is not configured"}
	}
	if err := s.Dispatcher.DispatchNow(ctx, event, kind); err != nil {
		liveDispatches.WithLabelValues(string(kind), "failed").Inc()
		l.Error("Live dispatch failed", slog.Int64("event_id", event.ID), slog.String("rule", domain.CodeLiveDispatch), slog.Any("error", err))
		return &port.DispatchOutcome{Code: domain.CodeLiveDispatch, Detail: err.Error()}
	}
	liveDispatches.WithLabelValues(string(kind), "delivered").Inc()
	return &port.DispatchOutcome{Delivered: true}
}

func (s *NotificationEventsImpl) Get(ctx context.Context, req port.GetEventRequest) (domain.NotificationEvent, error) {
	const method = "Get"
	ctx, span, l := s.start(ctx, method, req.Caller)
	defer span.End()

	ev, err := s.loadEvent(ctx, req.ID)
	if err != nil {
		return domain.NotificationEvent{}, fail(l, span, method, err)
	}
	if !req.Caller.Admin && (ev.RegisteredBy == nil || *ev.RegisteredBy != req.Caller.ApplicationID) {
		return domain.NotificationEvent{}, fail(l, span, method,
			errors.NotFound(domain.CodeNoQueriedData, fmt.Sprintf("event %d does not exist", req.ID)))
	}
	return *ev, nil
}

func (s *NotificationEventsImpl) loadEvent(ctx context.Context, id int64) (*domain.NotificationEvent, error) {
	if id <= 0 {
		return nil, errors.BadRequest(domain.CodeNoID, "id must be a positive integer")
	}
	ev, err := s.Events.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Processing(domain.CodeQueryEvents, fmt.Errorf("find event %d: %w", id, err))
	}
	if ev == nil {
		return nil, errors.NotFound(domain.CodeNoQueriedData, fmt.Sprintf("event %d does not exist", id))
	}
	return ev, nil
}
