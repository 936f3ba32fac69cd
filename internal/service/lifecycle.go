package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/port"
)

// Update overwrites the supplied mutable fields of an event. The payload contract
// of the target medium is re-checked whenever data, recipients or medium change.
func (s *NotificationEventsImpl) Update(ctx context.Context, req port.UpdateEventRequest) (domain.NotificationEvent, error) {
	const method = "Update"
	ctx, span, l := s.start(ctx, method, req.Caller)
	defer span.End()

	ev, err := s.loadEvent(ctx, req.ID)
	if err != nil {
		return domain.NotificationEvent{}, fail(l, span, method, err)
	}

	current, err := s.mediumByID(ctx, ev.NotificationMediumID)
	if err != nil {
		return domain.NotificationEvent{}, fail(l, span, method, err)
	}
	if err := guard(req.Caller, current); err != nil {
		return domain.NotificationEvent{}, fail(l, span, method, err)
	}

	target := current
	if req.NotificationMediumID != nil && *req.NotificationMediumID != current.ID {
		if target, err = s.mediumByID(ctx, *req.NotificationMediumID); err != nil {
			return domain.NotificationEvent{}, fail(l, span, method, err)
		}
		if err := guard(req.Caller, target); err != nil {
			return domain.NotificationEvent{}, fail(l, span, method, err)
		}
	}

	patch := port.EventPatch{Attempts: req.Attempts}
	if req.Status != nil {
		next := domain.EventStatus(*req.Status)
		if !next.Valid() {
			return domain.NotificationEvent{}, fail(l, span, method,
				errors.BadRequest(domain.CodeInvalidStatus, fmt.Sprintf("unknown status %d", *req.Status)))
		}
		if !ev.Status.CanTransition(next) {
			return domain.NotificationEvent{}, fail(l, span, method,
				errors.BadRequest(domain.CodeInvalidTransition, fmt.Sprintf("cannot move event from %s to %s", ev.Status, next)))
		}
		patch.Status = &next
	}
	if req.Attempts != nil && *req.Attempts < 0 {
		return domain.NotificationEvent{}, fail(l, span, method,
			errors.BadRequest(domain.CodeInvalidAttempts, "attempts must not be negative"))
	}

	if req.Data != nil || req.SendTo != nil || target.ID != current.ID {
		sendTo := req.SendTo
		if sendTo == nil {
			sendTo = port.SplitRecipients(ev.SendTo)
		}
		data := req.Data
		if data == nil {
			data = ev.Data
		}
		if err := s.payloads.Validate(target.Kind, sendTo, data); err != nil {
			return domain.NotificationEvent{}, fail(l, span, method, err)
		}
		if req.SendTo != nil {
			joined := sendTo.Join()
			patch.SendTo = &joined
		}
		patch.Data = req.Data
		if target.ID != current.ID {
			patch.NotificationMediumID = &target.ID
		}
	}

	switch {
	case req.LastError.Set && req.LastError.Null:
		patch.ClearLastError = true
	case req.LastError.Set:
		v := req.LastError.Value
		patch.LastError = &v
	}

	if patch.Empty() {
		return *ev, nil
	}
	updated, err := s.Events.Update(ctx, ev.ID, patch)
	if err != nil {
		return domain.NotificationEvent{}, fail(l, span, method, errors.Processing(domain.CodeUpdateEvent, err))
	}
	if updated == nil {
		return domain.NotificationEvent{}, fail(l, span, method,
			errors.NotFound(domain.CodeNoQueriedData, fmt.Sprintf("event %d does not exist", ev.ID)))
	}
	l.Info("Notification event updated", slog.Int64("event_id", ev.ID))
	return *updated, nil
}

// Resend resets an event to pending with no attempts and no last error.
func (s *NotificationEventsImpl) Resend(ctx context.Context, req port.ResendEventRequest) (domain.NotificationEvent, error) {
	const method = "Resend"
	ctx, span, l := s.start(ctx, method, req.Caller)
	defer span.End()

	ev, err := s.loadEvent(ctx, req.ID)
	if err != nil {
		return domain.NotificationEvent{}, fail(l, span, method, err)
	}
	if !req.Caller.Admin && !req.IncludeAll {
		m, err := s.mediumByID(ctx, ev.NotificationMediumID)
		if err != nil {
			return domain.NotificationEvent{}, fail(l, span, method, err)
		}
		if err := guard(req.Caller, m); err != nil {
			return domain.NotificationEvent{}, fail(l, span, method, err)
		}
	}

	pending := domain.StatusPending
	zero := 0
	var updated *domain.NotificationEvent
	err = s.withTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.Events.Update(ctx, ev.ID, port.EventPatch{
			Status:         &pending,
			Attempts:       &zero,
			ClearLastError: true,
		})
		if err != nil || updated == nil {
			return err
		}
		return s.enqueue(ctx, domain.TopicEventRequeued, domain.EventRequeued{
			EventID:        ev.ID,
			MediumID:       ev.NotificationMediumID,
			PreviousStatus: ev.Status,
		})
	})
	if err != nil {
		return domain.NotificationEvent{}, fail(l, span, method, errors.Processing(domain.CodeUpdateEvent, err))
	}
	if updated == nil {
		return domain.NotificationEvent{}, fail(l, span, method,
			errors.NotFound(domain.CodeNoQueriedData, fmt.Sprintf("event %d does not exist", ev.ID)))
	}
	eventsRequeued.Inc()
	l.Info("Notification event requeued", slog.Int64("event_id", ev.ID), slog.String("previous_status", ev.Status.String()))
	return *updated, nil
}
