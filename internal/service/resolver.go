package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/port"
)

// mediumHint carries the caller's channel selection. Precedence is ID, then Name, then Kind.
type mediumHint struct {
	ID   *int64
	Name string
	Kind domain.Kind
}

func (h mediumHint) empty() bool {
	return h.ID == nil && h.Name == "" && h.Kind == ""
}

// resolveMedium maps a hint to a single medium.
func (s *NotificationEventsImpl) resolveMedium(ctx context.Context, caller port.Caller, h mediumHint) (*domain.DeliveryMedium, error) {
	switch {
	case h.ID != nil:
		return s.mediumByID(ctx, *h.ID)
	case h.Name != "":
		m, err := s.Media.FindFirstActive(ctx, port.MediumFilter{
			Name:          h.Name,
			ApplicationID: caller.ApplicationRef(),
		})
		if err != nil {
			return nil, errors.Processing(domain.CodeNoMedium, fmt.Errorf("find medium %q: %w", h.Name, err))
		}
		if m == nil {
			return nil, errors.NotFound(domain.CodeNoMedium, fmt.Sprintf("no active medium named %q", h.Name))
		}
		return m, nil
	case h.Kind != "":
		nt, err := s.Types.FindByCode(ctx, h.Kind)
		if err != nil {
			return nil, errors.Processing(domain.CodeNoMediumType, fmt.Errorf("find notification type %q: %w", h.Kind, err))
		}
		if nt == nil {
			return nil, errors.NotFound(domain.CodeNoMediumType, fmt.Sprintf("notification type %q does not exist", h.Kind))
		}
		m, err := s.Media.FindFirstActive(ctx, port.MediumFilter{
			NotificationTypeID: nt.ID,
			ApplicationID:      caller.ApplicationRef(),
		})
		if err != nil {
			return nil, errors.Processing(domain.CodeNoMedium, fmt.Errorf("find medium of type %q: %w", h.Kind, err))
		}
		if m == nil {
			return nil, errors.NotFound(domain.CodeNoMedium, fmt.Sprintf("no active medium of type %q", h.Kind))
		}
		return m, nil
	default:
		return nil, errors.BadRequest(domain.CodeNoMediumType, "notificationMediumId, notificationMediumName or type is required")
	}
}

func (s *NotificationEventsImpl) mediumByID(ctx context.Context, id int64) (*domain.DeliveryMedium, error) {
	m, err := s.Media.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Processing(domain.CodeNoMedium, fmt.Errorf("find medium %d: %w", id, err))
	}
	if m == nil {
		return nil, errors.NotFound(domain.CodeNoMedium, fmt.Sprintf("medium %d does not exist", id))
	}
	return m, nil
}

// guard rejects non-admin callers whose token differs from the medium's bound application token.
func guard(caller port.Caller, m *domain.DeliveryMedium) error {
	if caller.Admin {
		return nil
	}
	if m.ApplicationToken == nil || caller.Token == "" {
		return errors.Forbidden(domain.CodeNoTokenMatch, fmt.Sprintf("medium %d is not bound to an application", m.ID))
	}
	if subtle.ConstantTimeCompare([]byte(*m.ApplicationToken), []byte(caller.Token)) != 1 {
		return errors.Forbidden(domain.CodeNoTokenMatch, fmt.Sprintf("token does not match medium %d", m.ID))
	}
	return nil
}

func hintFromRequest(req port.CreateEventRequest) mediumHint {
	return mediumHint{
		ID:   req.NotificationMediumID,
		Name: strings.TrimSpace(req.NotificationMediumName),
		Kind: domain.Kind(strings.TrimSpace(req.Type)),
	}
}
