package port

import (
	"context"
	"time"

	"github.com/strogmv/notifyevents/internal/domain"
)

// Finders return (nil, nil) when no row matches.

// MediumFilter narrows FindFirstActive. Zero fields are ignored.
type MediumFilter struct {
	Name               string
	NotificationTypeID int64
	ApplicationID      *int64
}

type MediumRepository interface {
	// FindByID loads the medium with its kind code and bound application token.
	FindByID(ctx context.Context, id int64) (*domain.DeliveryMedium, error)
	// FindFirstActive returns the lowest-id active medium matching f.
	FindFirstActive(ctx context.Context, f MediumFilter) (*domain.DeliveryMedium, error)
}

type NotificationTypeRepository interface {
	FindByCode(ctx context.Context, code domain.Kind) (*domain.NotificationType, error)
}

type ApplicationRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.AuthorizedApplication, error)
	FindByToken(ctx context.Context, token string) (*domain.AuthorizedApplication, error)
}

type TemplateRepository interface {
	// FindByCode loads the template with its kind code.
	FindByCode(ctx context.Context, code string) (*domain.NotificationTemplate, error)
}

// EventPatch lists the mutable fields of an event. Nil fields are left untouched.
type EventPatch struct {
	Status               *domain.EventStatus
	SendTo               *string
	Data                 map[string]any
	NotificationMediumID *int64
	LastError            *string
	ClearLastError       bool
	Attempts             *int
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Status == nil && p.SendTo == nil && p.Data == nil && p.NotificationMediumID == nil &&
		p.LastError == nil && !p.ClearLastError && p.Attempts == nil
}

// Sortable event fields, keyed by their wire names.
const (
	SortID        = "id"
	SortSendTo    = "sendTo"
	SortStatus    = "status"
	SortAttempts  = "attempts"
	SortMedium    = "notificationMediumId"
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
)

var SortableFields = map[string]bool{
	SortID:        true,
	SortSendTo:    true,
	SortStatus:    true,
	SortAttempts:  true,
	SortMedium:    true,
	SortCreatedAt: true,
	SortUpdatedAt: true,
}

type SortSpec struct {
	Field string
	Desc  bool
}

// EventQuery is the repository-level listing query. Limit 0 means no limit.
type EventQuery struct {
	RegisteredBy       *int64
	SendTo             string
	Status             *domain.EventStatus
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
	Sort               []SortSpec
	Offset             int
	Limit              int
	IncludeApplication bool
}

type EventRepository interface {
	// Create inserts e and fills its ID and timestamps.
	Create(ctx context.Context, e *domain.NotificationEvent) error
	FindByID(ctx context.Context, id int64) (*domain.NotificationEvent, error)
	Update(ctx context.Context, id int64, patch EventPatch) (*domain.NotificationEvent, error)
	// List returns the requested page and the total number of matching rows.
	List(ctx context.Context, q EventQuery) ([]domain.NotificationEvent, int64, error)
}
