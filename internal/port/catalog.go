package port

import (
	"context"

	"github.com/strogmv/notifyevents/internal/domain"
)

// CatalogWriter upserts configuration entities by their natural keys and fills in their IDs.
// Types and templates are keyed by code, applications by code and media by name.
type CatalogWriter interface {
	UpsertType(ctx context.Context, t *domain.NotificationType) error
	UpsertApplication(ctx context.Context, a *domain.AuthorizedApplication) error
	UpsertMedium(ctx context.Context, m *domain.DeliveryMedium) error
	UpsertTemplate(ctx context.Context, t *domain.NotificationTemplate) error
}
