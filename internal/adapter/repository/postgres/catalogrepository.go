package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/port"
)

// CatalogRepository reads and writes notification types, applications and templates.
type CatalogRepository struct {
	DB *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{DB: pool}
}

// Types exposes the notification type finder.
func (r *CatalogRepository) Types() port.NotificationTypeRepository { return typeRepository{r} }

// Applications exposes the application finder.
func (r *CatalogRepository) Applications() port.ApplicationRepository { return applicationRepository{r} }

// Templates exposes the template finder.
func (r *CatalogRepository) Templates() port.TemplateRepository { return templateRepository{r} }

type typeRepository struct{ r *CatalogRepository }

func (t typeRepository) FindByCode(ctx context.Context, code domain.Kind) (*domain.NotificationType, error) {
	exec := getExecutor(ctx, t.r.DB)
	var (
		nt  domain.NotificationType
		raw string
	)
	err := exec.QueryRow(ctx, "SELECT id, code, name FROM notification_types WHERE code = $1", string(code)).
		Scan(&nt.ID, &raw, &nt.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select notification type %q: %w", code, err)
	}
	nt.Code = domain.Kind(raw)
	return &nt, nil
}

type applicationRepository struct{ r *CatalogRepository }

func (a applicationRepository) find(ctx context.Context, where string, arg any) (*domain.AuthorizedApplication, error) {
	exec := getExecutor(ctx, a.r.DB)
	var app domain.AuthorizedApplication
	err := exec.QueryRow(ctx, "SELECT id, name, code, token FROM authorized_applications WHERE "+where, arg).
		Scan(&app.ID, &app.Name, &app.Code, &app.Token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select authorized application: %w", err)
	}
	return &app, nil
}

func (a applicationRepository) FindByID(ctx context.Context, id int64) (*domain.AuthorizedApplication, error) {
	return a.find(ctx, "id = $1", id)
}

func (a applicationRepository) FindByToken(ctx context.Context, token string) (*domain.AuthorizedApplication, error) {
	if token == "" {
		return nil, nil
	}
	return a.find(ctx, "token = $1", token)
}

type templateRepository struct{ r *CatalogRepository }

func (t templateRepository) FindByCode(ctx context.Context, code string) (*domain.NotificationTemplate, error) {
	exec := getExecutor(ctx, t.r.DB)
	var (
		tpl  domain.NotificationTemplate
		kind string
	)
	err := exec.QueryRow(ctx, `
		SELECT n.id, n.code, t.code, n.subject, n.route, n.template_data
		FROM notification_templates n
		JOIN notification_types t ON t.id = n.notification_type_id
		WHERE n.code = $1`, code).
		Scan(&tpl.ID, &tpl.Code, &kind, &tpl.Subject, &tpl.Route, &tpl.TemplateData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select template %q: %w", code, err)
	}
	tpl.Kind = domain.Kind(kind)
	return &tpl, nil
}

// ---------- CatalogWriter ----------

func (r *CatalogRepository) UpsertType(ctx context.Context, t *domain.NotificationType) error {
	exec := getExecutor(ctx, r.DB)
	return exec.QueryRow(ctx, `
		INSERT INTO notification_types (code, name) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, string(t.Code), t.Name).Scan(&t.ID)
}

func (r *CatalogRepository) UpsertApplication(ctx context.Context, a *domain.AuthorizedApplication) error {
	exec := getExecutor(ctx, r.DB)
	return exec.QueryRow(ctx, `
		INSERT INTO authorized_applications (name, code, token) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, token = EXCLUDED.token
		RETURNING id`, a.Name, a.Code, a.Token).Scan(&a.ID)
}

func (r *CatalogRepository) UpsertMedium(ctx context.Context, m *domain.DeliveryMedium) error {
	exec := getExecutor(ctx, r.DB)
	return exec.QueryRow(ctx, `
		INSERT INTO notification_media (name, notification_type_id, authorized_application_id, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			notification_type_id = EXCLUDED.notification_type_id,
			authorized_application_id = EXCLUDED.authorized_application_id,
			active = EXCLUDED.active
		RETURNING id`, m.Name, m.NotificationTypeID, m.AuthorizedApplicationID, m.Active).Scan(&m.ID)
}

func (r *CatalogRepository) UpsertTemplate(ctx context.Context, t *domain.NotificationTemplate) error {
	exec := getExecutor(ctx, r.DB)
	data := t.TemplateData
	if data == nil {
		data = map[string]any{}
	}
	return exec.QueryRow(ctx, `
		INSERT INTO notification_templates (code, notification_type_id, subject, route, template_data)
		VALUES ($1, (SELECT id FROM notification_types WHERE code = $2), $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			notification_type_id = EXCLUDED.notification_type_id,
			subject = EXCLUDED.subject,
			route = EXCLUDED.route,
			template_data = EXCLUDED.template_data
		RETURNING id`, t.Code, string(t.Kind), t.Subject, t.Route, data).Scan(&t.ID)
}

var _ port.CatalogWriter = (*CatalogRepository)(nil)
