package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/port"
)

const mediumSelect = `
SELECT m.id, m.notification_type_id, t.code, m.name, m.active, m.authorized_application_id, a.token
FROM notification_media m
JOIN notification_types t ON t.id = m.notification_type_id
LEFT JOIN authorized_applications a ON a.id = m.authorized_application_id`

type MediumRepository struct {
	DB *pgxpool.Pool
}

func NewMediumRepository(pool *pgxpool.Pool) *MediumRepository {
	return &MediumRepository{DB: pool}
}

func scanMedium(row pgx.Row) (*domain.DeliveryMedium, error) {
	var (
		m    domain.DeliveryMedium
		kind string
	)
	if err := row.Scan(&m.ID, &m.NotificationTypeID, &kind, &m.Name, &m.Active, &m.AuthorizedApplicationID, &m.ApplicationToken); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Kind = domain.Kind(kind)
	return &m, nil
}

func (r *MediumRepository) FindByID(ctx context.Context, id int64) (*domain.DeliveryMedium, error) {
	exec := getExecutor(ctx, r.DB)
	m, err := scanMedium(exec.QueryRow(ctx, mediumSelect+" WHERE m.id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("select medium %d: %w", id, err)
	}
	return m, nil
}

func (r *MediumRepository) FindFirstActive(ctx context.Context, f port.MediumFilter) (*domain.DeliveryMedium, error) {
	sql, args := buildMediumFilter(f)
	exec := getExecutor(ctx, r.DB)
	m, err := scanMedium(exec.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, fmt.Errorf("select first active medium: %w", err)
	}
	return m, nil
}

func buildMediumFilter(f port.MediumFilter) (string, []any) {
	where := []string{"m.active"}
	var args []any
	if f.Name != "" {
		args = append(args, f.Name)
		where = append(where, fmt.Sprintf("m.name = $%d", len(args)))
	}
	if f.NotificationTypeID != 0 {
		args = append(args, f.NotificationTypeID)
		where = append(where, fmt.Sprintf("m.notification_type_id = $%d", len(args)))
	}
	if f.ApplicationID != nil {
		args = append(args, *f.ApplicationID)
		where = append(where, fmt.Sprintf("m.authorized_application_id = $%d", len(args)))
	}
	return mediumSelect + " WHERE " + strings.Join(where, " AND ") + " ORDER BY m.id ASC LIMIT 1", args
}

var _ port.MediumRepository = (*MediumRepository)(nil)
