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

const eventColumns = `e.id, e.send_to, e.data, e.notification_medium_id, e.registered_by, e.attachments,
	e.status, e.attempts, e.last_error, e.created_at, e.updated_at`

// sortColumns maps wire sort fields to columns. Only whitelisted fields reach SQL.
var sortColumns = map[string]string{
	port.SortID:        "e.id",
	port.SortSendTo:    "e.send_to",
	port.SortStatus:    "e.status",
	port.SortAttempts:  "e.attempts",
	port.SortMedium:    "e.notification_medium_id",
	port.SortCreatedAt: "e.created_at",
	port.SortUpdatedAt: "e.updated_at",
}

type EventRepository struct {
	DB *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{DB: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, extra ...any) (*domain.NotificationEvent, error) {
	var (
		e      domain.NotificationEvent
		status int
	)
	dest := append([]any{
		&e.ID, &e.SendTo, &e.Data, &e.NotificationMediumID, &e.RegisteredBy, &e.Attachments,
		&status, &e.Attempts, &e.LastError, &e.CreatedAt, &e.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.Status = domain.EventStatus(status)
	if e.Attachments == nil {
		e.Attachments = []domain.Attachment{}
	}
	return &e, nil
}

func (r *EventRepository) Create(ctx context.Context, e *domain.NotificationEvent) error {
	exec := getExecutor(ctx, r.DB)
	attachments := e.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	err := exec.QueryRow(ctx, `
		INSERT INTO notification_events
			(send_to, data, notification_medium_id, registered_by, attachments, status, attempts, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		e.SendTo, e.Data, e.NotificationMediumID, e.RegisteredBy, attachments, int(e.Status), e.Attempts, e.LastError,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert notification event: %w", err)
	}
	return nil
}

func (r *EventRepository) FindByID(ctx context.Context, id int64) (*domain.NotificationEvent, error) {
	exec := getExecutor(ctx, r.DB)
	e, err := scanEvent(exec.QueryRow(ctx, "SELECT "+eventColumns+" FROM notification_events e WHERE e.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select notification event %d: %w", id, err)
	}
	return e, nil
}

func (r *EventRepository) Update(ctx context.Context, id int64, p port.EventPatch) (*domain.NotificationEvent, error) {
	sets, args := buildPatch(p)
	args = append(args, id)
	sql := fmt.Sprintf("UPDATE notification_events e SET %s WHERE e.id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), eventColumns)

	exec := getExecutor(ctx, r.DB)
	e, err := scanEvent(exec.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update notification event %d: %w", id, err)
	}
	return e, nil
}

// buildPatch renders the SET list of p. updated_at is always refreshed.
func buildPatch(p port.EventPatch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if p.Status != nil {
		set("status", int(*p.Status))
	}
	if p.SendTo != nil {
		set("send_to", *p.SendTo)
	}
	if p.Data != nil {
		set("data", p.Data)
	}
	if p.NotificationMediumID != nil {
		set("notification_medium_id", *p.NotificationMediumID)
	}
	switch {
	case p.LastError != nil:
		set("last_error", *p.LastError)
	case p.ClearLastError:
		sets = append(sets, "last_error = NULL")
	}
	if p.Attempts != nil {
		set("attempts", *p.Attempts)
	}
	return append(sets, "updated_at = NOW()"), args
}

func (r *EventRepository) List(ctx context.Context, q port.EventQuery) ([]domain.NotificationEvent, int64, error) {
	selectSQL, countSQL, args := buildListQuery(q)
	exec := getExecutor(ctx, r.DB)

	var total int64
	if err := exec.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notification events: %w", err)
	}

	rows, err := exec.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select notification events: %w", err)
	}
	defer rows.Close()

	items := []domain.NotificationEvent{}
	for rows.Next() {
		var (
			appID   *int64
			appName *string
			appCode *string
		)
		e, err := scanEvent(rows, &appID, &appName, &appCode)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification event: %w", err)
		}
		if q.IncludeApplication && appID != nil {
			e.Application = &domain.ApplicationSummary{ID: *appID}
			if appName != nil {
				e.Application.Name = *appName
			}
			if appCode != nil {
				e.Application.Code = *appCode
			}
		}
		items = append(items, *e)
	}
	return items, total, rows.Err()
}

// buildListQuery renders the page and count statements for q. Both share args.
func buildListQuery(q port.EventQuery) (string, string, []any) {
	var (
		where []string
		args  []any
	)
	cond := func(format string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(format, len(args)))
	}
	if q.RegisteredBy != nil {
		cond("e.registered_by = $%d", *q.RegisteredBy)
	}
	if q.SendTo != "" {
		cond("e.send_to ILIKE $%d", "%"+escapeLike(q.SendTo)+"%")
	}
	if q.Status != nil {
		cond("e.status = $%d", int(*q.Status))
	}
	if q.CreatedFrom != nil {
		cond("e.created_at >= $%d", *q.CreatedFrom)
	}
	if q.CreatedTo != nil {
		cond("e.created_at <= $%d", *q.CreatedTo)
	}

	from := " FROM notification_events e"
	if len(where) > 0 {
		from += " WHERE " + strings.Join(where, " AND ")
	}
	countSQL := "SELECT COUNT(*)" + from

	specs := q.Sort
	if len(specs) == 0 {
		specs = []port.SortSpec{{Field: port.SortID}}
	}
	order := make([]string, 0, len(specs)+1)
	hasID := false
	for _, s := range specs {
		col, ok := sortColumns[s.Field]
		if !ok {
			continue
		}
		hasID = hasID || s.Field == port.SortID
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		order = append(order, col+" "+dir)
	}
	if !hasID {
		order = append(order, "e.id ASC")
	}

	selectSQL := "SELECT " + eventColumns + ", a.id, a.name, a.code" +
		" FROM notification_events e LEFT JOIN authorized_applications a ON a.id = e.registered_by"
	if len(where) > 0 {
		selectSQL += " WHERE " + strings.Join(where, " AND ")
	}
	selectSQL += " ORDER BY " + strings.Join(order, ", ")
	if q.Limit > 0 {
		selectSQL += fmt.Sprintf(" LIMIT %d OFFSET %d", q.Limit, q.Offset)
	}
	return selectSQL, countSQL, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

var _ port.EventRepository = (*EventRepository)(nil)
