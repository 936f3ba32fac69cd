package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/port"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	dayLayout        = "2006-01-02"
)

// List returns events matching the query, scoped to the caller unless admin or all-scope.
func (s *NotificationEventsImpl) List(ctx context.Context, req port.ListEventsRequest) (port.ListEventsResult, error) {
	const method = "List"
	ctx, span, l := s.start(ctx, method, req.Caller)
	defer span.End()

	q, err := buildEventQuery(req)
	if err != nil {
		return port.ListEventsResult{}, fail(l, span, method, err)
	}
	paginated := strings.TrimSpace(req.Skip) != ""

	events, total, err := s.Events.List(ctx, q)
	if err != nil {
		return port.ListEventsResult{}, fail(l, span, method, errors.Processing(domain.CodeQueryEvents, err))
	}
	if events == nil {
		events = []domain.NotificationEvent{}
	}

	res := port.ListEventsResult{Events: events}
	if paginated {
		res.Paginate = paginate(total, q.Offset, q.Limit)
	}
	return res, nil
}

func buildEventQuery(req port.ListEventsRequest) (port.EventQuery, error) {
	q := port.EventQuery{
		SendTo:             strings.TrimSpace(req.SendTo),
		IncludeApplication: req.IncludeNested,
	}
	if !req.Caller.Admin && !req.IncludeAll {
		q.RegisteredBy = req.Caller.ApplicationRef()
	}

	if raw := strings.TrimSpace(req.Status); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !domain.EventStatus(n).Valid() {
			return q, errors.BadRequest(domain.CodeInvalidStatus, fmt.Sprintf("unknown status %q", raw))
		}
		st := domain.EventStatus(n)
		q.Status = &st
	}

	from, to, err := dayRange(req.CreatedFrom, req.CreatedTo)
	if err != nil {
		return q, err
	}
	q.CreatedFrom, q.CreatedTo = from, to

	if q.Sort, err = parseSort(req.SortFields, req.SortOrders); err != nil {
		return q, err
	}

	if strings.TrimSpace(req.Skip) != "" {
		skip, err := strconv.Atoi(strings.TrimSpace(req.Skip))
		if err != nil || skip < 0 {
			return q, errors.BadRequest(domain.CodeInvalidPaging, fmt.Sprintf("invalid skip %q", req.Skip))
		}
		limit := defaultPageLimit
		if raw := strings.TrimSpace(req.Limit); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				return q, errors.BadRequest(domain.CodeInvalidPaging, fmt.Sprintf("invalid limit %q", req.Limit))
			}
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
		q.Offset, q.Limit = skip, limit
	}
	return q, nil
}

// dayRange expands inclusive YYYY-MM-DD bounds to the first and last instant of each day in UTC.
func dayRange(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if raw := strings.TrimSpace(fromRaw); raw != "" {
		d, err := time.ParseInLocation(dayLayout, raw, time.UTC)
		if err != nil {
			return nil, nil, errors.BadRequest(domain.CodeInvalidDateRange, fmt.Sprintf("invalid createdAtEventsFrom %q", raw))
		}
		from = &d
	}
	if raw := strings.TrimSpace(toRaw); raw != "" {
		d, err := time.ParseInLocation(dayLayout, raw, time.UTC)
		if err != nil {
			return nil, nil, errors.BadRequest(domain.CodeInvalidDateRange, fmt.Sprintf("invalid createdAtEventsTo %q", raw))
		}
		end := d.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, errors.BadRequest(domain.CodeInvalidDateRange, "createdAtEventsFrom is after createdAtEventsTo")
	}
	return from, to, nil
}

// parseSort pairs comma-separated fields with orders. Orders other than asc/desc become DESC.
func parseSort(fieldsRaw, ordersRaw string) ([]port.SortSpec, error) {
	if strings.TrimSpace(fieldsRaw) == "" {
		return []port.SortSpec{{Field: port.SortID}}, nil
	}
	fields := strings.Split(fieldsRaw, ",")
	orders := strings.Split(ordersRaw, ",")
	specs := make([]port.SortSpec, 0, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if !port.SortableFields[f] {
			return nil, errors.BadRequest(domain.CodeInvalidSortField, fmt.Sprintf("cannot sort by %q", f))
		}
		desc := true
		if i < len(orders) && strings.EqualFold(strings.TrimSpace(orders[i]), "asc") {
			desc = false
		}
		specs = append(specs, port.SortSpec{Field: f, Desc: desc})
	}
	return specs, nil
}

func paginate(total int64, skip, limit int) *port.Paginate {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &port.Paginate{
		Total: total,
		Skip:  skip,
		Limit: limit,
		Page:  skip/limit + 1,
		Pages: pages,
	}
}
