package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/notifyevents/internal/domain"
	apperrors "github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/port"
)

type eventsMock struct {
	ListFunc   func(ctx context.Context, req port.ListEventsRequest) (port.ListEventsResult, error)
	GetFunc    func(ctx context.Context, req port.GetEventRequest) (domain.NotificationEvent, error)
	UpdateFunc func(ctx context.Context, req port.UpdateEventRequest) (domain.NotificationEvent, error)
	ResendFunc func(ctx context.Context, req port.ResendEventRequest) (domain.NotificationEvent, error)
}

func (m *eventsMock) Create(ctx context.Context, req port.CreateEventRequest) (port.CreateEventResult, error) {
	panic("not used")
}

func (m *eventsMock) List(ctx context.Context, req port.ListEventsRequest) (port.ListEventsResult, error) {
	return m.ListFunc(ctx, req)
}

func (m *eventsMock) Get(ctx context.Context, req port.GetEventRequest) (domain.NotificationEvent, error) {
	return m.GetFunc(ctx, req)
}

func (m *eventsMock) Update(ctx context.Context, req port.UpdateEventRequest) (domain.NotificationEvent, error) {
	return m.UpdateFunc(ctx, req)
}

func (m *eventsMock) Resend(ctx context.Context, req port.ResendEventRequest) (domain.NotificationEvent, error) {
	return m.ResendFunc(ctx, req)
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func decode(t *testing.T, res *mcp.CallToolResult) Report {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var r Report
	require.NoError(t, json.Unmarshal([]byte(text.Text), &r))
	return r
}

func TestListEvents(t *testing.T) {
	var got port.ListEventsRequest
	tools := NewTools(&eventsMock{
		ListFunc: func(ctx context.Context, req port.ListEventsRequest) (port.ListEventsResult, error) {
			got = req
			return port.ListEventsResult{
				Events:   []domain.NotificationEvent{{ID: 1}, {ID: 2}},
				Paginate: &port.Paginate{Total: 12, Skip: 10, Limit: 10, Page: 2, Pages: 2},
			}, nil
		},
	})

	res, err := tools.ListEvents(context.Background(), call(map[string]any{
		"status":  "2",
		"send_to": "ana@",
		"skip":    float64(10),
		"limit":   float64(10),
	}))
	require.NoError(t, err)
	r := decode(t, res)
	assert.Equal(t, "ok", r.Status)
	assert.Equal(t, []string{"2 events", "page 2 of 2, 12 total"}, r.Summary)

	assert.True(t, got.Caller.Admin)
	assert.True(t, got.IncludeAll)
	assert.Equal(t, "2", got.Status)
	assert.Equal(t, "ana@", got.SendTo)
	assert.Equal(t, "10", got.Skip)
	assert.Equal(t, "10", got.Limit)
}

func TestListEvents_RejectedQuery(t *testing.T) {
	tools := NewTools(&eventsMock{
		ListFunc: func(ctx context.Context, req port.ListEventsRequest) (port.ListEventsResult, error) {
			return port.ListEventsResult{}, apperrors.BadRequest(domain.CodeInvalidStatus, "unknown status")
		},
	})
	res, err := tools.ListEvents(context.Background(), call(map[string]any{"status": "9"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	r := decode(t, res)
	assert.Equal(t, "rejected", r.Status)
	assert.Equal(t, domain.CodeInvalidStatus, r.Code)
}

func TestGetEvent(t *testing.T) {
	tools := NewTools(&eventsMock{
		GetFunc: func(ctx context.Context, req port.GetEventRequest) (domain.NotificationEvent, error) {
			if req.ID != 7 {
				return domain.NotificationEvent{}, apperrors.NotFound(domain.CodeNoQueriedData, "no event")
			}
			return domain.NotificationEvent{ID: 7, Status: domain.StatusFailed, Attempts: 3}, nil
		},
	})

	res, err := tools.GetEvent(context.Background(), call(map[string]any{"id": float64(7)}))
	require.NoError(t, err)
	r := decode(t, res)
	assert.Equal(t, []string{"event 7 is failed after 3 attempts"}, r.Summary)

	res, err = tools.GetEvent(context.Background(), call(map[string]any{"id": float64(8)}))
	require.NoError(t, err)
	assert.Equal(t, domain.CodeNoQueriedData, decode(t, res).Code)

	for _, id := range []any{float64(0), float64(-1), float64(1.5)} {
		res, err = tools.GetEvent(context.Background(), call(map[string]any{"id": id}))
		require.NoError(t, err)
		r := decode(t, res)
		assert.Equal(t, "invalid_argument", r.Status)
		assert.Equal(t, domain.CodeNoID, r.Code)
	}
}

func TestResendEvent(t *testing.T) {
	var got port.ResendEventRequest
	tools := NewTools(&eventsMock{
		ResendFunc: func(ctx context.Context, req port.ResendEventRequest) (domain.NotificationEvent, error) {
			got = req
			return domain.NotificationEvent{ID: req.ID}, nil
		},
	})
	res, err := tools.ResendEvent(context.Background(), call(map[string]any{"id": float64(3)}))
	require.NoError(t, err)
	assert.Equal(t, []string{"event 3 queued for delivery"}, decode(t, res).Summary)
	assert.True(t, got.Caller.Admin)
	assert.True(t, got.IncludeAll)
}

func TestSetStatus(t *testing.T) {
	var got port.UpdateEventRequest
	tools := NewTools(&eventsMock{
		UpdateFunc: func(ctx context.Context, req port.UpdateEventRequest) (domain.NotificationEvent, error) {
			got = req
			return domain.NotificationEvent{ID: req.ID, Status: domain.EventStatus(*req.Status)}, nil
		},
	})

	res, err := tools.SetStatus(context.Background(), call(map[string]any{"id": float64(4), "status": float64(2), "last_error": "bounced"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"event 4 is now failed"}, decode(t, res).Summary)
	assert.Equal(t, 2, *got.Status)
	assert.Equal(t, port.Optional[string]{Set: true, Value: "bounced"}, got.LastError)

	_, err = tools.SetStatus(context.Background(), call(map[string]any{"id": float64(4), "status": float64(0), "last_error": ""}))
	require.NoError(t, err)
	assert.True(t, got.LastError.Set)
	assert.True(t, got.LastError.Null)

	_, err = tools.SetStatus(context.Background(), call(map[string]any{"id": float64(4), "status": float64(1)}))
	require.NoError(t, err)
	assert.False(t, got.LastError.Set)

	res, err = tools.SetStatus(context.Background(), call(map[string]any{"id": float64(4), "status": float64(9)}))
	require.NoError(t, err)
	assert.Equal(t, domain.CodeInvalidStatus, decode(t, res).Code)
}

func TestStatusTable(t *testing.T) {
	var rows []struct {
		Code  int      `json:"code"`
		Name  string   `json:"name"`
		Moves []string `json:"transitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(statusTable()), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "delivered", rows[1].Name)
	assert.Equal(t, []string{"pending"}, rows[1].Moves)
}

func TestNewServer(t *testing.T) {
	require.NotNil(t, NewServer(&eventsMock{}, "test"))
}
