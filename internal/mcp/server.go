// Package mcp exposes notification events to operators over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/strogmv/notifyevents/internal/domain"
	apperrors "github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/pkg/logger"
	"github.com/strogmv/notifyevents/internal/port"
)

// Report is the envelope every tool answers with.
type Report struct {
	Status  string   `json:"status"`
	Summary []string `json:"summary"`
	Code    string   `json:"code,omitempty"`
	Data    any      `json:"data,omitempty"`
}

func (r *Report) ToJSON() string {
	b, _ := json.MarshalIndent(r, "", "  ")
	return string(b)
}

// Tools implements the MCP tool handlers. Every call runs as an administrator.
type Tools struct {
	events port.NotificationEvents
}

func NewTools(events port.NotificationEvents) *Tools {
	return &Tools{events: events}
}

func (t *Tools) caller() port.Caller {
	return port.Caller{Admin: true}
}

// NewServer registers the notification event tools on a new MCP server.
func NewServer(events port.NotificationEvents, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"notifyevents",
		version,
		server.WithResourceCapabilities(false, true),
		server.WithLogging(),
	)
	t := NewTools(events)

	s.AddTool(mcp.NewTool("list_notification_events",
		mcp.WithDescription("List notification events across all applications with optional filters"),
		mcp.WithString("status", mcp.Description("Status code: 0 pending, 1 delivered, 2 failed, 3 processing")),
		mcp.WithString("send_to", mcp.Description("Case-insensitive substring of the recipients")),
		mcp.WithString("created_from", mcp.Description("First creation day, YYYY-MM-DD")),
		mcp.WithString("created_to", mcp.Description("Last creation day, YYYY-MM-DD")),
		mcp.WithString("sort", mcp.Description("Comma separated sort fields, e.g. createdAt,id")),
		mcp.WithString("order", mcp.Description("Comma separated orders matching sort: asc or desc")),
		mcp.WithNumber("skip", mcp.Description("Offset of the first event")),
		mcp.WithNumber("limit", mcp.Description("Page size, at most 100")),
	), t.ListEvents)

	s.AddTool(mcp.NewTool("get_notification_event",
		mcp.WithDescription("Fetch one notification event by id"),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Event id")),
	), t.GetEvent)

	s.AddTool(mcp.NewTool("resend_notification_event",
		mcp.WithDescription("Reset a notification event to pending so it is delivered again"),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Event id")),
	), t.ResendEvent)

	s.AddTool(mcp.NewTool("set_notification_event_status",
		mcp.WithDescription("Move a notification event to another status, optionally recording the last error"),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Event id")),
		mcp.WithNumber("status", mcp.Required(), mcp.Description("Target status code")),
		mcp.WithString("last_error", mcp.Description("Error text to record; empty clears it")),
	), t.SetStatus)

	s.AddResource(mcp.NewResource(
		"resource://notifyevents/statuses",
		"Notification event statuses",
		mcp.WithResourceDescription("Status codes and their allowed transitions."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      "resource://notifyevents/statuses",
			MIMEType: "application/json",
			Text:     statusTable(),
		}}, nil
	})

	return s
}

// Serve runs the server over stdio until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (t *Tools) ListEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := port.ListEventsRequest{
		Caller:      t.caller(),
		IncludeAll:  true,
		Status:      mcp.ParseString(request, "status", ""),
		SendTo:      mcp.ParseString(request, "send_to", ""),
		CreatedFrom: mcp.ParseString(request, "created_from", ""),
		CreatedTo:   mcp.ParseString(request, "created_to", ""),
		SortFields:  mcp.ParseString(request, "sort", ""),
		SortOrders:  mcp.ParseString(request, "order", ""),
	}
	if v := mcp.ParseFloat64(request, "skip", -1); v >= 0 {
		req.Skip = strconv.Itoa(int(v))
	}
	if v := mcp.ParseFloat64(request, "limit", -1); v >= 0 {
		req.Limit = strconv.Itoa(int(v))
	}

	res, err := t.events.List(ctx, req)
	if err != nil {
		return failure(ctx, "list_notification_events", err), nil
	}
	summary := []string{fmt.Sprintf("%d events", len(res.Events))}
	if res.Paginate != nil {
		summary = append(summary, fmt.Sprintf("page %d of %d, %d total", res.Paginate.Page, res.Paginate.Pages, res.Paginate.Total))
	}
	return result(&Report{
		Status:  "ok",
		Summary: summary,
		Data:    map[string]any{"events": res.Events, "paginate": res.Paginate},
	}), nil
}

func (t *Tools) GetEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := eventID(request)
	if !ok {
		return invalidID(), nil
	}
	e, err := t.events.Get(ctx, port.GetEventRequest{Caller: t.caller(), ID: id})
	if err != nil {
		return failure(ctx, "get_notification_event", err), nil
	}
	return result(&Report{
		Status:  "ok",
		Summary: []string{fmt.Sprintf("event %d is %s after %d attempts", e.ID, e.Status, e.Attempts)},
		Data:    e,
	}), nil
}

func (t *Tools) ResendEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := eventID(request)
	if !ok {
		return invalidID(), nil
	}
	e, err := t.events.Resend(ctx, port.ResendEventRequest{Caller: t.caller(), ID: id, IncludeAll: true})
	if err != nil {
		return failure(ctx, "resend_notification_event", err), nil
	}
	return result(&Report{
		Status:  "ok",
		Summary: []string{fmt.Sprintf("event %d queued for delivery", e.ID)},
		Data:    e,
	}), nil
}

func (t *Tools) SetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := eventID(request)
	if !ok {
		return invalidID(), nil
	}
	raw := mcp.ParseFloat64(request, "status", -1)
	status := int(raw)
	if raw < 0 || float64(status) != raw || !domain.EventStatus(status).Valid() {
		return result(&Report{
			Status:  "invalid_argument",
			Summary: []string{"status must be one of 0, 1, 2, 3"},
			Code:    domain.CodeInvalidStatus,
		}), nil
	}

	upd := port.UpdateEventRequest{Caller: t.caller(), ID: id, Status: &status}
	args, _ := request.Params.Arguments.(map[string]any)
	if _, present := args["last_error"]; present {
		msg := mcp.ParseString(request, "last_error", "")
		upd.LastError = port.Optional[string]{Set: true, Null: msg == "", Value: msg}
	}

	e, err := t.events.Update(ctx, upd)
	if err != nil {
		return failure(ctx, "set_notification_event_status", err), nil
	}
	return result(&Report{
		Status:  "ok",
		Summary: []string{fmt.Sprintf("event %d is now %s", e.ID, e.Status)},
		Data:    e,
	}), nil
}

func eventID(request mcp.CallToolRequest) (int64, bool) {
	raw := mcp.ParseFloat64(request, "id", 0)
	id := int64(raw)
	return id, id > 0 && float64(id) == raw
}

func invalidID() *mcp.CallToolResult {
	return result(&Report{
		Status:  "invalid_argument",
		Summary: []string{"id must be a positive integer"},
		Code:    domain.CodeNoID,
	})
}

func failure(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	r := &Report{Status: "error", Summary: []string{err.Error()}}
	if e, ok := apperrors.As(err); ok {
		r.Code = e.Code
		if e.Status < 500 {
			r.Status = "rejected"
		}
	}
	if r.Status == "error" {
		logger.From(ctx).Error("mcp tool failed", "tool", tool, "error", err)
	}
	res := result(r)
	res.IsError = true
	return res
}

func result(r *Report) *mcp.CallToolResult {
	return mcp.NewToolResultText(r.ToJSON())
}

func statusTable() string {
	type row struct {
		Code  int      `json:"code"`
		Name  string   `json:"name"`
		Moves []string `json:"transitions"`
	}
	var rows []row
	for s := domain.StatusPending; s.Valid(); s++ {
		var moves []string
		for next := domain.StatusPending; next.Valid(); next++ {
			if next != s && s.CanTransition(next) {
				moves = append(moves, next.String())
			}
		}
		rows = append(rows, row{Code: int(s), Name: s.String(), Moves: moves})
	}
	b, _ := json.MarshalIndent(rows, "", "  ")
	return string(b)
}
