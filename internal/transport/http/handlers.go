package http

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/pkg/i18n"
	"github.com/strogmv/notifyevents/internal/pkg/report"
	"github.com/strogmv/notifyevents/internal/port"
)

// Envelope is the success body of every notification event endpoint.
type Envelope struct {
	Message  string                `json:"message"`
	Data     any                   `json:"data"`
	Paginate *port.Paginate        `json:"paginate,omitempty"`
	Dispatch *port.DispatchOutcome `json:"dispatch,omitempty"`
}

// Handlers serves the notification event endpoints.
type Handlers struct {
	Events        port.NotificationEvents
	Reports       *report.Generator
	PublicBaseURL string
	now           func() time.Time
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func message(r *http.Request, code string) string {
	return i18n.Message(i18n.Lang(r.Header.Get("Accept-Language")), code)
}

func decodeJSONRequest(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.BadRequest(domain.CodeInvalidBody, "request body is required")
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.New(http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
		}
		return errors.BadRequest(domain.CodeInvalidBody, err.Error())
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errors.BadRequest(domain.CodeInvalidBody, "request body is required")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.BadRequest(domain.CodeInvalidBody, err.Error())
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest(domain.CodeNoID, "notification event id must be a positive integer")
	}
	return id, nil
}

func queryBool(q url.Values, key string) bool {
	v, err := strconv.ParseBool(q.Get(key))
	return err == nil && v
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req port.CreateEventRequest
	if err := decodeJSONRequest(r, &req); err != nil {
		errors.WriteError(w, r, err)
		return
	}
	req.Caller = callerFrom(r)
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	res, err := h.Events.Create(r.Context(), req)
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	env := Envelope{Message: message(r, domain.CodeMessageInsert), Data: res.Event, Dispatch: res.Dispatch}
	status := http.StatusCreated
	if res.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		status = http.StatusOK
	}
	writeJSON(w, status, env)
}

func listRequest(r *http.Request) port.ListEventsRequest {
	q := r.URL.Query()
	req := port.ListEventsRequest{
		Caller:        callerFrom(r),
		IncludeAll:    queryBool(q, "includeAll"),
		IncludeNested: queryBool(q, "includeNested"),
		SendTo:        q.Get("sendTo"),
		Status:        q.Get("status"),
		CreatedFrom:   q.Get("createdAtEventsFrom"),
		CreatedTo:     q.Get("createdAtEventsTo"),
		SortFields:    q.Get("sortFields"),
		SortOrders:    q.Get("sortOrders"),
		Limit:         q.Get("limit"),
	}
	if q.Has("skip") {
		req.Skip = q.Get("skip")
		if strings.TrimSpace(req.Skip) == "" {
			req.Skip = "0"
		}
	}
	return req
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	res, err := h.Events.List(r.Context(), listRequest(r))
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{
		Message:  message(r, domain.CodeMessageObtained),
		Data:     res.Events,
		Paginate: res.Paginate,
	})
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	e, err := h.Events.Get(r.Context(), port.GetEventRequest{Caller: callerFrom(r), ID: id})
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: message(r, domain.CodeMessageObtained), Data: e})
}

func (h *Handlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	var req port.UpdateEventRequest
	if err := decodeJSONRequest(r, &req); err != nil {
		errors.WriteError(w, r, err)
		return
	}
	req.Caller = callerFrom(r)
	req.ID = id

	e, err := h.Events.Update(r.Context(), req)
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: message(r, domain.CodeMessageUpdate), Data: e})
}

func (h *Handlers) ResendEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	e, err := h.Events.Resend(r.Context(), port.ResendEventRequest{
		Caller:     callerFrom(r),
		ID:         id,
		IncludeAll: queryBool(r.URL.Query(), "includeAll"),
	})
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: message(r, domain.CodeMessageResend), Data: e})
}

// Report renders the listing selected by the query string as a PDF.
func (h *Handlers) Report(w http.ResponseWriter, r *http.Request) {
	req := listRequest(r)
	res, err := h.Events.List(r.Context(), req)
	if err != nil {
		errors.WriteError(w, r, err)
		return
	}

	now := time.Now
	if h.now != nil {
		now = h.now
	}
	doc, err := h.Reports.GenerateEventReport(report.EventReport{
		GeneratedAt: now(),
		Filters:     reportFilters(req),
		Events:      res.Events,
		Link:        h.listingLink(r),
	})
	if err != nil {
		errors.WriteError(w, r, errors.Processing(domain.CodeQueryEvents, err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="notification-events.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func reportFilters(req port.ListEventsRequest) [][2]string {
	var out [][2]string
	add := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			out = append(out, [2]string{label, value})
		}
	}
	add("Recipients", req.SendTo)
	if n, err := strconv.Atoi(req.Status); err == nil {
		add("Status", domain.EventStatus(n).String())
	}
	add("Created from", req.CreatedFrom)
	add("Created to", req.CreatedTo)
	add("Sort", req.SortFields)
	if req.Caller.Admin || req.IncludeAll {
		add("Scope", "all applications")
	}
	return out
}

func (h *Handlers) listingLink(r *http.Request) string {
	if h.PublicBaseURL == "" {
		return ""
	}
	link := strings.TrimRight(h.PublicBaseURL, "/") + "/notification-events"
	if raw := r.URL.RawQuery; raw != "" {
		link += "?" + raw
	}
	return link
}
