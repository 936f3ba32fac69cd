package port

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/strogmv/notifyevents/internal/domain"
)

// Recipients accepts either a single string or an array of strings on the wire.
// Entries are split on ';' so "a@x.io;b@x.io" and ["a@x.io","b@x.io"] are equivalent.
type Recipients []string

func (r *Recipients) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*r = SplitRecipients(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("sendTo must be a string or an array of strings")
	}
	out := Recipients{}
	for _, s := range many {
		out = append(out, SplitRecipients(s)...)
	}
	*r = out
	return nil
}

// Join renders the recipients in their persisted ';'-joined form.
func (r Recipients) Join() string {
	return strings.Join(r, ";")
}

func SplitRecipients(s string) Recipients {
	out := Recipients{}
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Optional distinguishes an absent JSON field from an explicit null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

type CreateEventRequest struct {
	Caller                 Caller          `json:"-"`
	IdempotencyKey         string          `json:"-"`
	NotificationMediumID   *int64          `json:"notificationMediumId"`
	NotificationMediumName string          `json:"notificationMediumName"`
	Type                   string          `json:"type"`
	TemplateCode           string          `json:"templateCode"`
	Context                map[string]any  `json:"context"`
	Data                   map[string]any  `json:"data"`
	SendTo                 Recipients      `json:"sendTo"`
	IsLive                 bool            `json:"isLive"`
	Attachments            []RawAttachment `json:"attachments"`
}

// DispatchOutcome reports the result of a live delivery attempt.
type DispatchOutcome struct {
	Delivered bool   `json:"delivered"`
	Code      string `json:"code,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type CreateEventResult struct {
	Event    domain.NotificationEvent
	Dispatch *DispatchOutcome
	Replayed bool
}

type ListEventsRequest struct {
	Caller        Caller
	IncludeAll    bool
	IncludeNested bool
	SendTo        string
	Status        string
	CreatedFrom   string
	CreatedTo     string
	SortFields    string
	SortOrders    string
	Skip          string
	Limit         string
}

// Paginate describes the page returned by a paginated listing.
type Paginate struct {
	Total int64 `json:"total"`
	Skip  int   `json:"skip"`
	Limit int   `json:"limit"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
}

type ListEventsResult struct {
	Events   []domain.NotificationEvent
	Paginate *Paginate
}

type GetEventRequest struct {
	Caller Caller
	ID     int64
}

type UpdateEventRequest struct {
	Caller               Caller           `json:"-"`
	ID                   int64            `json:"-"`
	Status               *int             `json:"status"`
	SendTo               Recipients       `json:"sendTo"`
	Data                 map[string]any   `json:"data"`
	NotificationMediumID *int64           `json:"notificationMediumId"`
	LastError            Optional[string] `json:"lastError"`
	Attempts             *int             `json:"attempts"`
}

type ResendEventRequest struct {
	Caller     Caller
	ID         int64
	IncludeAll bool
}

// NotificationEvents is the application service over notification events.
type NotificationEvents interface {
	Create(ctx context.Context, req CreateEventRequest) (CreateEventResult, error)
	List(ctx context.Context, req ListEventsRequest) (ListEventsResult, error)
	Get(ctx context.Context, req GetEventRequest) (domain.NotificationEvent, error)
	Update(ctx context.Context, req UpdateEventRequest) (domain.NotificationEvent, error)
	Resend(ctx context.Context, req ResendEventRequest) (domain.NotificationEvent, error)
}
