package port

import (
	"context"

	"github.com/strogmv/notifyevents/internal/domain"
)

// DispatchMessage is the transport-agnostic envelope handed to a channel sink.
type DispatchMessage struct {
	EventID     int64               `json:"eventId"`
	Kind        domain.Kind         `json:"kind"`
	MediumID    int64               `json:"mediumId"`
	SendTo      string              `json:"sendTo"`
	Data        map[string]any      `json:"data"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
}

// LiveDispatcher delivers a persisted event synchronously.
type LiveDispatcher interface {
	DispatchNow(ctx context.Context, event domain.NotificationEvent, kind domain.Kind) error
}

// ChannelSink delivers messages of one channel kind.
type ChannelSink interface {
	Send(ctx context.Context, msg DispatchMessage) error
}
