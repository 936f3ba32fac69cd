package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/port"
)

// Requester is the request/reply half of Client.
type Requester interface {
	Request(ctx context.Context, subject string, payload []byte) ([]byte, error)
}

// Reply is the answer a channel worker sends back for a dispatch request.
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// RequestSink hands a message to the worker of one channel kind on <prefix>.<kind>.
type RequestSink struct {
	client  Requester
	subject string
}

func NewRequestSink(client Requester, prefix string, kind domain.Kind) *RequestSink {
	return &RequestSink{client: client, subject: prefix + "." + string(kind)}
}

// Subject returns the subject the sink sends to.
func (s *RequestSink) Subject() string { return s.subject }

func (s *RequestSink) Send(ctx context.Context, msg port.DispatchMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode dispatch message: %w", err)
	}
	raw, err := s.client.Request(ctx, s.subject, payload)
	if err != nil {
		return err
	}
	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return fmt.Errorf("decode reply from %s: %w", s.subject, err)
	}
	if !reply.OK {
		if reply.Error == "" {
			return errors.New("channel worker rejected the message")
		}
		return errors.New(reply.Error)
	}
	return nil
}

var _ port.ChannelSink = (*RequestSink)(nil)
