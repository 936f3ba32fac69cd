package domain

import "fmt"

// EventStatus is the delivery state of a NotificationEvent.
// Values 0 and 1 keep the legacy pending/processed encoding.
type EventStatus int

const (
	StatusPending EventStatus = iota
	StatusDelivered
	StatusFailed
	StatusProcessing
)

var statusNames = map[EventStatus]string{
	StatusPending:    "pending",
	StatusDelivered:  "delivered",
	StatusFailed:     "failed",
	StatusProcessing: "processing",
}

var transitions = map[EventStatus][]EventStatus{
	StatusPending:    {StatusProcessing, StatusDelivered, StatusFailed},
	StatusProcessing: {StatusPending, StatusDelivered, StatusFailed},
	StatusFailed:     {StatusPending, StatusProcessing},
	StatusDelivered:  {StatusPending},
}

func (s EventStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s EventStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// CanTransition reports whether an event may move from s to next.
func (s EventStatus) CanTransition(next EventStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
