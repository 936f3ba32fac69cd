package domain

const (
	TopicEventQueued   = "notification.event.queued"
	TopicEventRequeued = "notification.event.requeued"
)

type EventQueued struct {
	EventID  int64 `json:"eventId"`
	MediumID int64 `json:"mediumId"`
	Kind     Kind  `json:"kind"`
	Live     bool  `json:"live"`
}

type EventRequeued struct {
	EventID        int64       `json:"eventId"`
	MediumID       int64       `json:"mediumId"`
	PreviousStatus EventStatus `json:"previousStatus"`
}
