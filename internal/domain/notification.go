package domain

import "time"

// Kind is the channel-kind code of a notification type.
type Kind string

const (
	KindEmail   Kind = "email"
	KindPush    Kind = "push"
	KindSMS     Kind = "sms"
	KindPushAWS Kind = "push-aws"
)

// Known reports whether k has a dedicated payload contract.
func (k Kind) Known() bool {
	switch k {
	case KindEmail, KindPush, KindSMS, KindPushAWS:
		return true
	}
	return false
}

type NotificationType struct {
	ID   int64  `json:"id"`
	Code Kind   `json:"code"`
	Name string `json:"name"`
}

// DeliveryMedium is a configured outbound channel instance.
// Kind and ApplicationToken are populated from joins when loaded by id.
type DeliveryMedium struct {
	ID                      int64   `json:"id"`
	NotificationTypeID      int64   `json:"notificationTypeId"`
	Kind                    Kind    `json:"kind"`
	Name                    string  `json:"name"`
	Active                  bool    `json:"active"`
	AuthorizedApplicationID *int64  `json:"authorizedApplicationId,omitempty"`
	ApplicationToken        *string `json:"-"`
}

type AuthorizedApplication struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Code  string `json:"code"`
	Token string `json:"-"`
}

// ApplicationSummary is the projection joined into listings.
type ApplicationSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type NotificationTemplate struct {
	ID           int64          `json:"id"`
	Code         string         `json:"code"`
	Kind         Kind           `json:"kind"`
	Subject      string         `json:"subject"`
	Route        string         `json:"route"`
	TemplateData map[string]any `json:"templateData,omitempty"`
}

type Attachment struct {
	FileName  string `json:"fileName"`
	Data      string `json:"data"`
	Extension string `json:"extension"`
}

// NotificationEvent is the durable record of a message awaiting delivery.
type NotificationEvent struct {
	ID                   int64               `json:"id"`
	SendTo               string              `json:"sendTo"`
	Data                 map[string]any      `json:"data"`
	NotificationMediumID int64               `json:"notificationMediumId"`
	RegisteredBy         *int64              `json:"registeredBy"`
	Attachments          []Attachment        `json:"attachments"`
	Status               EventStatus         `json:"status"`
	Attempts             int                 `json:"attempts"`
	LastError            *string             `json:"lastError"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
	Application          *ApplicationSummary `json:"AuthorizedApplication,omitempty"`
}
