package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strogmv/notifyevents/internal/adapter/repository/memory"
	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/templaterender"
	"github.com/strogmv/notifyevents/internal/port"
	"github.com/strogmv/notifyevents/templates"
)

const (
	crmToken     = "tok-crm"
	billingToken = "tok-billing"
)

type fixture struct {
	svc     *NotificationEventsImpl
	catalog *memory.CatalogStub
	events  *memory.EventRepositoryStub
	system  *memory.SystemRepositoryStub
	store   *attachmentStoreMock
	live    *dispatcherMock

	crm     domain.AuthorizedApplication
	billing domain.AuthorizedApplication
	media   map[string]domain.DeliveryMedium
}

func (f *fixture) app(a domain.AuthorizedApplication) port.Caller {
	return port.Caller{ApplicationID: a.ID, Token: a.Token}
}

func admin() port.Caller { return port.Caller{Admin: true} }

func (f *fixture) mediumID(name string) *int64 {
	id := f.media[name].ID
	return &id
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	catalog := memory.NewCatalogStub()

	f := &fixture{
		catalog: catalog,
		crm:     domain.AuthorizedApplication{Name: "CRM", Code: "crm", Token: crmToken},
		billing: domain.AuthorizedApplication{Name: "Billing", Code: "billing", Token: billingToken},
		media:   map[string]domain.DeliveryMedium{},
		store:   &attachmentStoreMock{},
		live:    &dispatcherMock{},
	}
	require.NoError(t, catalog.UpsertApplication(ctx, &f.crm))
	require.NoError(t, catalog.UpsertApplication(ctx, &f.billing))

	types := map[domain.Kind]int64{}
	for _, k := range []domain.Kind{domain.KindEmail, domain.KindPush, domain.KindSMS, domain.KindPushAWS, "fax"} {
		nt := domain.NotificationType{Code: k, Name: string(k)}
		require.NoError(t, catalog.UpsertType(ctx, &nt))
		types[k] = nt.ID
	}

	addMedium := func(name string, kind domain.Kind, app *domain.AuthorizedApplication, active bool) {
		m := domain.DeliveryMedium{Name: name, NotificationTypeID: types[kind], Active: active}
		if app != nil {
			id := app.ID
			m.AuthorizedApplicationID = &id
		}
		require.NoError(t, catalog.UpsertMedium(ctx, &m))
		m.Kind = kind
		f.media[name] = m
	}
	addMedium("mail-crm-disabled", domain.KindEmail, &f.crm, false)
	addMedium("mail-crm", domain.KindEmail, &f.crm, true)
	addMedium("mail-billing", domain.KindEmail, &f.billing, true)
	addMedium("mail-unbound", domain.KindEmail, nil, true)
	addMedium("push-crm", domain.KindPush, &f.crm, true)
	addMedium("sms-crm", domain.KindSMS, &f.crm, true)
	addMedium("sns-crm", domain.KindPushAWS, &f.crm, true)
	addMedium("fax-crm", "fax", &f.crm, true)

	require.NoError(t, catalog.UpsertTemplate(ctx, &domain.NotificationTemplate{
		Code: "welcome", Kind: domain.KindEmail, Subject: "Welcome {{.name}}", Route: "welcome",
	}))
	require.NoError(t, catalog.UpsertTemplate(ctx, &domain.NotificationTemplate{
		Code: "broken", Kind: domain.KindEmail, Subject: "Hi", Route: "missing-route",
	}))
	require.NoError(t, catalog.UpsertTemplate(ctx, &domain.NotificationTemplate{
		Code: "otp", Kind: domain.KindSMS,
		TemplateData: map[string]any{"message": "Your code", "typeSMS": "twilio", "sender": "ACME"},
	}))
	require.NoError(t, catalog.UpsertTemplate(ctx, &domain.NotificationTemplate{
		Code: "fax-cover", Kind: "fax", TemplateData: map[string]any{"pages": 1},
	}))

	f.events = memory.NewEventRepositoryStub(catalog.Applications())
	f.system = memory.NewSystemRepositoryStub()
	f.svc = NewNotificationEventsImpl(Deps{
		Media:       catalog,
		Types:       catalog.Types(),
		Templates:   catalog.Templates(),
		Events:      f.events,
		Outbox:      f.system,
		Idempotency: f.system,
		Renderer:    templaterender.NewRenderer(templates.FS, "mail"),
		Attachments: f.store,
		Dispatcher:  f.live,
		TxManager:   memory.TxManager{},
	})
	return f
}

func emailData() map[string]any {
	return map[string]any{"type": "text", "subject": "Hello", "body": "Plain body"}
}

func pushSection() map[string]any {
	return map[string]any{
		"sound": "default", "body": "You have a message", "title": "Inbox",
		"content_available": "1", "priority": "high",
	}
}

func pushData() map[string]any {
	data := pushSection()
	data["payload"] = map[string]any{"message": "New order", "title": "Orders"}
	return map[string]any{
		"to":           "device-token-1",
		"notification": pushSection(),
		"data":         data,
	}
}

type attachmentStoreMock struct {
	mu        sync.Mutex
	calls     int
	StoreFunc func(ctx context.Context, a port.RawAttachment) (string, error)
}

func (m *attachmentStoreMock) Store(ctx context.Context, a port.RawAttachment) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, a)
	}
	return "attachments/" + a.FileName, nil
}

type dispatcherMock struct {
	mu              sync.Mutex
	sent            []int64
	DispatchNowFunc func(ctx context.Context, event domain.NotificationEvent, kind domain.Kind) error
}

func (m *dispatcherMock) DispatchNow(ctx context.Context, event domain.NotificationEvent, kind domain.Kind) error {
	m.mu.Lock()
	m.sent = append(m.sent, event.ID)
	m.mu.Unlock()
	if m.DispatchNowFunc != nil {
		return m.DispatchNowFunc(ctx, event, kind)
	}
	return nil
}
