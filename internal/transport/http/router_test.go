package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/notifyevents/internal/adapter/repository/memory"
	"github.com/strogmv/notifyevents/internal/config"
	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/auth"
	"github.com/strogmv/notifyevents/internal/pkg/circuitbreaker"
	"github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/pkg/report"
	"github.com/strogmv/notifyevents/internal/port"
)

type eventsMock struct {
	CreateFunc func(ctx context.Context, req port.CreateEventRequest) (port.CreateEventResult, error)
	ListFunc   func(ctx context.Context, req port.ListEventsRequest) (port.ListEventsResult, error)
	GetFunc    func(ctx context.Context, req port.GetEventRequest) (domain.NotificationEvent, error)
	UpdateFunc func(ctx context.Context, req port.UpdateEventRequest) (domain.NotificationEvent, error)
	ResendFunc func(ctx context.Context, req port.ResendEventRequest) (domain.NotificationEvent, error)
}

func (m *eventsMock) Create(ctx context.Context, req port.CreateEventRequest) (port.CreateEventResult, error) {
	return m.CreateFunc(ctx, req)
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

const appToken = "tok-crm-0123456789"

type testServer struct {
	handler http.Handler
	cfg     *config.Config
	appID   int64
}

func newTestServer(t *testing.T, events *eventsMock) *testServer {
	t.Helper()
	cfg := &config.Config{
		JWTAlg:        "HS256",
		JWTPrivateKey: "test-secret",
		JWTIssuer:     "notifyevents",
		JWTAudience:   "notifyevents-api",
		JWTAccessTTL:  "5m",
	}
	verifier, err := auth.NewVerifier(cfg)
	require.NoError(t, err)

	catalog := memory.NewCatalogStub()
	app := domain.AuthorizedApplication{Name: "CRM", Code: "crm", Token: appToken}
	require.NoError(t, catalog.UpsertApplication(context.Background(), &app))

	h := NewRouter(RouterConfig{
		Handlers: &Handlers{
			Events:        events,
			Reports:       report.NewGenerator(),
			PublicBaseURL: "https://notify.example.com",
		},
		Identity:       &Identity{Verifier: verifier, Applications: catalog.Applications(), AdminRole: "admin"},
		Limiter:        NewRateLimiter(nil, 0, 0),
		CORSOrigins:    []string{"*"},
		RequestTimeout: "5s",
		MaxBodyBytes:   1 << 20,
		Checks: map[string]HealthCheck{
			"database": func(ctx context.Context) error { return nil },
		},
	})
	return &testServer{handler: h, cfg: cfg, appID: app.ID}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) adminToken(t *testing.T, roles ...string) string {
	t.Helper()
	tok, err := auth.IssueAccessToken(s.cfg, "ops@example.com", roles)
	require.NoError(t, err)
	return "Bearer " + tok
}

func asApp() map[string]string {
	return map[string]string{applicationTokenHeader: appToken}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) errors.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p errors.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestCreateEvent(t *testing.T) {
	var got port.CreateEventRequest
	srv := newTestServer(t, &eventsMock{
		CreateFunc: func(ctx context.Context, req port.CreateEventRequest) (port.CreateEventResult, error) {
			got = req
			return port.CreateEventResult{Event: domain.NotificationEvent{ID: 11, SendTo: req.SendTo.Join()}}, nil
		},
	})

	headers := asApp()
	headers["Idempotency-Key"] = "order-42"
	rec := srv.do(t, http.MethodPost, "/notification-events", `{
		"notificationMediumName": "mail-crm",
		"sendTo": "a@b.com;c@d.com",
		"data": {"subject": "Hi", "body": "Hello", "type": "text"},
		"isLive": true
	}`, headers)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Notification event registered.", env["message"])
	assert.Equal(t, float64(11), env["data"].(map[string]any)["id"])
	assert.Equal(t, "a@b.com;c@d.com", env["data"].(map[string]any)["sendTo"])
	assert.NotContains(t, env, "dispatch")

	assert.Equal(t, port.Caller{ApplicationID: srv.appID, Token: appToken}, got.Caller)
	assert.Equal(t, "order-42", got.IdempotencyKey)
	assert.Equal(t, "mail-crm", got.NotificationMediumName)
	assert.Equal(t, port.Recipients{"a@b.com", "c@d.com"}, got.SendTo)
	assert.True(t, got.IsLive)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestCreateEvent_ReplayAndDispatch(t *testing.T) {
	srv := newTestServer(t, &eventsMock{
		CreateFunc: func(ctx context.Context, req port.CreateEventRequest) (port.CreateEventResult, error) {
			if req.IdempotencyKey != "" {
				return port.CreateEventResult{Event: domain.NotificationEvent{ID: 5}, Replayed: true}, nil
			}
			return port.CreateEventResult{
				Event: domain.NotificationEvent{ID: 6},
				Dispatch: &port.DispatchOutcome{
					Delivered: false,
					Code:      domain.CodeLiveDispatch,
					Detail:    "send via email: timeout",
				},
			}, nil
		},
	})

	headers := asApp()
	headers["Idempotency-Key"] = "k1"
	rec := srv.do(t, http.MethodPost, "/notification-events", `{"type":"email"}`, headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))

	rec = srv.do(t, http.MethodPost, "/notification-events", `{"type":"email"}`, asApp())
	require.Equal(t, http.StatusCreated, rec.Code)
	dispatch := decodeEnvelope(t, rec)["dispatch"].(map[string]any)
	assert.Equal(t, false, dispatch["delivered"])
	assert.Equal(t, domain.CodeLiveDispatch, dispatch["code"])
	assert.Equal(t, "send via email: timeout", dispatch["detail"])
}

func TestCreateEvent_InvalidBody(t *testing.T) {
	srv := newTestServer(t, &eventsMock{})
	for _, body := range []string{`{"sendTo": 5}`, `not json`} {
		rec := srv.do(t, http.MethodPost, "/notification-events", body, asApp())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, domain.CodeInvalidBody, decodeProblem(t, rec).Code)
	}
	rec := srv.do(t, http.MethodPost, "/notification-events", "", asApp())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdentity(t *testing.T) {
	var got port.Caller
	srv := newTestServer(t, &eventsMock{
		GetFunc: func(ctx context.Context, req port.GetEventRequest) (domain.NotificationEvent, error) {
			got = req.Caller
			return domain.NotificationEvent{ID: req.ID}, nil
		},
	})

	rec := srv.do(t, http.MethodGet, "/notification-events/3", "", map[string]string{"Authorization": srv.adminToken(t, "admin")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, port.Caller{Admin: true}, got)

	tests := []struct {
		name    string
		headers map[string]string
		status  int
		code    string
	}{
		{name: "no credentials", headers: nil, status: http.StatusUnauthorized, code: domain.CodeNoApplication},
		{name: "unknown token", headers: map[string]string{applicationTokenHeader: "nope-nope-nope-nope"}, status: http.StatusForbidden, code: domain.CodeNoApplication},
		{name: "invalid jwt", headers: map[string]string{"Authorization": "Bearer a.b.c"}, status: http.StatusUnauthorized},
		{name: "jwt without admin role", headers: map[string]string{"Authorization": srv.adminToken(t, "viewer")}, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, "/notification-events/3", "", tt.headers)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeProblem(t, rec).Code)
		})
	}
}

func TestServiceErrorsAreLocalized(t *testing.T) {
	srv := newTestServer(t, &eventsMock{
		GetFunc: func(ctx context.Context, req port.GetEventRequest) (domain.NotificationEvent, error) {
			return domain.NotificationEvent{}, errors.NotFound(domain.CodeNoQueriedData, "no event 9")
		},
	})

	headers := asApp()
	headers["Accept-Language"] = "es-MX,es;q=0.9"
	rec := srv.do(t, http.MethodGet, "/notification-events/9", "", headers)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	p := decodeProblem(t, rec)
	assert.Equal(t, domain.CodeNoQueriedData, p.Code)
	assert.Equal(t, "El evento de notificación solicitado no existe.", p.Message)
}

func TestInvalidPathID(t *testing.T) {
	srv := newTestServer(t, &eventsMock{})
	for _, path := range []string{"/notification-events/abc", "/notification-events/0", "/notification-events/-4/resend"} {
		method := http.MethodGet
		if strings.HasSuffix(path, "resend") {
			method = http.MethodPost
		}
		rec := srv.do(t, method, path, "", asApp())
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, domain.CodeNoID, decodeProblem(t, rec).Code, path)
	}
}

func TestListEvents(t *testing.T) {
	var got port.ListEventsRequest
	srv := newTestServer(t, &eventsMock{
		ListFunc: func(ctx context.Context, req port.ListEventsRequest) (port.ListEventsResult, error) {
			got = req
			res := port.ListEventsResult{Events: []domain.NotificationEvent{{ID: 1}}}
			if req.Skip != "" {
				res.Paginate = &port.Paginate{Total: 1, Skip: 0, Limit: 10, Page: 1, Pages: 1}
			}
			return res, nil
		},
	})

	rec := srv.do(t, http.MethodGet, "/notification-events?sendTo=ana&status=2&createdAtEventsFrom=2024-03-01&createdAtEventsTo=2024-03-02&sortFields=createdAt,id&sortOrders=desc,asc&skip=&limit=10&includeAll=true&includeNested=1", "", asApp())
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Notification events obtained.", env["message"])
	assert.Len(t, env["data"], 1)
	assert.Equal(t, float64(1), env["paginate"].(map[string]any)["pages"])

	assert.Equal(t, port.ListEventsRequest{
		Caller:        port.Caller{ApplicationID: srv.appID, Token: appToken},
		IncludeAll:    true,
		IncludeNested: true,
		SendTo:        "ana",
		Status:        "2",
		CreatedFrom:   "2024-03-01",
		CreatedTo:     "2024-03-02",
		SortFields:    "createdAt,id",
		SortOrders:    "desc,asc",
		Skip:          "0",
		Limit:         "10",
	}, got)

	rec = srv.do(t, http.MethodGet, "/notification-events", "", asApp())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decodeEnvelope(t, rec), "paginate")
	assert.Empty(t, got.Skip)
}

func TestUpdateEvent(t *testing.T) {
	var got port.UpdateEventRequest
	srv := newTestServer(t, &eventsMock{
		UpdateFunc: func(ctx context.Context, req port.UpdateEventRequest) (domain.NotificationEvent, error) {
			got = req
			return domain.NotificationEvent{ID: req.ID, Status: domain.StatusFailed}, nil
		},
	})

	rec := srv.do(t, http.MethodPut, "/notification-events/4", `{"status": 2, "lastError": null, "attempts": 3}`, asApp())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Notification event updated.", decodeEnvelope(t, rec)["message"])
	assert.Equal(t, int64(4), got.ID)
	require.NotNil(t, got.Status)
	assert.Equal(t, 2, *got.Status)
	assert.True(t, got.LastError.Set)
	assert.True(t, got.LastError.Null)
	require.NotNil(t, got.Attempts)
	assert.Equal(t, 3, *got.Attempts)
	assert.Nil(t, got.SendTo)
}

func TestResendEvent(t *testing.T) {
	var got port.ResendEventRequest
	srv := newTestServer(t, &eventsMock{
		ResendFunc: func(ctx context.Context, req port.ResendEventRequest) (domain.NotificationEvent, error) {
			got = req
			return domain.NotificationEvent{ID: req.ID}, nil
		},
	})
	rec := srv.do(t, http.MethodPost, "/notification-events/8/resend?includeAll=true", "", asApp())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Notification event queued for resend.", decodeEnvelope(t, rec)["message"])
	assert.Equal(t, int64(8), got.ID)
	assert.True(t, got.IncludeAll)
}

func TestReport(t *testing.T) {
	srv := newTestServer(t, &eventsMock{
		ListFunc: func(ctx context.Context, req port.ListEventsRequest) (port.ListEventsResult, error) {
			assert.True(t, req.Caller.Admin)
			return port.ListEventsResult{Events: []domain.NotificationEvent{{ID: 1, SendTo: "a@b.com", CreatedAt: time.Now()}}}, nil
		},
	})
	rec := srv.do(t, http.MethodGet, "/notification-events/report.pdf?status=1", "", map[string]string{"Authorization": srv.adminToken(t, "admin")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestReportFilters(t *testing.T) {
	got := reportFilters(port.ListEventsRequest{SendTo: "ana", Status: "2", CreatedFrom: "2024-03-01", Caller: port.Caller{Admin: true}})
	assert.Equal(t, [][2]string{
		{"Recipients", "ana"},
		{"Status", "failed"},
		{"Created from", "2024-03-01"},
		{"Scope", "all applications"},
	}, got)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &eventsMock{})
	rec := srv.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeEnvelope(t, rec)["status"])

	h := healthHandler(map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return stderrors.New("connection refused") },
	})
	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["checks"].(map[string]any)["redis"])
}

func TestRateLimiter_InMemory(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(nil, 1, 2)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	assert.True(t, l.allow(ctx, "10.0.0.1"))
	assert.True(t, l.allow(ctx, "10.0.0.1"))
	assert.False(t, l.allow(ctx, "10.0.0.1"))
	assert.True(t, l.allow(ctx, "10.0.0.2"), "clients are counted separately")

	now = now.Add(time.Second)
	assert.True(t, l.allow(ctx, "10.0.0.1"), "window resets")
}

func TestRateLimiter_Middleware(t *testing.T) {
	l := NewRateLimiter(nil, 1, 1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySizeMiddleware(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"too":"large"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCircuitBreakerMiddleware(t *testing.T) {
	breaker := circuitbreaker.NewBreaker("http", 2, time.Minute, 1)
	h := CircuitBreakerMiddleware(breaker, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}
