package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/notifyevents/internal/bootstrap"
	"github.com/strogmv/notifyevents/internal/catalog"
	"github.com/strogmv/notifyevents/internal/config"
	"github.com/strogmv/notifyevents/internal/pkg/auth"
)

const sampleCatalog = `
types: email: name: "E-mail"
applications: crm: {name: "CRM", token: "crm-token-0123456789"}
media: "mail-crm": {type: "email", application: "crm"}
templates: welcome: {type: "email", subject: "Welcome aboard", route: "welcome"}
`

func memoryConfig() *config.Config {
	return &config.Config{
		StorageBackend:      "memory",
		AttachmentBackend:   "memory",
		AttachmentKeyPrefix: "attachments",
		AttachmentWorkers:   2,
		RequestTimeout:      "5s",
		MaxBodyBytes:        1 << 20,
		CORSOrigins:         []string{"*"},
		BreakerThreshold:    5,
		BreakerTimeout:      30 * time.Second,
		BreakerHalfOpenMax:  1,
		JWTAlg:              "HS256",
		JWTPrivateKey:       "test-secret",
		JWTIssuer:           "notifyevents",
		JWTAudience:         "notifyevents-api",
		JWTAccessTTL:        "5m",
		AdminRole:           "admin",
	}
}

func newMemoryContainer(t *testing.T) (*Container, http.Handler) {
	t.Helper()
	ctx := context.Background()
	cfg := memoryConfig()

	rt, err := bootstrap.NewRuntime(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	c, err := NewContainer(ctx, cfg, rt)
	require.NoError(t, err)
	assert.Nil(t, c.Dispatcher)
	assert.Nil(t, c.Relay)

	cat, err := catalog.Load([]byte(sampleCatalog), "catalog.cue")
	require.NoError(t, err)
	_, err = catalog.Seed(ctx, cat, c.Catalog)
	require.NoError(t, err)

	router, err := c.Router()
	require.NoError(t, err)
	return c, router
}

func serve(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestContainer_EndToEnd(t *testing.T) {
	c, router := newMemoryContainer(t)
	app := map[string]string{"X-Application-Token": "crm-token-0123456789"}

	rec := serve(router, http.MethodPost, "/notification-events", `{
		"notificationMediumName": "mail-crm",
		"templateCode": "welcome",
		"context": {"name": "Ana"},
		"sendTo": ["ana@x.io"],
		"attachments": [{"fileName": "a.txt", "file": "aGVsbG8=", "extension": "txt"}]
	}`, app)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data struct {
			ID          int64          `json:"id"`
			Data        map[string]any `json:"data"`
			Attachments []struct {
				Data string `json:"data"`
			} `json:"attachments"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Welcome aboard", created.Data.Data["subject"])
	require.Len(t, created.Data.Attachments, 1)
	assert.True(t, strings.HasPrefix(created.Data.Attachments[0].Data, "mem://attachments/"))

	rec = serve(router, http.MethodGet, "/notification-events?skip=0", "", app)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data     []map[string]any `json:"data"`
		Paginate struct {
			Total int `json:"total"`
		} `json:"paginate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Paginate.Total)

	token, err := auth.IssueAccessToken(c.Config, "ops", []string{"admin"})
	require.NoError(t, err)
	admin := map[string]string{"Authorization": "Bearer " + token}

	rec = serve(router, http.MethodPut, "/notification-events/1", `{"status": 2, "lastError": "mailbox full", "attempts": 1}`, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(router, http.MethodPost, "/notification-events/1/resend", "", admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resent struct {
		Data struct {
			Status    int     `json:"status"`
			Attempts  int     `json:"attempts"`
			LastError *string `json:"lastError"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resent))
	assert.Equal(t, 0, resent.Data.Status)
	assert.Equal(t, 0, resent.Data.Attempts)
	assert.Nil(t, resent.Data.LastError)

	rec = serve(router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRuntime_RejectsUnknownBackends(t *testing.T) {
	cfg := memoryConfig()
	cfg.StorageBackend = "sqlite"
	_, err := bootstrap.NewRuntime(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown storage backend")

	cfg = memoryConfig()
	cfg.AttachmentBackend = "ftp"
	_, err = bootstrap.NewRuntime(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown attachment backend")
}
