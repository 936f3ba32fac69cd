package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/notifyevents/internal/domain"
)

func TestAsThroughWrapping(t *testing.T) {
	base := BadRequest(domain.CodeNoSendTo, "sendTo is required")
	wrapped := fmt.Errorf("create: %w", base)

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.True(t, Is(wrapped, domain.CodeNoSendTo))
	assert.False(t, Is(wrapped, domain.CodeNoData))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(stderrors.New("boom")))
}

func TestProcessingHidesCause(t *testing.T) {
	cause := stderrors.New("dial tcp 10.0.0.1:5432: refused")
	err := Processing(domain.CodeRegisterEvent, cause)

	assert.ErrorIs(t, err, cause)
	p := ProblemFor(err, "en")
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Empty(t, p.Detail)
	assert.Equal(t, domain.CodeRegisterEvent, p.Code)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		lang       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "forbidden localized",
			err:        Forbidden(domain.CodeNoTokenMatch, "token mismatch"),
			lang:       "es",
			wantStatus: http.StatusForbidden,
			wantCode:   domain.CodeNoTokenMatch,
			wantMsg:    "El token de la aplicación no coincide con el medio de envío.",
		},
		{
			name:       "not found",
			err:        NotFound(domain.CodeNoQueriedData, "event 7"),
			lang:       "en",
			wantStatus: http.StatusNotFound,
			wantCode:   domain.CodeNoQueriedData,
			wantMsg:    "The requested notification event does not exist.",
		},
		{
			name:       "plain error",
			err:        stderrors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.lang != "" {
				r.Header.Set("Accept-Language", tt.lang)
			}
			w := httptest.NewRecorder()
			WriteError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
			var p Problem
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
			assert.Equal(t, "about:blank", p.Type)
			assert.Equal(t, tt.wantCode, p.Code)
			assert.Equal(t, tt.wantMsg, p.Message)
		})
	}
}
