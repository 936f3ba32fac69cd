package http

import (
	"net/http"
	"strings"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/auth"
	"github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/pkg/logger"
	"github.com/strogmv/notifyevents/internal/pkg/rbac"
	"github.com/strogmv/notifyevents/internal/port"
)

const applicationTokenHeader = "X-Application-Token"

// Identity resolves the port.Caller behind a request.
type Identity struct {
	Verifier     *auth.Verifier
	Applications port.ApplicationRepository
	AdminRole    string
}

// Middleware attaches the caller to the request context. A bearer JWT with the
// admin role yields an administrative caller; otherwise the application token
// header must name a registered application.
func (id *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearer := bearerToken(r); bearer != "" {
			if id.Verifier == nil {
				errors.WriteError(w, r, errors.New(http.StatusUnauthorized, "Unauthorized", "operator tokens are not accepted"))
				return
			}
			claims, err := id.Verifier.Verify(bearer)
			if err != nil {
				logger.From(r.Context()).Warn("rejected operator token", "error", err)
				errors.WriteError(w, r, errors.New(http.StatusUnauthorized, "Unauthorized", "Invalid JWT"))
				return
			}
			if !rbac.NewPolicy(id.adminRole()).Allows(claims.Roles, rbac.PermAdminister) {
				errors.WriteError(w, r, errors.New(http.StatusForbidden, "Forbidden", "administrator role required"))
				return
			}
			ctx := port.WithCaller(r.Context(), port.Caller{Admin: true})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token := strings.TrimSpace(r.Header.Get(applicationTokenHeader))
		if token == "" {
			errors.WriteError(w, r, errors.New(http.StatusUnauthorized, "Unauthorized", "application token required").WithCode(domain.CodeNoApplication))
			return
		}
		app, err := id.Applications.FindByToken(r.Context(), token)
		if err != nil {
			errors.WriteError(w, r, err)
			return
		}
		if app == nil {
			errors.WriteError(w, r, errors.Forbidden(domain.CodeNoApplication, "application token is not registered"))
			return
		}
		ctx := port.WithCaller(r.Context(), port.Caller{ApplicationID: app.ID, Token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (id *Identity) adminRole() string {
	if id.AdminRole == "" {
		return "admin"
	}
	return id.AdminRole
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func callerFrom(r *http.Request) port.Caller {
	c, _ := port.CallerFrom(r.Context())
	return c
}
