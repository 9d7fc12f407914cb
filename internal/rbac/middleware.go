package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Header names carrying the caller identity. Authentication happens upstream.
const (
	HeaderActorUser    = "X-Actor-User"
	HeaderActorRole    = "X-Actor-Role"
	HeaderActorCompany = "X-Actor-Company"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	CompanyID string
	Logger    *slog.Logger
}

// Actor copies the identity headers into the request context. Requests
// without them continue anonymously, with any actor already in the context
// cleared; Require rejects them later.
func (m Middleware) Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := shared.Actor{
			UserID:    strings.TrimSpace(r.Header.Get(HeaderActorUser)),
			Role:      strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole))),
			CompanyID: strings.TrimSpace(r.Header.Get(HeaderActorCompany)),
		}
		if actor.CompanyID == "" {
			actor.CompanyID = m.CompanyID
		}
		if actor.Valid() {
			r = r.WithContext(shared.ContextWithActor(r.Context(), actor))
		} else {
			r = r.WithContext(shared.WithoutActor(r.Context()))
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects requests whose actor may not perform action.
func (m Middleware) Require(action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := shared.ActorFromContext(r.Context())
			if err == nil {
				err = Authorize(actor, m.CompanyID, action)
			}
			if err != nil {
				if m.Logger != nil {
					m.Logger.Warn("rbac require", slog.String("action", string(action)), slog.String("user", actor.UserID), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticated rejects requests without an actor. Read endpoints are open
// to every role, viewer included.
func (m Middleware) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := shared.ActorFromContext(r.Context())
		if err == nil {
			err = shared.EnsureCompany(actor, m.CompanyID)
		}
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
