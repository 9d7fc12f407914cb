package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// PermissionsHandler exposes the static policy matrix.
type PermissionsHandler struct{}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler() *PermissionsHandler {
	return &PermissionsHandler{}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPolicy)
	r.Get("/me", h.mine)
}

type rolePolicy struct {
	Role    Role     `json:"role"`
	Actions []Action `json:"actions"`
}

func (h *PermissionsHandler) listPolicy(w http.ResponseWriter, r *http.Request) {
	roles := Roles()
	out := make([]rolePolicy, 0, len(roles))
	for _, role := range roles {
		out = append(out, rolePolicy{Role: role, Actions: Grants(role)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"actions": Actions(), "roles": out})
}

func (h *PermissionsHandler) mine(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.ActorFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"actor": actor, "actions": Grants(Role(actor.Role))})
}
