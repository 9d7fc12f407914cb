package dataimport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Enqueuer hands a staged batch to the background worker.
type Enqueuer interface {
	EnqueueApply(ctx context.Context, result Result, actor shared.Actor) (string, error)
}

// Handler exposes staging and apply endpoints.
type Handler struct {
	logger    *slog.Logger
	mapper    *Mapper
	applier   *Applier
	enqueuer  Enqueuer
	rbac      rbac.Middleware
	companyID string
}

// NewHandler constructs the import handler. enqueuer may be nil, in which
// case async requests are applied inline.
func NewHandler(logger *slog.Logger, mapper *Mapper, applier *Applier, enqueuer Enqueuer, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, mapper: mapper, applier: applier, enqueuer: enqueuer, rbac: rbac, companyID: rbac.CompanyID}
}

// MountRoutes registers /imports routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/imports", func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionDataImport))
		r.Post("/stage", h.stage)
		r.Post("/apply", h.apply)
	})
}

type stagePayload struct {
	Kind           Kind   `json:"kind"`
	SourceFileName string `json:"sourceFileName"`
	Rows           []Row  `json:"rows"`
}

func (h *Handler) stage(w http.ResponseWriter, r *http.Request) {
	var payload stagePayload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		rows, err := ReadCSV(r.Body)
		if err != nil {
			httpx.RespondError(w, &httpx.ValidationError{Fields: map[string]string{"body": err.Error()}})
			return
		}
		payload = stagePayload{Kind: Kind(r.URL.Query().Get("kind")), SourceFileName: r.URL.Query().Get("file"), Rows: rows}
	} else {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			httpx.RespondError(w, &httpx.ValidationError{Fields: map[string]string{"body": err.Error()}})
			return
		}
	}
	if !payload.Kind.Valid() {
		httpx.RespondError(w, &httpx.ValidationError{Fields: map[string]string{"kind": "oneof products movements"}})
		return
	}
	result := h.mapper.Map(h.companyID, payload.Kind, payload.Rows, payload.SourceFileName)
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	var result Result
	if err := httpx.DecodeJSON(r, &result); err != nil {
		httpx.RespondError(w, &httpx.ValidationError{Fields: map[string]string{"body": err.Error()}})
		return
	}
	if r.URL.Query().Get("async") == "1" && h.enqueuer != nil {
		actor, err := shared.ActorFromContext(r.Context())
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		taskID, err := h.enqueuer.EnqueueApply(r.Context(), result, actor)
		if err != nil {
			h.logger.Error("enqueue import", slog.String("batch", result.Batch.BatchID), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]string{"batchId": result.Batch.BatchID, "taskId": taskID})
		return
	}
	out, err := h.applier.Apply(r.Context(), result, h.companyID)
	if err != nil && !shared.IsWarning(err) {
		h.logger.Info("import rejected", slog.String("batch", result.Batch.BatchID), slog.Any("error", err))
	}
	httpx.Committed(w, http.StatusOK, out, err)
}
