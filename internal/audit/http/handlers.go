package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

const maxDateRange = 90 * 24 * time.Hour

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
}

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
}

// NewHandler builds the audit handler.
func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if _, err := shared.ActorFromContext(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	invalid := func(field, msg string) error {
		return &httpx.ValidationError{Fields: map[string]string{field: msg}}
	}
	var filters audit.TimelineFilters
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filters, invalid("from", "expected YYYY-MM-DD")
		}
		filters.From = t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filters, invalid("to", "expected YYYY-MM-DD")
		}
		filters.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if !filters.From.IsZero() && !filters.To.IsZero() {
		if filters.From.After(filters.To) {
			return filters, invalid("range", "from after to")
		}
		if filters.To.Sub(filters.From) > maxDateRange {
			return filters, invalid("range", "range exceeds 90 days")
		}
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &filters.Page}, {"page_size", &filters.PageSize}} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return filters, invalid(p.name, "must be a positive integer")
		}
		*p.dst = parsed
	}
	filters.Actor = strings.TrimSpace(q.Get("actor"))
	filters.EntityType = strings.TrimSpace(q.Get("entity"))
	filters.EntityID = strings.TrimSpace(q.Get("entity_id"))
	filters.Action = strings.TrimSpace(q.Get("action"))
	return filters, nil
}
