package audit

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidEntry reports an entry missing its entity or action.
var ErrInvalidEntry = errors.New("audit: entity type, entity id and action required")

// Service records and reads the audit trail of one company.
type Service struct {
	store     *Store
	companyID string
	now       func() time.Time
}

// NewService builds the audit service over store.
func NewService(store *Store, companyID string) *Service {
	return &Service{store: store, companyID: companyID, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends one entry, filling id, company and timestamp when absent.
func (s *Service) Record(ctx context.Context, entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.EntityType) == "" || strings.TrimSpace(entry.EntityID) == "" || strings.TrimSpace(entry.Action) == "" {
		return Entry{}, ErrInvalidEntry
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CompanyID == "" {
		entry.CompanyID = s.companyID
	}
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = s.now()
	}
	s.store.Append(entry)
	return entry, nil
}

// Timeline lists entries newest first, one page at a time. One extra row is
// read to decide whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	page, pageSize := filters.normalise()
	offset := (page - 1) * pageSize

	matched := s.filtered(filters)
	window := make([]Entry, 0, pageSize+1)
	for i := offset; i < len(matched) && len(window) < pageSize+1; i++ {
		window = append(window, matched[i])
	}
	hasNext := len(window) > pageSize
	if hasNext {
		window = window[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: window, Paging: paging}, nil
}

// ForEntity lists the history of one entity oldest first.
func (s *Service) ForEntity(ctx context.Context, entityType, entityID string) []Entry {
	var out []Entry
	for _, e := range s.store.All() {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Service) filtered(filters TimelineFilters) []Entry {
	all := s.store.All()
	matched := make([]Entry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if filters.match(all[i]) {
			matched = append(matched, all[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].PerformedAt.After(matched[j].PerformedAt)
	})
	return matched
}
