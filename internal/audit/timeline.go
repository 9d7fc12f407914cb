package audit

import "time"

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// TimelineFilters holds the optional filters of a timeline query.
type TimelineFilters struct {
	From       time.Time
	To         time.Time
	Actor      string
	EntityType string
	EntityID   string
	Action     string
	Page       int
	PageSize   int
}

// PagingInfo stores simple pagination metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	HasNext  bool `json:"hasNext"`
	PageSize int  `json:"pageSize"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Result wraps a timeline page.
type Result struct {
	Rows   []Entry    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}

func (f TimelineFilters) match(e Entry) bool {
	if !f.From.IsZero() && e.PerformedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.PerformedAt.After(f.To) {
		return false
	}
	if f.Actor != "" && e.PerformedByUserID != f.Actor {
		return false
	}
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	return true
}

func (f TimelineFilters) normalise() (page, pageSize int) {
	pageSize = f.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page = f.Page
	if page <= 0 {
		page = 1
	}
	return page, pageSize
}
