package domain

// ListParams carries the route listing query sent to the backend.
// Page is 1-indexed. PageSize is capped at 100 by NewListParams, matching the
// server's own limit.
type ListParams struct {
	// Query filters by case-insensitive title substring. Empty means no filter.
	Query string
	// Page is the current page number, starting at 1.
	Page int
	// PageSize is the maximum number of routes to return.
	PageSize int
	// Sort is one of created_at, updated_at, distance_km.
	Sort string
	// Order is asc or desc.
	Order string
}

// NewListParams builds ListParams with the defaults the client uses when it
// refreshes the route list: page 1, 50 per page, most recently updated first.
// Non-positive page or size values fall back to the defaults.
func NewListParams(query string, page, pageSize int) ListParams {
	p := ListParams{Query: query, Page: 1, PageSize: 50, Sort: "updated_at", Order: "desc"}
	if page >= 1 {
		p.Page = page
	}
	if pageSize >= 1 {
		p.PageSize = pageSize
		if p.PageSize > 100 {
			p.PageSize = 100
		}
	}
	return p
}

// Offset returns the zero-based offset of the first route on the page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
