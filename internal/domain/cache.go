package domain

// CachedRoute pairs a server route with client-only bookkeeping timestamps.
//
// CachedAt answers "how long have I had this route": it is set when the route
// is first seen and preserved across refreshes. RefreshedAt records the last
// time the payload was replaced. Both are ISO-8601 UTC strings.
type CachedRoute struct {
	Route       Route  `json:"route"`
	CachedAt    string `json:"cachedAt"`
	RefreshedAt string `json:"refreshedAt,omitempty"`
}

// SortKey returns the later of the server's updated_at and CachedAt, compared
// as strings. ISO-8601 UTC strings order lexicographically by time.
func (c CachedRoute) SortKey() string {
	if c.Route.Properties.UpdatedAt > c.CachedAt {
		return c.Route.Properties.UpdatedAt
	}
	return c.CachedAt
}
