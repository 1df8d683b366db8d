package domain

// ProductHit is the top shopping result for a query.
type ProductHit struct {
	Title       string   `json:"title"`
	Link        string   `json:"link,omitempty"`
	Image       string   `json:"image,omitempty"`
	Price       string   `json:"price,omitempty"`
	Source      string   `json:"source,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
}

// QueryResult is the per-query outcome of a search; exactly one of Item/Error
// describes the result, and Item may be nil when nothing matched.
type QueryResult struct {
	Query  string      `json:"query"`
	Item   *ProductHit `json:"item"`
	Cached bool        `json:"cached"`
	Error  string      `json:"error,omitempty"`
}
