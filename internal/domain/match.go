package domain

// NotAvailable is the display text for a barcode or unit that is unknown.
const NotAvailable = "N/A"

// Document is a catalog entry as returned by the search service.
type Document struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Barcode string `json:"barcode"`
	Unit    string `json:"unit"`
}

// Match is one candidate catalog entry for a line item.
type Match struct {
	Document       Document `json:"document"`
	TextMatch      int64    `json:"text_match,omitempty"`
	VectorDistance *float64 `json:"vector_distance,omitempty"`
}

// SearchResult is one line item of an uploaded document together with its
// candidate matches, in the relevance order returned by the search service.
type SearchResult struct {
	ID      string  `json:"id"`
	Query   string  `json:"query"`
	Matches []Match `json:"matches"`
}

// OrNotAvailable returns s, or NotAvailable when s is empty.
func OrNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
