package domain

import (
	"sort"
	"time"
)

// Mapping associates extracted line-item text with the chosen catalog entry
// name. Keys are query text, so two line items with identical text share one
// entry and the last selection wins.
type Mapping map[string]string

// Queries returns the mapping keys in sorted order.
func (m Mapping) Queries() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy of m.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MappingEntry is a stored query to catalog-name association.
type MappingEntry struct {
	Query       string
	ProductName string
	UpdatedAt   time.Time
}
