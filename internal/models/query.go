package models

import (
	"fmt"
	"strings"
)

// GuidanceQuery is a question submitted for guidance or verse search.
type GuidanceQuery struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

// Validate trims the query and normalizes MaxResults into 1..ceiling, using def when unset.
// Returns an error if the query is empty after trimming.
func (q *GuidanceQuery) Validate(def, ceiling int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.MaxResults <= 0 {
		q.MaxResults = def
	}
	if ceiling > 0 && q.MaxResults > ceiling {
		q.MaxResults = ceiling
	}
	return nil
}
