package retrieval

import "errors"

var (
	// ErrInvalidQuery is returned when the query is empty or whitespace after trimming.
	ErrInvalidQuery = errors.New("invalid query: query cannot be empty")
	// ErrStoreUnavailable is returned when the verse store cannot be read or holds no verses.
	// It is an infrastructure failure and distinct from a query that matched nothing.
	ErrStoreUnavailable = errors.New("verse store unavailable")
)
