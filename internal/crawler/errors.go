package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotCSV is returned when a location serves an HTML page instead of
	// a CSV export, typically a dev server's fallback route.
	ErrNotCSV = errors.New("not a csv")
	// ErrTooLarge is returned when a body exceeds the configured size cap.
	ErrTooLarge = errors.New("body exceeds size cap")
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http status %d from %s: %s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("http status %d from %s", e.StatusCode, e.URL)
}

// ValidationError rejects a crawl request before it is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
