package integrations

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a package doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client with a standard timeout for registry requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NormalizeCrateName returns the form crates.io uses to key its index:
// lowercase, surrounding whitespace removed. Hyphens and underscores are
// kept since they are distinct in index paths.
func NormalizeCrateName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
