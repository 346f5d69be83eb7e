// Package observability provides hooks for metrics, tracing, and logging.
//
// Library packages emit events through the hooks registered here; the CLI
// decides whether anything listens. The default hooks are no-ops, and
// [prom] provides a Prometheus implementation that can be written to a
// node-exporter textfile at the end of a run.
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetReleaseHooks(myHooks)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Release().OnPublishStart(ctx, name, version)
//	// ... run cargo publish ...
//	observability.Release().OnPublishComplete(ctx, name, version, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Release Hooks
// =============================================================================

// ReleaseHooks receives events from version resolution and publishing.
type ReleaseHooks interface {
	// OnLookup records one registry version lookup.
	OnLookup(ctx context.Context, pkg string, duration time.Duration, err error)

	// OnBump records a computed version change.
	OnBump(ctx context.Context, pkg, from, to string)

	// Publish events
	OnPublishStart(ctx context.Context, pkg, version string)
	OnPublishComplete(ctx context.Context, pkg, version string, duration time.Duration, err error)
	OnPublishSkip(ctx context.Context, pkg, version string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopReleaseHooks is a no-op implementation of ReleaseHooks.
type NoopReleaseHooks struct{}

func (NoopReleaseHooks) OnLookup(context.Context, string, time.Duration, error)                    {}
func (NoopReleaseHooks) OnBump(context.Context, string, string, string)                            {}
func (NoopReleaseHooks) OnPublishStart(context.Context, string, string)                            {}
func (NoopReleaseHooks) OnPublishComplete(context.Context, string, string, time.Duration, error) {}
func (NoopReleaseHooks) OnPublishSkip(context.Context, string, string)                             {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	releaseHooks ReleaseHooks = NoopReleaseHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	hooksMu      sync.RWMutex
)

// SetReleaseHooks registers custom release hooks.
func SetReleaseHooks(h ReleaseHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		releaseHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Release returns the registered release hooks.
func Release() ReleaseHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return releaseHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	releaseHooks = NoopReleaseHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
