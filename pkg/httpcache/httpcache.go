// Package httpcache fetches remote documents with a persistent cache and
// thundering herd prevention. It is used to pull source directories; the
// scoring packages never touch the network.
package httpcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/localfs"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"
)

// UserAgent identifies directory fetches.
const UserAgent = "exposure/1.0 (+https://github.com/codeGROOVE-dev/exposure)"

// maxBody bounds a fetched document.
const maxBody = 8 << 20

// Stats tracks cache hit/miss statistics.
type Stats struct {
	Hits   int64
	Misses int64
}

var hits, misses atomic.Int64

// CacheStats returns the current cache statistics.
func CacheStats() Stats {
	return Stats{Hits: hits.Load(), Misses: misses.Load()}
}

// ResetStats resets the cache statistics.
func ResetStats() {
	hits.Store(0)
	misses.Store(0)
}

// Cacher allows external cache implementations.
type Cacher interface {
	GetSet(ctx context.Context, key string, fetch func(context.Context) ([]byte, error), ttl ...time.Duration) ([]byte, error)
	TTL() time.Duration
}

// Cache wraps sfcache for document caching.
type Cache struct {
	*sfcache.TieredCache[string, []byte]

	ttl time.Duration
}

// New creates a new Cache with disk persistence at ~/.cache/exposure.
func New(ttl time.Duration) (*Cache, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return NewWithPath(ttl, filepath.Join(cacheDir, "exposure"))
}

// NewNull creates a Cache with no persistence (all gets miss, all sets discard).
func NewNull() *Cache {
	tc, err := sfcache.NewTiered[string, []byte](null.New[string, []byte]())
	if err != nil {
		panic("sfcache.NewTiered with null store: " + err.Error())
	}
	return &Cache{TieredCache: tc, ttl: 0}
}

// NewWithPath creates a new Cache with disk persistence at the specified path.
func NewWithPath(ttl time.Duration, cachePath string) (*Cache, error) {
	if err := os.MkdirAll(cachePath, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	persist, err := localfs.New[string, []byte]("exposure", cachePath)
	if err != nil {
		return nil, fmt.Errorf("create persistence layer: %w", err)
	}

	tc, err := sfcache.NewTiered[string, []byte](persist, sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &Cache{TieredCache: tc, ttl: ttl}, nil
}

// TTL returns the default TTL for cache entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Key derives the cache key for rawURL within namespace. Documents cached
// under one namespace are never served to another.
func Key(namespace, rawURL string) string {
	hash := sha256.Sum256([]byte(namespace + "\x00" + rawURL))
	return hex.EncodeToString(hash[:])
}

// HTTPError represents an HTTP error response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// ResponseValidator validates a response body. A non-nil error prevents caching
// and is returned to the caller.
type ResponseValidator func(body []byte) error

// Fetcher fetches documents through an optional cache.
type Fetcher struct {
	Cache  Cacher // nil disables caching
	Client *http.Client
	Logger *slog.Logger

	// Namespace scopes cache keys, typically to a document schema version.
	Namespace string

	// Attempts bounds retries of transient failures (default 3).
	Attempts uint
	// Timeout bounds the whole fetch including retries (default 10s).
	Timeout time.Duration
}

// Fetch returns the body at rawURL. Only bodies accepted by validate are cached.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, validate ResponseValidator) ([]byte, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if f.Cache == nil {
		logger.InfoContext(ctx, "cache disabled", "url", rawURL)
		misses.Add(1)
		body, err := f.do(ctx, rawURL, logger)
		if err != nil {
			return nil, err
		}
		if validate != nil {
			if err := validate(body); err != nil {
				return nil, err
			}
		}
		return body, nil
	}

	var fetched bool
	data, err := f.Cache.GetSet(ctx, Key(f.Namespace, rawURL), func(ctx context.Context) ([]byte, error) {
		fetched = true
		misses.Add(1)
		logger.InfoContext(ctx, "cache miss", "url", rawURL)
		body, err := f.do(ctx, rawURL, logger)
		if err != nil {
			return nil, err
		}
		if validate != nil {
			if err := validate(body); err != nil {
				logger.WarnContext(ctx, "not caching invalid document", "url", rawURL, "error", err)
				return nil, err
			}
		}
		return body, nil
	}, f.Cache.TTL())
	if err != nil {
		return nil, err
	}

	if !fetched {
		hits.Add(1)
		logger.DebugContext(ctx, "cache hit", "url", rawURL)
	}
	return data, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, logger *slog.Logger) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	attempts := f.Attempts
	if attempts == 0 {
		attempts = 3
	}
	timeout := f.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/yaml, text/yaml, text/plain, */*")

	return retry.DoWithData(
		func() ([]byte, error) {
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close() //nolint:errcheck // intentional

			if resp.StatusCode != http.StatusOK {
				return nil, &HTTPError{StatusCode: resp.StatusCode, URL: rawURL}
			}

			return io.ReadAll(io.LimitReader(resp.Body, maxBody))
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(200*time.Millisecond),
		retry.MaxJitter(100*time.Millisecond),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			logger.DebugContext(ctx, "retrying fetch", "attempt", n+1, "url", rawURL, "error", err)
		}),
	)
}

// isRetryableError returns true for transient errors that should be retried.
func isRetryableError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false // 4xx errors (except 429) are permanent
		}
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
