// Package store persists telegram search results so repeated queries can be served
// without calling the upstream search API.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no stored record matches a query.
	ErrNotFound = errors.New("cached query not found")
	// ErrNotConfigured is returned when no database URL is configured.
	ErrNotConfigured = errors.New("database URL is not configured")
)

// Result is a single search hit in upstream relevance order.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// CachedQuery is the stored result set for one distinct query.
type CachedQuery struct {
	Query       string    `json:"query"`
	Results     []Result  `json:"results"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Store is a document store of cached queries keyed by Key(query).
type Store interface {
	// FindExact returns the record whose key equals Key(query).
	FindExact(ctx context.Context, query string) (*CachedQuery, error)
	// FindContaining returns the most recently updated record whose key contains Key(query).
	FindContaining(ctx context.Context, query string) (*CachedQuery, error)
	// Upsert inserts or replaces the record for Key(cq.Query).
	Upsert(ctx context.Context, cq CachedQuery) error
	Close() error
}

// Key returns the case-insensitive uniqueness key of a query.
func Key(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Open connects to the store named by databaseURL.
//
//	redis://[:password@]host:port/db
//	rediss://...
//	sqlite:///absolute/path.db or sqlite://relative/path.db
//	memory://
func Open(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return nil, ErrNotConfigured
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	switch u.Scheme {
	case "redis", "rediss":
		return OpenRedis(ctx, databaseURL)
	case "sqlite":
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("sqlite database URL has no path: %q", databaseURL)
		}
		return OpenSQLite(ctx, path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

func copyResults(in []Result) []Result {
	out := make([]Result, len(in))
	copy(out, in)
	return out
}
