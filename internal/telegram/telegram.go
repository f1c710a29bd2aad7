// Package telegram implements the read-through cache behind the telegram link search:
// probe the store, fall back to the upstream search API, and write fresh results back
// in the background.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"animax/internal/search"
	"animax/internal/store"
	"animax/internal/worker"
)

// ErrEmptyQuery is returned by Normalize for blank input.
var ErrEmptyQuery = errors.New("search query is required")

// Advisory messages returned alongside a 200 response.
const (
	AdvisoryNotConfigured = "Search API configuration is missing"
	AdvisoryRateLimited   = "Search API rate limit exceeded"
	AdvisoryUpstream      = "Failed to fetch results from search API"
	AdvisoryTimeout       = "Search request timed out"
	AdvisoryUnexpected    = "An error occurred while processing your request"
)

// Response is the body of every non-validation telegram search response.
type Response struct {
	Results   []store.Result `json:"results"`
	FromCache bool           `json:"fromCache"`
	Query     string         `json:"query"`
	Error     string         `json:"error,omitempty"`
}

// Searcher fetches live results from the upstream search API.
type Searcher interface {
	Search(ctx context.Context, query string) ([]store.Result, error)
}

// StoreProvider hands out a connected store, connecting if absent.
type StoreProvider interface {
	Get(ctx context.Context) (store.Store, error)
}

// Submitter accepts background jobs without waiting for them.
type Submitter interface {
	Submit(job worker.Job) error
}

// Options bounds the suspension points of a lookup.
type Options struct {
	ProbeTimeout   time.Duration
	SearchTimeout  time.Duration
	ConnectTimeout time.Duration
}

// Service answers telegram link searches.
type Service struct {
	stores   StoreProvider
	searcher Searcher
	writer   Submitter
	opts     Options
	now      func() time.Time
}

// NewService wires a Service. Zero timeouts fall back to 1s probe, 5s search, 10s connect.
func NewService(stores StoreProvider, searcher Searcher, writer Submitter, opts Options) *Service {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = time.Second
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = 5 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	return &Service{
		stores:   stores,
		searcher: searcher,
		writer:   writer,
		opts:     opts,
		now:      time.Now,
	}
}

// Normalize trims and collapses whitespace in a raw query.
func Normalize(raw string) (string, error) {
	q := strings.Join(strings.Fields(raw), " ")
	if q == "" {
		return "", ErrEmptyQuery
	}
	return q, nil
}

// Lookup resolves a normalized query. It never fails: degraded paths return an
// empty result list with an advisory error.
func (s *Service) Lookup(ctx context.Context, query string) Response {
	if cq, err := s.probe(ctx, query); err == nil {
		slog.Info("Cache HIT", "query", query, "matched", cq.Query)
		return Response{
			Results:   nonNil(cq.Results),
			FromCache: true,
			Query:     cq.Query,
		}
	} else if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotConfigured) {
		slog.Info("Cache MISS", "query", query)
	} else {
		slog.Warn("Cache probe failed, falling back to search API", "query", query, "error", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	results, err := s.searcher.Search(searchCtx, query)
	if err != nil {
		slog.Error("Search API lookup failed", "query", query, "error", err)
		return Degraded(query, err)
	}

	if len(results) > 0 {
		s.writeBack(store.CachedQuery{
			Query:       query,
			Results:     results,
			LastUpdated: s.now(),
		})
	}

	return Response{
		Results:   nonNil(results),
		FromCache: false,
		Query:     query,
	}
}

// probe looks the query up exactly, then by substring. The store work runs on a
// context detached from the caller so a slow first connection can finish for later
// requests; the caller only waits ProbeTimeout.
func (s *Service) probe(ctx context.Context, query string) (*store.CachedQuery, error) {
	type outcome struct {
		cq  *store.CachedQuery
		err error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Cache probe panicked", "query", query, "panic", r)
				ch <- outcome{err: fmt.Errorf("cache probe panicked: %v", r)}
			}
		}()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ConnectTimeout)
		defer cancel()
		cq, err := s.findCached(bg, query)
		ch <- outcome{cq, err}
	}()

	timer := time.NewTimer(s.opts.ProbeTimeout)
	defer timer.Stop()

	select {
	case o := <-ch:
		return o.cq, o.err
	case <-timer.C:
		return nil, fmt.Errorf("cache probe: %w", context.DeadlineExceeded)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) findCached(ctx context.Context, query string) (*store.CachedQuery, error) {
	st, err := s.stores.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to store: %w", err)
	}
	cq, err := st.FindExact(ctx, query)
	if !errors.Is(err, store.ErrNotFound) {
		return cq, err
	}
	return st.FindContaining(ctx, query)
}

func (s *Service) writeBack(cq store.CachedQuery) {
	job := worker.Job{
		Name: "cache query " + cq.Query,
		Run: func(ctx context.Context) error {
			st, err := s.stores.Get(ctx)
			if errors.Is(err, store.ErrNotConfigured) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("connecting to store: %w", err)
			}
			if err := st.Upsert(ctx, cq); err != nil {
				return err
			}
			slog.Debug("Cached search results", "query", cq.Query, "count", len(cq.Results))
			return nil
		},
	}
	if err := s.writer.Submit(job); err != nil {
		slog.Warn("Dropping cache write", "query", cq.Query, "error", err)
	}
}

// Degraded builds the 200 response for a failed lookup.
func Degraded(query string, err error) Response {
	return Response{
		Results:   []store.Result{},
		FromCache: false,
		Query:     query,
		Error:     Advisory(err),
	}
}

// Advisory maps an error to the message shown next to empty results.
func Advisory(err error) string {
	var statusErr *search.StatusError
	switch {
	case errors.Is(err, search.ErrNotConfigured):
		return AdvisoryNotConfigured
	case errors.As(err, &statusErr) && statusErr.Code == 429:
		return AdvisoryRateLimited
	case errors.As(err, &statusErr):
		return AdvisoryUpstream
	case errors.Is(err, context.DeadlineExceeded):
		return AdvisoryTimeout
	case err != nil && isTimeoutMessage(err.Error()):
		return AdvisoryTimeout
	default:
		return AdvisoryUnexpected
	}
}

func isTimeoutMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out")
}

func nonNil(results []store.Result) []store.Result {
	if results == nil {
		return []store.Result{}
	}
	return results
}
