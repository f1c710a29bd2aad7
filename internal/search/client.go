// Package search queries the Google Custom Search API for telegram links.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"animax/internal/config"
	"animax/internal/store"
)

// ErrNotConfigured is returned when the API key or search engine id is missing.
var ErrNotConfigured = errors.New("search API configuration is missing")

// StatusError reports a non-success HTTP status from the search API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("search API request failed with status %d", e.Code)
	}
	return fmt.Sprintf("search API request failed with status %d: %s", e.Code, e.Message)
}

// Client is an API client for the Custom Search JSON API.
type Client struct {
	apiKey     string
	engineID   string
	siteFilter string
	endpoint   string
	httpClient *http.Client

	mu  sync.Mutex
	svc *customsearch.Service
}

// NewClient creates a new search client.
func NewClient(appConfig *config.AppConfig, client *http.Client) *Client {
	endpoint := appConfig.SearchAPIURL
	if endpoint != "" && !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &Client{
		apiKey:     appConfig.GoogleAPIKey,
		engineID:   appConfig.CSEID,
		siteFilter: appConfig.SearchSiteFilter,
		endpoint:   endpoint,
		httpClient: client,
	}
}

// Configured reports whether both credentials are present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.engineID != ""
}

func (c *Client) service(ctx context.Context) (*customsearch.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.svc != nil {
		return c.svc, nil
	}

	// The key is sent per call; a custom HTTP client bypasses option-based credentials.
	opts := []option.ClientOption{option.WithHTTPClient(c.httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}
	c.svc = svc
	return svc, nil
}

// Search returns the upstream hits for query in relevance order. Hits missing a
// title, link or snippet are dropped.
func (c *Client) Search(ctx context.Context, query string) ([]store.Result, error) {
	if !c.Configured() {
		slog.Warn("Custom search API key or engine id is not configured. Skipping search.")
		return nil, ErrNotConfigured
	}

	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	call := svc.Cse.List().Context(ctx).Q(query).Cx(c.engineID)
	if c.siteFilter != "" {
		call = call.SiteSearch(c.siteFilter).SiteSearchFilter("i")
	}

	slog.Info("Fetching custom search results", "query", query, "site", c.siteFilter)
	resp, err := call.Do(googleapi.QueryParameter("key", c.apiKey))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, &StatusError{Code: apiErr.Code, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("error fetching results from search API: %w", err)
	}

	results := make([]store.Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Title == "" || item.Link == "" || item.Snippet == "" {
			continue
		}
		results = append(results, store.Result{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	slog.Info("Fetched results from search API", "query", query, "count", len(results), "dropped", len(resp.Items)-len(results))
	return results, nil
}
