// Package jikan is a read-only client for the Jikan anime catalog REST API.
package jikan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"animax/internal/cache"
	"animax/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("no data found")

// StatusError reports a non-success HTTP status other than 404.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog request failed with status %d", e.Code)
}

// Client is an API client for the anime catalog.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a new catalog client. respCache may be nil to disable caching.
func NewClient(appConfig *config.AppConfig, client *http.Client, respCache cache.Cache) *Client {
	burst := int(appConfig.CatalogRateLimit)
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		baseURL:    appConfig.CatalogAPIURL,
		httpClient: client,
		cache:      respCache,
		cacheTTL:   appConfig.CatalogCacheTTL,
		limiter:    rate.NewLimiter(rate.Limit(appConfig.CatalogRateLimit), burst),
		maxRetries: appConfig.CatalogMaxRetries,
		retryDelay: appConfig.CatalogRetryDelay,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "anime-catalog",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Missing entries and caller cancellations say nothing about upstream health.
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Message turns a client error into the user-facing message of a failed envelope.
func Message(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "No data found"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "Anime catalog is temporarily unavailable"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Request failed with status: %d", statusErr.Code)
	default:
		return err.Error()
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, u); ok {
			slog.Debug("Catalog cache HIT", "url", u)
			return body, nil
		}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetchWithRetry(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(ctx, u, body, c.cacheTTL)
	}
	return body, nil
}

// fetchWithRetry retries 429 responses with a doubling delay.
func (c *Client) fetchWithRetry(ctx context.Context, u string) ([]byte, error) {
	delay := c.retryDelay
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, status, err := c.fetch(ctx, u)
		if err != nil {
			return nil, err
		}

		switch {
		case status == http.StatusTooManyRequests && attempt < c.maxRetries:
			slog.Warn("Rate limited by catalog, retrying", "url", u, "delay", delay, "retries_left", c.maxRetries-attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
			continue
		case status == http.StatusNotFound:
			return nil, ErrNotFound
		case status < 200 || status >= 300:
			return nil, &StatusError{Code: status, Body: string(body)}
		}
		return body, nil
	}
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error fetching %s: %w", u, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("error reading catalog response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func getPage[T any](ctx context.Context, c *Client, path string, params url.Values) (Page[T], error) {
	var page Page[T]
	body, err := c.get(ctx, path, params)
	if err != nil {
		return page, err
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return page, fmt.Errorf("error decoding catalog response for %s: %w", path, err)
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return page, nil
}

func getOne[T any](ctx context.Context, c *Client, path string) (T, error) {
	var envelope struct {
		Data T `json:"data"`
	}
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return envelope.Data, err
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return envelope.Data, fmt.Errorf("error decoding catalog response for %s: %w", path, err)
	}
	return envelope.Data, nil
}

// SearchAnime lists anime matching q and filters. Limit defaults to 18.
func (c *Client) SearchAnime(ctx context.Context, q AnimeQuery) (Page[Anime], error) {
	if q.Limit <= 0 {
		q.Limit = 18
	}
	params := url.Values{}
	setString(params, "q", q.Q)
	setString(params, "type", q.Type)
	setString(params, "rating", q.Rating)
	setString(params, "status", q.Status)
	setString(params, "genres", q.Genres)
	setString(params, "order_by", q.OrderBy)
	setString(params, "sort", q.Sort)
	setInt(params, "page", q.Page)
	setInt(params, "limit", q.Limit)
	return getPage[Anime](ctx, c, "/anime", params)
}

// SeasonNow lists anime airing this season.
func (c *Client) SeasonNow(ctx context.Context, q SeasonQuery) (Page[Anime], error) {
	params := url.Values{}
	setString(params, "filter", q.Filter)
	setInt(params, "page", q.Page)
	setInt(params, "limit", q.Limit)
	return getPage[Anime](ctx, c, "/seasons/now", params)
}

// SeasonUpcoming lists announced anime. Limit defaults to 5; continuing series are included unless excluded.
func (c *Client) SeasonUpcoming(ctx context.Context, q UpcomingQuery) (Page[Anime], error) {
	if q.Limit <= 0 {
		q.Limit = 5
	}
	params := url.Values{}
	setString(params, "filter", q.Filter)
	params.Set("continuing", strconv.FormatBool(!q.ExcludeContinuing))
	setInt(params, "page", q.Page)
	setInt(params, "limit", q.Limit)
	return getPage[Anime](ctx, c, "/seasons/upcoming", params)
}

// TopAnime lists ranked anime. Filter defaults to bypopularity and limit to 5.
func (c *Client) TopAnime(ctx context.Context, q TopQuery) (Page[Anime], error) {
	if q.Filter == "" {
		q.Filter = "bypopularity"
	}
	if q.Limit <= 0 {
		q.Limit = 5
	}
	params := url.Values{}
	setString(params, "type", q.Type)
	setString(params, "filter", q.Filter)
	setInt(params, "page", q.Page)
	setInt(params, "limit", q.Limit)
	return getPage[Anime](ctx, c, "/top/anime", params)
}

// AnimeByID fetches a single anime.
func (c *Client) AnimeByID(ctx context.Context, id int) (Anime, error) {
	return getOne[Anime](ctx, c, fmt.Sprintf("/anime/%d", id))
}

// Characters lists the characters of an anime.
func (c *Client) Characters(ctx context.Context, id int) ([]CharacterRole, error) {
	page, err := getPage[CharacterRole](ctx, c, fmt.Sprintf("/anime/%d/characters", id), nil)
	return page.Data, err
}

// Episodes lists one page of episodes of an anime.
func (c *Client) Episodes(ctx context.Context, id, pageNum int) (Page[Episode], error) {
	params := url.Values{}
	setInt(params, "page", pageNum)
	return getPage[Episode](ctx, c, fmt.Sprintf("/anime/%d/episodes", id), params)
}

// Recommendations lists anime recommended alongside id, without duplicate entries,
// truncated to the query limit.
func (c *Client) Recommendations(ctx context.Context, id int, q RecommendationQuery) ([]Recommendation, error) {
	if q.OrderBy == "" {
		q.OrderBy = "popularity"
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	params := url.Values{}
	setInt(params, "limit", q.Limit)
	setString(params, "order_by", q.OrderBy)
	page, err := getPage[Recommendation](ctx, c, fmt.Sprintf("/anime/%d/recommendations", id), params)
	if err != nil {
		return nil, err
	}
	recs := RemoveDuplicates(page.Data, func(r Recommendation) int { return r.Entry.MalID })
	if len(recs) > q.Limit {
		recs = recs[:q.Limit]
	}
	return recs, nil
}

// Genres lists anime genres.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	page, err := getPage[Genre](ctx, c, "/genres/anime", nil)
	return page.Data, err
}

// RemoveDuplicates keeps the first item for every key, preserving order.
func RemoveDuplicates[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

func setString(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

func setInt(params url.Values, key string, value int) {
	if value > 0 {
		params.Set(key, strconv.Itoa(value))
	}
}
