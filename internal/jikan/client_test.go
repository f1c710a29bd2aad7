package jikan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"animax/internal/cache"
	"animax/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.AppConfig{
		CatalogAPIURL:     srv.URL,
		CatalogCacheTTL:   time.Minute,
		CatalogRateLimit:  1000,
		CatalogMaxRetries: 3,
		CatalogRetryDelay: time.Millisecond,
	}
	return NewClient(cfg, srv.Client(), cache.NewShardedMemoryCache(time.Minute, time.Minute)), &hits
}

func TestSearchAnimeParams(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/anime" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "naruto" || q.Get("genres") != "1" || q.Get("limit") != "18" || q.Get("page") != "2" {
			t.Errorf("unexpected params %v", q)
		}
		if q.Has("rating") {
			t.Error("empty filters must be omitted")
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Error("expected JSON accept header")
		}
		w.Write([]byte(`{"pagination":{"last_visible_page":3,"has_next_page":true},"data":[
			{"mal_id":20,"title":"Naruto","title_english":"Naruto","episodes":220,"score":8.0,
			 "images":{"jpg":{"large_image_url":"https://cdn/naruto.jpg"}},
			 "genres":[{"mal_id":1,"name":"Action"}],"aired":{"string":"Oct 3, 2002 to Feb 8, 2007"}}
		]}`))
	})

	page, err := c.SearchAnime(context.Background(), AnimeQuery{Q: "naruto", Genres: "1", Page: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].MalID != 20 || page.Data[0].Images.JPG.LargeImageURL == "" {
		t.Fatalf("unexpected data %+v", page.Data)
	}
	if page.Pagination == nil || !page.Pagination.HasNextPage {
		t.Errorf("expected pagination, got %+v", page.Pagination)
	}
	if page.Data[0].Genres[0].Name != "Action" {
		t.Errorf("unexpected genres %+v", page.Data[0].Genres)
	}
}

func TestDefaults(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()
		w.Write([]byte(`{"data":[]}`))
	})
	ctx := context.Background()

	c.TopAnime(ctx, TopQuery{})
	c.SeasonUpcoming(ctx, UpcomingQuery{Filter: "movie"})

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		"/top/anime?filter=bypopularity&limit=5",
		"/seasons/upcoming?continuing=true&filter=movie&limit=5",
	}
	if len(seen) != len(want) {
		t.Fatalf("expected %d requests, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestResponsesAreCached(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"mal_id":1,"title":"Cowboy Bebop","trailer":{"youtube_id":"qig4KOK2R2g"}}}`))
	})

	for i := 0; i < 3; i++ {
		anime, err := c.AnimeByID(context.Background(), 1)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if anime.Title != "Cowboy Bebop" || anime.Trailer.YoutubeID != "qig4KOK2R2g" {
			t.Fatalf("unexpected anime %+v", anime)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected one upstream request, got %d", n)
	}
}

func TestRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":[{"mal_id":1,"name":"Action","count":5000}]}`))
	})

	genres, err := c.Genres(context.Background())
	if err != nil {
		t.Fatalf("genres: %v", err)
	}
	if len(genres) != 1 || genres[0].Name != "Action" {
		t.Errorf("unexpected genres %+v", genres)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestRateLimitRetriesExhausted(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Characters(context.Background(), 1)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 StatusError, got %v", err)
	}
	if n := hits.Load(); n != 4 {
		t.Errorf("expected 1 attempt + 3 retries, got %d", n)
	}
	if msg := Message(err); msg != "Request failed with status: 429" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":404,"message":"Resource does not exist"}`))
	})

	_, err := c.AnimeByID(context.Background(), 999999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if Message(err) != "No data found" {
		t.Errorf("unexpected message %q", Message(err))
	}
}

func TestBreakerOpensOnRepeatedFailures(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		c.Episodes(context.Background(), i+1, 1)
	}
	before := hits.Load()

	_, err := c.Episodes(context.Background(), 100, 1)
	if !strings.Contains(Message(err), "temporarily unavailable") {
		t.Errorf("expected open breaker, got %v", err)
	}
	if hits.Load() != before {
		t.Error("open breaker must not reach upstream")
	}
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 10; i++ {
		if _, err := c.AnimeByID(context.Background(), i+1); !errors.Is(err, ErrNotFound) {
			t.Fatalf("request %d: expected ErrNotFound, got %v", i, err)
		}
	}
}

func TestRecommendationsDeduplicated(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query(); q.Get("order_by") != "popularity" || q.Get("limit") != "2" {
			t.Errorf("unexpected upstream query %v", q)
		}
		w.Write([]byte(`{"data":[
			{"entry":{"mal_id":1,"title":"A"},"votes":10},
			{"entry":{"mal_id":2,"title":"B"},"votes":8},
			{"entry":{"mal_id":1,"title":"A again"},"votes":3},
			{"entry":{"mal_id":3,"title":"C"},"votes":2}
		]}`))
	})

	recs, err := c.Recommendations(context.Background(), 20, RecommendationQuery{Limit: 2})
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	if len(recs) != 2 || recs[0].Entry.Title != "A" || recs[1].Entry.MalID != 2 {
		t.Errorf("unexpected recommendations %+v", recs)
	}
}

func TestRemoveDuplicates(t *testing.T) {
	got := RemoveDuplicates([]string{"a", "b", "a", "c", "b"}, func(s string) string { return s })
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("unexpected result %v", got)
	}
}

func TestNullDataBecomesEmptyList(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null}`))
	})

	page, err := c.SeasonNow(context.Background(), SeasonQuery{Filter: "tv", Limit: 10})
	if err != nil {
		t.Fatalf("season now: %v", err)
	}
	if page.Data == nil || len(page.Data) != 0 {
		t.Errorf("expected empty list, got %#v", page.Data)
	}
}
