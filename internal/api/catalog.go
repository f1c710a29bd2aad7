package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"animax/internal/jikan"
	"animax/internal/trailer"
)

// Envelope wraps every catalog response.
type Envelope struct {
	Data       interface{}       `json:"data"`
	Pagination *jikan.Pagination `json:"pagination,omitempty"`
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
}

// CatalogHandler holds dependencies for the anime catalog routes.
type CatalogHandler struct {
	Catalog  *jikan.Client
	Trailers *trailer.Client
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *jikan.Client, trailers *trailer.Client) *CatalogHandler {
	return &CatalogHandler{Catalog: catalog, Trailers: trailers}
}

func ok(data interface{}, message string) Envelope {
	return Envelope{Data: data, Success: true, Message: message}
}

func failed(err error) Envelope {
	return Envelope{Data: []interface{}{}, Success: false, Message: jikan.Message(err)}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, jikan.ErrNotFound), errors.Is(err, trailer.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, trailer.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (ch *CatalogHandler) respond(w http.ResponseWriter, r *http.Request, env Envelope, err error) {
	if err != nil {
		slog.Error("Catalog request failed", "path", r.URL.Path, "error", err)
		respondJSON(w, statusFor(err), failed(err))
		return
	}
	respondJSON(w, http.StatusOK, env)
}

func pageEnvelope[T any](page jikan.Page[T], message string) Envelope {
	env := ok(page.Data, message)
	env.Pagination = page.Pagination
	return env
}

// HandleAnime serves GET /api/anime.
func (ch *CatalogHandler) HandleAnime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ch.Catalog.SearchAnime(r.Context(), jikan.AnimeQuery{
		Q:       q.Get("q"),
		Type:    q.Get("type"),
		Rating:  q.Get("rating"),
		Status:  q.Get("status"),
		Genres:  q.Get("genres"),
		OrderBy: q.Get("order_by"),
		Sort:    q.Get("sort"),
		Page:    intParam(q.Get("page")),
		Limit:   intParam(q.Get("limit")),
	})
	ch.respond(w, r, pageEnvelope(page, "Movies fetched successfully"), err)
}

// HandleSeasonNow serves GET /api/seasons/now.
func (ch *CatalogHandler) HandleSeasonNow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ch.Catalog.SeasonNow(r.Context(), jikan.SeasonQuery{
		Filter: q.Get("filter"),
		Page:   intParam(q.Get("page")),
		Limit:  intParam(q.Get("limit")),
	})
	ch.respond(w, r, pageEnvelope(page, "Top Anime fetched successfully"), err)
}

// HandleSeasonUpcoming serves GET /api/seasons/upcoming.
func (ch *CatalogHandler) HandleSeasonUpcoming(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ch.Catalog.SeasonUpcoming(r.Context(), jikan.UpcomingQuery{
		Filter:            q.Get("filter"),
		ExcludeContinuing: q.Get("continuing") == "false",
		Page:              intParam(q.Get("page")),
		Limit:             intParam(q.Get("limit")),
	})
	ch.respond(w, r, pageEnvelope(page, "Upcoming Anime fetched successfully"), err)
}

// HandleTopAnime serves GET /api/top/anime.
func (ch *CatalogHandler) HandleTopAnime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ch.Catalog.TopAnime(r.Context(), jikan.TopQuery{
		Type:   q.Get("type"),
		Filter: q.Get("filter"),
		Page:   intParam(q.Get("page")),
		Limit:  intParam(q.Get("limit")),
	})
	ch.respond(w, r, pageEnvelope(page, "Top Anime fetched successfully"), err)
}

// HandleGenres serves GET /api/genres.
func (ch *CatalogHandler) HandleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := ch.Catalog.Genres(r.Context())
	ch.respond(w, r, ok(genres, "Genres fetched successfully"), err)
}

// HandleAnimeByID serves GET /api/anime/{id}.
func (ch *CatalogHandler) HandleAnimeByID(w http.ResponseWriter, r *http.Request) {
	id, valid := animeID(w, r)
	if !valid {
		return
	}
	anime, err := ch.Catalog.AnimeByID(r.Context(), id)
	ch.respond(w, r, ok(anime, "Anime fetched successfully"), err)
}

// HandleCharacters serves GET /api/anime/{id}/characters.
func (ch *CatalogHandler) HandleCharacters(w http.ResponseWriter, r *http.Request) {
	id, valid := animeID(w, r)
	if !valid {
		return
	}
	characters, err := ch.Catalog.Characters(r.Context(), id)
	ch.respond(w, r, ok(characters, "Character information fetched successfully"), err)
}

// HandleEpisodes serves GET /api/anime/{id}/episodes.
func (ch *CatalogHandler) HandleEpisodes(w http.ResponseWriter, r *http.Request) {
	id, valid := animeID(w, r)
	if !valid {
		return
	}
	page, err := ch.Catalog.Episodes(r.Context(), id, intParam(r.URL.Query().Get("page")))
	ch.respond(w, r, pageEnvelope(page, "Episodes fetched successfully"), err)
}

// HandleRecommendations serves GET /api/anime/{id}/recommendations.
func (ch *CatalogHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	id, valid := animeID(w, r)
	if !valid {
		return
	}
	q := r.URL.Query()
	recs, err := ch.Catalog.Recommendations(r.Context(), id, jikan.RecommendationQuery{
		OrderBy: q.Get("order_by"),
		Limit:   intParam(q.Get("limit")),
	})
	ch.respond(w, r, ok(recs, "Anime recommendations fetched successfully"), err)
}

// HandleTrailer serves GET /api/anime/{id}/trailer.
func (ch *CatalogHandler) HandleTrailer(w http.ResponseWriter, r *http.Request) {
	id, valid := animeID(w, r)
	if !valid {
		return
	}
	anime, err := ch.Catalog.AnimeByID(r.Context(), id)
	if err != nil {
		ch.respond(w, r, Envelope{}, err)
		return
	}
	if anime.Trailer.YoutubeID == "" {
		respondJSON(w, http.StatusNotFound, Envelope{Data: []interface{}{}, Success: false, Message: "No trailer available"})
		return
	}
	video, err := ch.Trailers.Lookup(r.Context(), anime.Trailer.YoutubeID)
	if err != nil {
		slog.Error("Trailer lookup failed", "anime", id, "video", anime.Trailer.YoutubeID, "error", err)
		respondJSON(w, statusFor(err), Envelope{Data: []interface{}{}, Success: false, Message: err.Error()})
		return
	}
	ch.respond(w, r, ok(video, "Trailer fetched successfully"), nil)
}

// HandleHome serves GET /api/home: every home page section fetched concurrently.
func (ch *CatalogHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	type section struct {
		name  string
		fetch func(ctx context.Context) (jikan.Page[jikan.Anime], error)
	}
	sections := []section{
		{"trending", func(ctx context.Context) (jikan.Page[jikan.Anime], error) {
			return ch.Catalog.SeasonNow(ctx, jikan.SeasonQuery{Filter: "tv", Limit: 10})
		}},
		{"upcoming", func(ctx context.Context) (jikan.Page[jikan.Anime], error) {
			return ch.Catalog.SeasonUpcoming(ctx, jikan.UpcomingQuery{Filter: "movie", Limit: 10})
		}},
		{"favorite", func(ctx context.Context) (jikan.Page[jikan.Anime], error) {
			return ch.Catalog.TopAnime(ctx, jikan.TopQuery{Filter: "favorite", Type: "tv", Limit: 5})
		}},
		{"popularity", func(ctx context.Context) (jikan.Page[jikan.Anime], error) {
			return ch.Catalog.TopAnime(ctx, jikan.TopQuery{Filter: "bypopularity", Limit: 5})
		}},
		{"latest", func(ctx context.Context) (jikan.Page[jikan.Anime], error) {
			return ch.Catalog.SeasonNow(ctx, jikan.SeasonQuery{Limit: 18})
		}},
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]Envelope, len(sections))
	)
	for _, s := range sections {
		wg.Add(1)
		go func(s section) {
			defer wg.Done()
			page, err := s.fetch(r.Context())
			env := pageEnvelope(page, "Anime fetched successfully")
			if err != nil {
				slog.Warn("Home section failed", "section", s.name, "error", err)
				env = failed(err)
			}
			mu.Lock()
			out[s.name] = env
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	respondJSON(w, http.StatusOK, out)
}

func animeID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		respondJSON(w, http.StatusBadRequest, Envelope{Data: []interface{}{}, Success: false, Message: "Invalid anime id"})
		return 0, false
	}
	return id, true
}

func intParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
