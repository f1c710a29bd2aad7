package api

import (
	"fmt"
	"net/http"
	"time"

	"animax/internal/logger"
)

// Handlers groups every route handler of the site.
type Handlers struct {
	Telegram *TelegramHandler
	Catalog  *CatalogHandler
	Sitemap  *SitemapHandler
}

// NewRouter registers all routes and wraps them in the standard middleware chain.
func NewRouter(h Handlers, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/telegram", h.Telegram.HandleTelegram)

	mux.HandleFunc("GET /api/home", h.Catalog.HandleHome)
	mux.HandleFunc("GET /api/anime", h.Catalog.HandleAnime)
	mux.HandleFunc("GET /api/anime/{id}", h.Catalog.HandleAnimeByID)
	mux.HandleFunc("GET /api/anime/{id}/characters", h.Catalog.HandleCharacters)
	mux.HandleFunc("GET /api/anime/{id}/episodes", h.Catalog.HandleEpisodes)
	mux.HandleFunc("GET /api/anime/{id}/recommendations", h.Catalog.HandleRecommendations)
	mux.HandleFunc("GET /api/anime/{id}/trailer", h.Catalog.HandleTrailer)
	mux.HandleFunc("GET /api/seasons/now", h.Catalog.HandleSeasonNow)
	mux.HandleFunc("GET /api/seasons/upcoming", h.Catalog.HandleSeasonUpcoming)
	mux.HandleFunc("GET /api/top/anime", h.Catalog.HandleTopAnime)
	mux.HandleFunc("GET /api/genres", h.Catalog.HandleGenres)

	mux.HandleFunc("GET /sitemap.xml", h.Sitemap.HandleSitemap)
	mux.HandleFunc("GET /health", handleHealth)

	return gzipMiddleware(logMiddleware(recoverMiddleware(timeoutMiddleware(requestTimeout, mux))))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339)); err != nil {
		logger.LogError("Warning: failed to write health check response: %v", err)
	}
}
