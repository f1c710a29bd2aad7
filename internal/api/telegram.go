package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"animax/internal/telegram"
)

// TelegramHandler serves GET /api/telegram.
type TelegramHandler struct {
	Service *telegram.Service
}

// NewTelegramHandler creates a new TelegramHandler.
func NewTelegramHandler(service *telegram.Service) *TelegramHandler {
	return &TelegramHandler{Service: service}
}

// HandleTelegram answers with cached or live telegram links for ?q=. Only a missing
// query is reported as a failure; everything else degrades to a 200 with an advisory error.
func (th *TelegramHandler) HandleTelegram(w http.ResponseWriter, r *http.Request) {
	query, err := telegram.Normalize(r.URL.Query().Get("q"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Search query is required")
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Telegram search panicked", "query", query, "panic", rec)
			respondJSON(w, http.StatusOK, telegram.Degraded(query, fmt.Errorf("%v", rec)))
		}
	}()

	slog.Info("Handling telegram search request", "query", query)
	respondJSON(w, http.StatusOK, th.Service.Lookup(r.Context(), query))
}
