package handlers

import (
	"log/slog"
	"net/http"

	"github.com/handsomefox/movie-ranking/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

type listResponse struct {
	Movies []apiMovie `json:"movies"`
}

// AdaptJSON is Adapt for the JSON API: errors become {"error": ...}.
func (h *Handler) AdaptJSON(fn HandlerWithErr) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			statusErr := classify(err)
			if statusErr.Status >= http.StatusInternalServerError {
				h.log.Error("api request failed", slog.String("path", r.URL.Path), logger.Error(err))
			}
			writeJSON(h.log, w, statusErr.Status, &errorResponse{Error: statusErr.Message})
		}
	})
}

func (h *Handler) getAPIMovies(w http.ResponseWriter, r *http.Request) error {
	movies, err := h.rankedMovies(r.Context())
	if err != nil {
		return err
	}
	writeJSON(h.log, w, http.StatusOK, &listResponse{Movies: toAPIMovies(movies)})
	return nil
}
