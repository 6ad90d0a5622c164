package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/handsomefox/movie-ranking/internal/logger"
	"github.com/handsomefox/movie-ranking/internal/store"
	"github.com/handsomefox/movie-ranking/internal/tmdb"
)

type HandlerWithErr func(w http.ResponseWriter, r *http.Request) error

type Error struct {
	Status  int
	Message string
}

func (e Error) Error() string {
	return e.Message + " code=" + strconv.FormatInt(int64(e.Status), 10)
}

// Adapt turns a HandlerWithErr into an http.Handler that renders the error
// page for any returned error.
func (h *Handler) Adapt(fn HandlerWithErr) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			statusErr := classify(err)
			if statusErr.Status >= http.StatusInternalServerError {
				h.log.Error("request failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					logger.Error(err))
			}
			h.renderError(w, r, statusErr)
		}
	})
}

func classify(err error) *Error {
	var statusErr *Error
	if errors.As(err, &statusErr) {
		return statusErr
	}
	var upstream *tmdb.UpstreamError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Status: http.StatusNotFound, Message: "movie not found"}
	case errors.Is(err, store.ErrDuplicateTitle):
		return &Error{Status: http.StatusConflict, Message: "that movie is already on your list"}
	case errors.As(err, &upstream):
		return &Error{Status: http.StatusBadGateway, Message: "the movie database is unavailable, try again later"}
	}
	return &Error{Status: http.StatusInternalServerError, Message: "something went wrong"}
}
