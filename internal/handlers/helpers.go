package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/handsomefox/movie-ranking/internal/logger"
)

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn("write json failed", logger.Error(err))
	}
}

// render executes a page into a buffer first so a template failure can
// still produce a clean 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, view flashSetter) {
	tmpl, ok := h.pages[name]
	if !ok {
		h.log.Error("render: unknown page", slog.String("page", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	view.setFlashes(h.popFlashes(w, r))

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", view); err != nil {
		h.log.Error("render failed", slog.String("page", name), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn("write html failed", logger.Error(err))
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, e *Error) {
	h.render(w, r, e.Status, "error", &errorView{
		Status:     e.Status,
		StatusText: http.StatusText(e.Status),
		Message:    e.Message,
	})
}

func redirect(w http.ResponseWriter, r *http.Request, to string) error {
	http.Redirect(w, r, to, http.StatusFound)
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0, errors.New("missing id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("bad id")
	}
	return id, nil
}

// parseRating accepts any finite decimal number.
func parseRating(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("rating is required")
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, errors.New("rating must be a number, e.g. 7.8")
	}
	return val, nil
}

func badRequest(msg string) error { return &Error{Status: http.StatusBadRequest, Message: msg} }
func notFound(msg string) error   { return &Error{Status: http.StatusNotFound, Message: msg} }

func fromSQLNull[T any](v sql.Null[T]) *T {
	if v.Valid {
		return &v.V
	}
	return nil
}
