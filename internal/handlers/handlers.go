// Package handlers wires HTTP routing and the movie list pages.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/gorilla/sessions"

	"github.com/handsomefox/movie-ranking/internal/env"
	"github.com/handsomefox/movie-ranking/internal/metrics"
	"github.com/handsomefox/movie-ranking/internal/store"
	"github.com/handsomefox/movie-ranking/internal/tmdb"
	"github.com/handsomefox/movie-ranking/internal/web"
)

// MovieStore is the persistence the pages need. Every call commits before
// it returns.
type MovieStore interface {
	Rerank(ctx context.Context) ([]store.Movie, error)
	Get(ctx context.Context, id int64) (store.Movie, error)
	GetByTitle(ctx context.Context, title string) (store.Movie, error)
	Insert(ctx context.Context, nm store.NewMovie) (store.Movie, error)
	UpdateReview(ctx context.Context, id int64, rating float64, review string) (store.Movie, error)
	Delete(ctx context.Context, id int64) error
}

// Catalog is the external movie database.
type Catalog interface {
	Search(ctx context.Context, query string) ([]tmdb.SearchResult, error)
	Details(ctx context.Context, id int64) (*tmdb.Detail, error)
	PosterURL(posterPath string) string
}

type Handler struct {
	store       MovieStore
	catalog     Catalog
	metrics     *metrics.Metrics
	log         *slog.Logger
	sessions    *sessions.CookieStore
	pages       map[string]*template.Template
	static      fs.FS
	corsOrigins []string
}

type Config struct {
	Store         MovieStore
	Catalog       Catalog
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	Env           env.Environment
	SessionSecret string
	CORSOrigins   []string
}

func New(cfg *Config) (*Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("catalog client is required")
	}
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return nil, errors.New("session secret is required")
	}

	pages, err := web.Pages()
	if err != nil {
		return nil, err
	}
	static, err := web.Static()
	if err != nil {
		return nil, fmt.Errorf("failed to load static assets: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		store:       cfg.Store,
		catalog:     cfg.Catalog,
		metrics:     cfg.Metrics,
		log:         log,
		sessions:    newSessionStore(cfg.SessionSecret, cfg.Env),
		pages:       pages,
		static:      static,
		corsOrigins: cfg.CORSOrigins,
	}, nil
}

// Router returns the full HTTP surface.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(h.log, &httplog.Options{
		Level:         slog.LevelInfo,
		Schema:        httplog.SchemaECS,
		RecoverPanics: true,
	}))

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(h.static))))
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	r.NotFound(h.Adapt(func(http.ResponseWriter, *http.Request) error {
		return notFound("page not found")
	}).ServeHTTP)

	h.RegisterRoutes(r)

	r.Route("/api", func(r chi.Router) {
		if len(h.corsOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: h.corsOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders: []string{"Accept"},
				MaxAge:         300,
			}))
		}
		r.Method(http.MethodGet, "/movies", h.AdaptJSON(h.getAPIMovies))
	})
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Method(http.MethodGet, "/", h.Adapt(h.getIndex))

	r.Method(http.MethodGet, "/add", h.Adapt(h.getAdd))
	r.Method(http.MethodPost, "/add", h.Adapt(h.postAdd))

	r.Method(http.MethodGet, "/select/{id:[0-9]+}", h.Adapt(h.getSelect))

	r.Method(http.MethodGet, "/edit/{id:[0-9]+}", h.Adapt(h.getEdit))
	r.Method(http.MethodPost, "/edit/{id:[0-9]+}", h.Adapt(h.postEdit))

	r.Method(http.MethodGet, "/delete/{id:[0-9]+}", h.Adapt(h.getDelete))
}

// rankedMovies recalculates rankings and returns the list ascending by
// rating.
func (h *Handler) rankedMovies(ctx context.Context) ([]store.Movie, error) {
	movies, err := h.store.Rerank(ctx)
	if err != nil {
		h.log.Warn("rerank failed", slog.Any("err", err))
		return nil, err
	}
	h.metrics.RecordRerank(len(movies))
	return movies, nil
}

func (h *Handler) getIndex(w http.ResponseWriter, r *http.Request) error {
	movies, err := h.rankedMovies(r.Context())
	if err != nil {
		return err
	}
	h.render(w, r, http.StatusOK, "index", &indexView{Movies: toMovieViews(movies)})
	return nil
}

func (h *Handler) getAdd(w http.ResponseWriter, r *http.Request) error {
	h.render(w, r, http.StatusOK, "add", &addView{})
	return nil
}

func (h *Handler) postAdd(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return badRequest("bad form")
	}

	title := strings.TrimSpace(r.PostFormValue("title"))
	if title == "" {
		h.render(w, r, http.StatusBadRequest, "add", &addView{Error: "Movie title is required."})
		return nil
	}

	results, err := h.catalog.Search(r.Context(), title)
	if err != nil {
		h.log.Warn("add: tmdb search failed", slog.String("query", title), slog.Any("err", err))
		return err
	}

	h.render(w, r, http.StatusOK, "select", &selectView{Query: title, Results: results})
	return nil
}

func (h *Handler) getSelect(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	catalogID, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}

	detail, err := h.catalog.Details(ctx, catalogID)
	if err != nil {
		h.log.Warn("select: tmdb details failed", slog.Int64("tmdb_id", catalogID), slog.Any("err", err))
		return err
	}

	_, err = h.store.Insert(ctx, store.NewMovie{
		Title:       detail.Title,
		Year:        detail.ReleaseDate,
		Description: detail.Overview,
		ImgURL:      h.catalog.PosterURL(detail.PosterPath),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTitle) {
			return &Error{Status: http.StatusConflict, Message: fmt.Sprintf("%q is already on your list.", detail.Title)}
		}
		h.log.Warn("select: insert failed", slog.Any("err", err))
		return err
	}
	h.metrics.RecordChange("create")

	movie, err := h.store.GetByTitle(ctx, detail.Title)
	if err != nil {
		return err
	}

	h.addFlash(w, r, fmt.Sprintf("Added %s. Give it a rating.", movie.Title))
	return redirect(w, r, "/edit/"+strconv.FormatInt(movie.ID, 10))
}

func (h *Handler) getEdit(w http.ResponseWriter, r *http.Request) error {
	movie, err := h.movieFromPath(r)
	if err != nil {
		return err
	}
	h.render(w, r, http.StatusOK, "edit", &editView{Movie: toMovieView(&movie)})
	return nil
}

func (h *Handler) postEdit(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	movie, err := h.movieFromPath(r)
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		return badRequest("bad form")
	}

	rating, err := parseRating(r.PostFormValue("rating"))
	review := strings.TrimSpace(r.PostFormValue("review"))
	if err == nil && review == "" {
		err = errors.New("review is required")
	}
	if err != nil {
		h.render(w, r, http.StatusBadRequest, "edit", &editView{
			Movie: toMovieView(&movie),
			Error: capitalize(err.Error()) + ".",
		})
		return nil
	}

	if _, err := h.store.UpdateReview(ctx, movie.ID, rating, review); err != nil {
		return err
	}
	h.metrics.RecordChange("update")

	h.addFlash(w, r, "Saved your review of "+movie.Title+".")
	return redirect(w, r, "/")
}

func (h *Handler) getDelete(w http.ResponseWriter, r *http.Request) error {
	movie, err := h.movieFromPath(r)
	if err != nil {
		return err
	}
	if err := h.store.Delete(r.Context(), movie.ID); err != nil {
		return err
	}
	h.metrics.RecordChange("delete")

	h.addFlash(w, r, "Removed "+movie.Title+".")
	return redirect(w, r, "/")
}

func (h *Handler) movieFromPath(r *http.Request) (store.Movie, error) {
	id, err := idParam(r, "id")
	if err != nil {
		return store.Movie{}, notFound("not found")
	}
	return h.store.Get(r.Context(), id)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
