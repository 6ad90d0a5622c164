package handlers

import (
	"strconv"

	"github.com/handsomefox/movie-ranking/internal/store"
	"github.com/handsomefox/movie-ranking/internal/tmdb"
)

type flashSetter interface {
	setFlashes([]string)
}

type page struct {
	Flashes []string
}

func (p *page) setFlashes(f []string) { p.Flashes = f }

type movieView struct {
	ID          int64
	Title       string
	Year        string
	Description string
	Rating      string
	Rated       bool
	Ranking     int64
	Review      string
	ImgURL      string
}

type indexView struct {
	page
	Movies []movieView
}

type addView struct {
	page
	Title string
	Error string
}

type selectView struct {
	page
	Query   string
	Results []tmdb.SearchResult
}

type editView struct {
	page
	Movie movieView
	Error string
}

type errorView struct {
	page
	Status     int
	StatusText string
	Message    string
}

func toMovieView(m *store.Movie) movieView {
	v := movieView{
		ID:          m.ID,
		Title:       m.Title,
		Year:        m.Year.V,
		Description: m.Description.V,
		Rated:       m.Rating.Valid,
		Ranking:     m.Ranking.V,
		Review:      m.Review.V,
		ImgURL:      m.ImgURL.V,
	}
	if m.Rating.Valid {
		v.Rating = strconv.FormatFloat(m.Rating.V, 'f', -1, 64)
	}
	return v
}

func toMovieViews(movies []store.Movie) []movieView {
	out := make([]movieView, 0, len(movies))
	for i := range movies {
		out = append(out, toMovieView(&movies[i]))
	}
	return out
}

// apiMovie is the JSON shape of a movie; unset fields are null.
type apiMovie struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Year        *string  `json:"year"`
	Description *string  `json:"description"`
	Rating      *float64 `json:"rating"`
	Ranking     *int64   `json:"ranking"`
	Review      *string  `json:"review"`
	ImgURL      *string  `json:"img_url"`
}

func toAPIMovies(movies []store.Movie) []apiMovie {
	out := make([]apiMovie, 0, len(movies))
	for i := range movies {
		m := &movies[i]
		out = append(out, apiMovie{
			ID:          m.ID,
			Title:       m.Title,
			Year:        fromSQLNull(m.Year),
			Description: fromSQLNull(m.Description),
			Rating:      fromSQLNull(m.Rating),
			Ranking:     fromSQLNull(m.Ranking),
			Review:      fromSQLNull(m.Review),
			ImgURL:      fromSQLNull(m.ImgURL),
		})
	}
	return out
}
