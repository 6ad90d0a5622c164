// Package tmdb wraps the TMDB API for searching movies and fetching details.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultSearchURL  = "https://api.themoviedb.org/3/search/movie"
	DefaultDetailsURL = "https://api.themoviedb.org/3/movie"
	DefaultImageBase  = "https://image.tmdb.org/t/p/w500"
)

// Recorder receives one observation per upstream call.
type Recorder interface {
	ObserveUpstream(op, outcome string, d time.Duration)
}

type Config struct {
	SearchURL     string
	DetailsURL    string
	ImageBase     string
	Authorization string
	APIKey        string
	Timeout       time.Duration
	// SearchCacheTTL keeps search results per query; zero disables it.
	SearchCacheTTL time.Duration
	HTTPClient     *http.Client
	Recorder       Recorder
}

type Client struct {
	searchURL     string
	detailsURL    string
	imageBase     string
	authorization string
	apiKey        string
	http          *http.Client
	searches      *cache.Cache
	recorder      Recorder
}

// SearchResult is one entry of the upstream results array.
type SearchResult struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	ReleaseDate   string  `json:"release_date"`
	Overview      string  `json:"overview"`
	PosterPath    string  `json:"poster_path"`
	VoteAverage   float64 `json:"vote_average"`
}

func (r SearchResult) Year() string { return yearFromDate(r.ReleaseDate) }

type Detail struct {
	ID          int64
	Title       string
	ReleaseDate string
	Overview    string
	// PosterPath is empty when the catalog has no poster.
	PosterPath string
}

type searchResponse struct {
	Results *[]SearchResult `json:"results"`
}

type detailResponse struct {
	ID          int64           `json:"id"`
	Title       *string         `json:"title"`
	ReleaseDate *string         `json:"release_date"`
	Overview    *string         `json:"overview"`
	PosterPath  json.RawMessage `json:"poster_path"`
}

// UpstreamError reports a failed or unusable catalog response.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("tmdb %s failed: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("tmdb %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		searchURL:     orDefault(cfg.SearchURL, DefaultSearchURL),
		detailsURL:    strings.TrimRight(orDefault(cfg.DetailsURL, DefaultDetailsURL), "/"),
		imageBase:     orDefault(cfg.ImageBase, DefaultImageBase),
		authorization: authorizationHeader(cfg.Authorization),
		apiKey:        strings.TrimSpace(cfg.APIKey),
		http:          httpClient,
		recorder:      cfg.Recorder,
	}
	if cfg.SearchCacheTTL > 0 {
		c.searches = cache.New(cfg.SearchCacheTTL, 2*cfg.SearchCacheTTL)
	}
	return c
}

// Search returns the upstream results array for query, in upstream order.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty search query")
	}

	key := strings.ToLower(query)
	if c.searches != nil {
		if cached, ok := c.searches.Get(key); ok {
			c.observe("search", "cache_hit", 0)
			return cached.([]SearchResult), nil
		}
	}

	values := url.Values{}
	values.Set("query", query)
	var payload searchResponse
	if err := c.getJSON(ctx, "search", c.searchURL, values, &payload); err != nil {
		return nil, err
	}
	if payload.Results == nil {
		return nil, &UpstreamError{Op: "search", Err: errors.New("response has no results field")}
	}

	results := *payload.Results
	if c.searches != nil {
		c.searches.SetDefault(key, results)
	}
	return results, nil
}

// Details fetches a single movie by its catalog id.
func (c *Client) Details(ctx context.Context, id int64) (*Detail, error) {
	if id <= 0 {
		return nil, errors.New("invalid catalog id")
	}

	endpoint := c.detailsURL + "/" + strconv.FormatInt(id, 10)
	var payload detailResponse
	if err := c.getJSON(ctx, "details", endpoint, url.Values{}, &payload); err != nil {
		return nil, err
	}

	var missing []string
	if payload.Title == nil || strings.TrimSpace(*payload.Title) == "" {
		missing = append(missing, "title")
	}
	if payload.ReleaseDate == nil {
		missing = append(missing, "release_date")
	}
	if payload.Overview == nil {
		missing = append(missing, "overview")
	}
	if len(payload.PosterPath) == 0 {
		missing = append(missing, "poster_path")
	}
	if len(missing) > 0 {
		return nil, &UpstreamError{
			Op:  "details",
			Err: fmt.Errorf("response missing %s", strings.Join(missing, ", ")),
		}
	}

	var poster *string
	if err := json.Unmarshal(payload.PosterPath, &poster); err != nil {
		return nil, &UpstreamError{Op: "details", Err: fmt.Errorf("poster_path: %w", err)}
	}

	detail := &Detail{
		ID:          payload.ID,
		Title:       strings.TrimSpace(*payload.Title),
		ReleaseDate: *payload.ReleaseDate,
		Overview:    *payload.Overview,
	}
	if detail.ID == 0 {
		detail.ID = id
	}
	if poster != nil {
		detail.PosterPath = *poster
	}
	return detail, nil
}

// PosterURL joins the image base with a poster path. A missing poster
// yields an empty URL.
func (c *Client) PosterURL(posterPath string) string {
	posterPath = strings.TrimSpace(posterPath)
	if posterPath == "" {
		return ""
	}
	return c.imageBase + posterPath
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, values url.Values, dst any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.observe(op, outcome, time.Since(start))
	}()

	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}
	if len(values) > 0 {
		endpoint += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	c.applyAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	if resp.StatusCode >= 400 {
		statusErr := &UpstreamError{Op: op, Status: resp.StatusCode, Err: errors.New(resp.Status)}
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(statusErr, cerr)
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		decodeErr := &UpstreamError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(decodeErr, cerr)
		}
		return decodeErr
	}
	return resp.Body.Close()
}

func (c *Client) applyAuth(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.authorization == "" {
		return
	}
	req.Header.Set("Authorization", c.authorization)
}

func (c *Client) observe(op, outcome string, d time.Duration) {
	if c.recorder == nil {
		return
	}
	c.recorder.ObserveUpstream(op, outcome, d)
}

// authorizationHeader accepts either a full header value ("Bearer ey...")
// or a bare read token.
func authorizationHeader(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.Contains(value, " ") {
		return value
	}
	return "Bearer " + value
}

func orDefault(val, fallback string) string {
	if v := strings.TrimSpace(val); v != "" {
		return v
	}
	return fallback
}

func yearFromDate(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}
