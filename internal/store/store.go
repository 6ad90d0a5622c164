// Package store provides SQLite persistence for the movie list.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/handsomefox/movie-ranking/internal/ranking"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound       = errors.New("movie not found")
	ErrDuplicateTitle = errors.New("movie title already exists")
)

type Store struct {
	sqldb *sql.DB
	db    *bun.DB
}

type Movie struct {
	bun.BaseModel `bun:"table:movies,alias:m"`

	ID          int64             `bun:"id,pk,autoincrement"`
	Title       string            `bun:"title,notnull"`
	Year        sql.Null[string]  `bun:"year,nullzero"`
	Description sql.Null[string]  `bun:"description,nullzero"`
	Rating      sql.Null[float64] `bun:"rating,nullzero"`
	Ranking     sql.Null[int64]   `bun:"ranking,nullzero"`
	Review      sql.Null[string]  `bun:"review,nullzero"`
	ImgURL      sql.Null[string]  `bun:"img_url,nullzero"`
}

// NewMovie holds the catalog fields a movie is created with.
type NewMovie struct {
	Title       string
	Year        string
	Description string
	ImgURL      string
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("DB_PATH is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// One connection serializes writers, including concurrent reranks.
	sqldb.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := sqldb.PingContext(ctx); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("ping db: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	if err := initSchema(ctx, sqldb); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("init schema: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	bdb := bun.NewDB(sqldb, sqlitedialect.New())
	return &Store{sqldb: sqldb, db: bdb}, nil
}

func (s *Store) Close() error { return s.sqldb.Close() }

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS movies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL UNIQUE,
	year TEXT,
	description TEXT,
	rating REAL,
	ranking INTEGER UNIQUE,
	review TEXT,
	img_url TEXT
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// List returns every movie ordered by rating, unrated first, ties by id.
func (s *Store) List(ctx context.Context) (out []Movie, err error) {
	out = []Movie{}
	err = s.db.NewSelect().
		Model(&out).
		OrderExpr("rating ASC NULLS FIRST").
		OrderExpr("id ASC").
		Scan(ctx)
	return out, err
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Movie)(nil)).Count(ctx)
}

func (s *Store) Get(ctx context.Context, id int64) (Movie, error) {
	return getWhere(ctx, s.db, "id = ?", id)
}

func (s *Store) GetByTitle(ctx context.Context, title string) (Movie, error) {
	return getWhere(ctx, s.db, "title = ?", title)
}

func getWhere(ctx context.Context, db bun.IDB, query string, arg any) (Movie, error) {
	var m Movie
	err := db.NewSelect().
		Model(&m).
		Where(query, arg).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Movie{}, ErrNotFound
	}
	return m, err
}

// Insert creates a movie from catalog fields. Rating, review and ranking
// start unset.
func (s *Store) Insert(ctx context.Context, nm NewMovie) (Movie, error) {
	title := strings.TrimSpace(nm.Title)
	if title == "" {
		return Movie{}, errors.New("title is required")
	}
	m := Movie{
		Title:       title,
		Year:        toSQLNullString(nm.Year),
		Description: toSQLNullString(nm.Description),
		ImgURL:      toSQLNullString(nm.ImgURL),
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*Movie)(nil)).
			Where("title = ?", title).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateTitle
		}

		res, err := tx.NewInsert().
			Model(&m).
			Column("title", "year", "description", "img_url").
			Exec(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateTitle
			}
			return err
		}
		m.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return Movie{}, err
	}
	return m, nil
}

// UpdateReview sets a movie's rating and review together.
func (s *Store) UpdateReview(ctx context.Context, id int64, rating float64, review string) (Movie, error) {
	var m Movie
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Table("movies").
			Set("rating = ?", rating).
			Set("review = ?", review).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := expectRowsAffected(res); err != nil {
			return err
		}
		m, err = getWhere(ctx, &tx, "id = ?", id)
		return err
	})
	return m, err
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Table("movies").
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		return expectRowsAffected(res)
	})
}

func (s *Store) SetRanking(ctx context.Context, id int64, rank int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return setRanking(ctx, tx, id, rank)
	})
}

func setRanking(ctx context.Context, tx bun.Tx, id int64, rank int) error {
	res, err := tx.NewUpdate().
		Table("movies").
		Set("ranking = ?", rank).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRowsAffected(res)
}

// Rerank recomputes every ranking from current ratings in one transaction
// and returns the movies ascending by rating with their new rankings.
func (s *Store) Rerank(ctx context.Context) (out []Movie, err error) {
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		out = []Movie{}
		if err := tx.NewSelect().Model(&out).OrderExpr("id ASC").Scan(ctx); err != nil {
			return err
		}

		ranking.Assign(out, movieRating, func(m *Movie, rank int) {
			m.Ranking = sql.Null[int64]{Valid: true, V: int64(rank)}
		})

		// ranking is UNIQUE, so old values go first.
		if _, err := tx.NewUpdate().
			Table("movies").
			Set("ranking = NULL").
			Where("ranking IS NOT NULL").
			Exec(ctx); err != nil {
			return err
		}
		for i := range out {
			if err := setRanking(ctx, tx, out[i].ID, int(out[i].Ranking.V)); err != nil {
				return fmt.Errorf("set ranking for %d: %w", out[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func movieRating(m Movie) (float64, bool) { return m.Rating.V, m.Rating.Valid }

func expectRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toSQLNullString(val string) sql.Null[string] {
	val = strings.TrimSpace(val)
	if val == "" {
		return sql.Null[string]{}
	}
	return sql.Null[string]{Valid: true, V: val}
}
