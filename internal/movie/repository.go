// Package movie manages the movies catalog and its persistence.
package movie

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Movie represents one record in the catalog.
type Movie struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	TitleLower string    `json:"titleLower"`
	Genre      *string   `json:"genre"`
	Rating     *float64  `json:"rating"`
	PosterURL  *string   `json:"posterUrl"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ErrNotFound is returned when a movie does not exist.
var ErrNotFound = errors.New("movie not found")

// ListParams are the filters applied at the database layer.
// Sort and Order must already be normalized by the caller; the repository
// still enforces the column whitelist before interpolating into SQL.
type ListParams struct {
	Genre string // equality filter, skipped when empty
	Sort  string // rating | title | createdAt
	Order string // asc | desc
	Limit int
}

// Patch describes a partial update. A nil Title leaves the title untouched;
// for the nullable fields the Set flag distinguishes "not supplied" from
// "set to NULL".
type Patch struct {
	Title        *string // also recomputes title_lower
	Genre        *string
	SetGenre     bool
	Rating       *float64
	SetRating    bool
	PosterURL    *string
	SetPosterURL bool
	UpdatedAt    time.Time
}

// sortColumns maps API sort names to table columns. Doubles as the
// whitelist guarding ORDER BY interpolation.
var sortColumns = map[string]string{
	"rating":    "rating",
	"title":     "title",
	"createdAt": "created_at",
}

const movieColumns = "id, title, title_lower, genre, rating, poster_url, created_at, updated_at"

// Repository handles all movie database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert stores a new movie and returns the created record, including the
// database-assigned id.
func (r *Repository) Insert(ctx context.Context, m *Movie) (*Movie, error) {
	out := &Movie{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO movies (title, title_lower, genre, rating, poster_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+movieColumns,
		m.Title, m.TitleLower, m.Genre, m.Rating, m.PosterURL, m.CreatedAt, m.UpdatedAt,
	).Scan(&out.ID, &out.Title, &out.TitleLower, &out.Genre, &out.Rating, &out.PosterURL, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert movie: %w", err)
	}
	return out, nil
}

// GetByID fetches a movie by its id. An id that cannot be a valid UUID is
// reported the same as an absent one.
func (r *Repository) GetByID(ctx context.Context, id string) (*Movie, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	m := &Movie{}
	err := r.db.QueryRow(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Title, &m.TitleLower, &m.Genre, &m.Rating, &m.PosterURL, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get movie by id: %w", err)
	}
	return m, nil
}

// List fetches movies matching params, ordered and limited at the database.
func (r *Repository) List(ctx context.Context, p ListParams) ([]*Movie, error) {
	col, ok := sortColumns[p.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(p.Order, "asc") {
		dir = "ASC"
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + movieColumns + ` FROM movies`)
	args := []interface{}{}
	if p.Genre != "" {
		args = append(args, p.Genre)
		sb.WriteString(` WHERE genre = $1`)
	}
	args = append(args, p.Limit)
	fmt.Fprintf(&sb, ` ORDER BY %s %s LIMIT $%d`, col, dir, len(args))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	movies := []*Movie{}
	for rows.Next() {
		m := &Movie{}
		if err := rows.Scan(&m.ID, &m.Title, &m.TitleLower, &m.Genre, &m.Rating, &m.PosterURL, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

// Update applies a partial update and returns the merged record.
// Fields without their Set flag (or with a nil Title) are left untouched.
func (r *Repository) Update(ctx context.Context, id string, p Patch) (*Movie, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	sets := []string{}
	args := []interface{}{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf(clause, len(args)))
	}

	if p.Title != nil {
		add("title = $%d", *p.Title)
		add("title_lower = $%d", strings.ToLower(*p.Title))
	}
	if p.SetGenre {
		add("genre = $%d", p.Genre)
	}
	if p.SetRating {
		add("rating = $%d", p.Rating)
	}
	if p.SetPosterURL {
		add("poster_url = $%d", p.PosterURL)
	}
	add("updated_at = $%d", p.UpdatedAt)

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE movies SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), movieColumns,
	)

	m := &Movie{}
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&m.ID, &m.Title, &m.TitleLower, &m.Genre, &m.Rating, &m.PosterURL, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update movie: %w", err)
	}
	return m, nil
}

// Delete removes a movie by id. Deleting an absent (or malformed) id is not
// an error — the row count is deliberately ignored.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}
	return nil
}
