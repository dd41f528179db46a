package movie

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelstack/catalog/internal/storage"
)

const defaultListLimit = 20

// ErrTitleRequired is returned when a create request carries no title.
var ErrTitleRequired = errors.New("title is required")

// ErrInvalidRating is returned when a supplied rating is not numeric.
var ErrInvalidRating = errors.New("rating must be a number")

// movieRepository is the persistence surface the service needs.
type movieRepository interface {
	Insert(ctx context.Context, m *Movie) (*Movie, error)
	GetByID(ctx context.Context, id string) (*Movie, error)
	List(ctx context.Context, p ListParams) ([]*Movie, error)
	Update(ctx context.Context, id string, p Patch) (*Movie, error)
	Delete(ctx context.Context, id string) error
}

// Query holds the raw list/search parameters as received from the client.
type Query struct {
	Q     string
	Genre string
	Sort  string
	Order string
	Limit int
}

// CreateInput holds the form fields of a create request. Empty strings are
// treated as absent.
type CreateInput struct {
	Title     string
	Genre     string
	Rating    string
	PosterURL string
}

// UpdateInput holds the form fields of an update request. A nil pointer
// means the field was not supplied; a pointer to "" clears the field
// (except Title, which is ignored when empty).
type UpdateInput struct {
	Title     *string
	Genre     *string
	Rating    *string
	PosterURL *string
}

// PosterUpload is an in-memory poster image received with a request.
type PosterUpload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Service contains the business logic for the movies catalog.
type Service struct {
	repo  movieRepository
	store storage.Storage
}

// NewService creates a new movie Service.
func NewService(repo movieRepository, store storage.Storage) *Service {
	return &Service{repo: repo, store: store}
}

// List queries the catalog. Genre, ordering and limit apply at the database;
// the free-text q filter runs in memory against the fetched page. Because q
// is applied after the limit, it can shrink a page below the limit without
// triggering a compensating fetch — the limit bounds database work, not the
// final result count.
func (s *Service) List(ctx context.Context, q Query) ([]*Movie, error) {
	params := ListParams{
		Genre: q.Genre,
		Sort:  q.Sort,
		Order: normalizeOrder(q.Order),
		Limit: q.Limit,
	}
	if _, ok := sortColumns[q.Sort]; !ok {
		// Unrecognized sort silently falls back to newest-first.
		params.Sort = "createdAt"
		params.Order = "desc"
	}
	if params.Limit <= 0 {
		params.Limit = defaultListLimit
	}

	movies, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	if q.Q == "" {
		return movies, nil
	}
	needle := strings.ToLower(q.Q)
	filtered := []*Movie{}
	for _, m := range movies {
		if strings.Contains(strings.ToLower(m.Title), needle) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// Get returns a movie by id.
func (s *Service) Get(ctx context.Context, id string) (*Movie, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates input, resolves the poster, and stores a new movie.
// An uploaded file takes precedence over a supplied posterUrl.
func (s *Service) Create(ctx context.Context, in CreateInput, poster *PosterUpload) (*Movie, error) {
	if in.Title == "" {
		return nil, ErrTitleRequired
	}

	posterURL := nilIfEmpty(in.PosterURL)
	if poster != nil {
		url, err := s.UploadPoster(ctx, poster)
		if err != nil {
			return nil, err
		}
		posterURL = &url
	}

	rating, err := parseRating(in.Rating)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &Movie{
		Title:      in.Title,
		TitleLower: strings.ToLower(in.Title),
		Genre:      nilIfEmpty(in.Genre),
		Rating:     rating,
		PosterURL:  posterURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return s.repo.Insert(ctx, m)
}

// Update applies a partial update to an existing movie. Only supplied fields
// change; updatedAt is refreshed unconditionally, even for an empty patch.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, poster *PosterUpload) (*Movie, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	patch := Patch{UpdatedAt: time.Now().UTC()}

	if in.Title != nil && *in.Title != "" {
		patch.Title = in.Title
	}
	if in.Genre != nil {
		patch.SetGenre = true
		patch.Genre = nilIfEmpty(*in.Genre)
	}
	if in.Rating != nil {
		patch.SetRating = true
		rating, err := parseRating(*in.Rating)
		if err != nil {
			return nil, err
		}
		patch.Rating = rating
	}

	if poster != nil {
		url, err := s.UploadPoster(ctx, poster)
		if err != nil {
			return nil, err
		}
		patch.SetPosterURL = true
		patch.PosterURL = &url
	} else if in.PosterURL != nil {
		patch.SetPosterURL = true
		patch.PosterURL = nilIfEmpty(*in.PosterURL)
	}

	return s.repo.Update(ctx, id, patch)
}

// Delete removes a movie. Absent ids are treated as already deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// UploadPoster writes the image to object storage under a collision-proof
// key that keeps the original filename as a readable suffix, and returns
// its public URL. The written object is orphaned if the subsequent database
// write fails; the two are not atomic.
func (s *Service) UploadPoster(ctx context.Context, p *PosterUpload) (string, error) {
	key := fmt.Sprintf("posters/%d_%s_%s", time.Now().UnixMilli(), uuid.NewString(), p.Filename)
	err := s.store.Upload(ctx, key, bytes.NewReader(p.Data), int64(len(p.Data)), p.ContentType)
	if err != nil {
		return "", fmt.Errorf("upload poster: %w", err)
	}
	return s.store.PublicURL(key), nil
}

// IsNotFound returns true when the error indicates a movie was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func normalizeOrder(order string) string {
	if strings.EqualFold(order, "asc") {
		return "asc"
	}
	return "desc"
}

func parseRating(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, ErrInvalidRating
	}
	return &v, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
