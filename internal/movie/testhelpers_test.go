package movie

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepository is an in-memory movieRepository used by the tests in place
// of Postgres. It mirrors the database-layer semantics the real repository
// relies on: equality genre filter, single-field ordering, limit, and
// merge-style partial updates.
type memRepository struct {
	mu     sync.Mutex
	movies map[string]*Movie
}

func newMemRepository() *memRepository {
	return &memRepository{movies: map[string]*Movie{}}
}

func (r *memRepository) Insert(ctx context.Context, m *Movie) (*Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *m
	stored.ID = uuid.NewString()
	r.movies[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *memRepository) GetByID(ctx context.Context, id string) (*Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.movies[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *m
	return &out, nil
}

func (r *memRepository) List(ctx context.Context, p ListParams) ([]*Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := []*Movie{}
	for _, m := range r.movies {
		if p.Genre != "" && (m.Genre == nil || *m.Genre != p.Genre) {
			continue
		}
		out := *m
		matched = append(matched, &out)
	}

	asc := p.Order == "asc"
	sort.SliceStable(matched, func(i, j int) bool {
		var less bool
		switch p.Sort {
		case "title":
			less = matched[i].Title < matched[j].Title
		case "rating":
			less = ratingOf(matched[i]) < ratingOf(matched[j])
		default:
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})

	if p.Limit > 0 && len(matched) > p.Limit {
		matched = matched[:p.Limit]
	}
	return matched, nil
}

func (r *memRepository) Update(ctx context.Context, id string, p Patch) (*Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.movies[id]
	if !ok {
		return nil, ErrNotFound
	}

	if p.Title != nil {
		m.Title = *p.Title
		m.TitleLower = strings.ToLower(*p.Title)
	}
	if p.SetGenre {
		m.Genre = p.Genre
	}
	if p.SetRating {
		m.Rating = p.Rating
	}
	if p.SetPosterURL {
		m.PosterURL = p.PosterURL
	}
	m.UpdatedAt = p.UpdatedAt

	out := *m
	return &out, nil
}

func (r *memRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.movies, id)
	return nil
}

func ratingOf(m *Movie) float64 {
	if m.Rating == nil {
		return 0
	}
	return *m.Rating
}

// fakeStore records uploads and builds URLs the way MinioStorage does.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.types, key)
	return nil
}

func (s *fakeStore) PublicURL(key string) string {
	return "https://cdn.test/posters/" + key
}

func (s *fakeStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// newTestService wires a Service over the in-memory fakes.
func newTestService() (*Service, *memRepository, *fakeStore) {
	repo := newMemRepository()
	store := newFakeStore()
	return NewService(repo, store), repo, store
}

// seedMovie inserts a movie directly through the repository.
func seedMovie(repo *memRepository, title string, genre *string, rating *float64, createdAt time.Time) *Movie {
	m, _ := repo.Insert(context.Background(), &Movie{
		Title:      title,
		TitleLower: strings.ToLower(title),
		Genre:      genre,
		Rating:     rating,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	})
	return m
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
