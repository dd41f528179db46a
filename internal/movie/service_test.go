package movie

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsEmptyTitle(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{Genre: "sci-fi"}, nil)
	require.ErrorIs(t, err, ErrTitleRequired)
	assert.Empty(t, repo.movies, "no record should be persisted")
}

func TestCreateComputesTitleLowerAndTimestamps(t *testing.T) {
	svc, _, _ := newTestService()

	m, err := svc.Create(context.Background(), CreateInput{Title: "The Matrix", Rating: "8.7"}, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "The Matrix", m.Title)
	assert.Equal(t, "the matrix", m.TitleLower)
	require.NotNil(t, m.Rating)
	assert.Equal(t, 8.7, *m.Rating)
	assert.Nil(t, m.Genre)
	assert.Nil(t, m.PosterURL)
	assert.True(t, m.CreatedAt.Equal(m.UpdatedAt), "createdAt and updatedAt must match at creation")
}

func TestCreateRejectsNonNumericRating(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{Title: "Dune", Rating: "great"}, nil)
	require.ErrorIs(t, err, ErrInvalidRating)
}

func TestCreateUploadOverridesPosterURL(t *testing.T) {
	svc, _, store := newTestService()

	m, err := svc.Create(context.Background(),
		CreateInput{Title: "Dune", PosterURL: "https://elsewhere.example/dune.jpg"},
		&PosterUpload{Data: []byte("img"), Filename: "dune.jpg", ContentType: "image/jpeg"},
	)
	require.NoError(t, err)

	keys := store.keys()
	require.Len(t, keys, 1)
	key := keys[0]
	assert.True(t, strings.HasPrefix(key, "posters/"), "key %q should live under posters/", key)
	assert.True(t, strings.HasSuffix(key, "_dune.jpg"), "key %q should keep the original filename suffix", key)
	assert.Equal(t, "image/jpeg", store.types[key])

	require.NotNil(t, m.PosterURL)
	assert.Equal(t, store.PublicURL(key), *m.PosterURL)
}

func TestUpdateRatingOnlyLeavesOtherFieldsAlone(t *testing.T) {
	svc, repo, _ := newTestService()
	created := seedMovie(repo, "Inception", strPtr("thriller"), floatPtr(8.0), time.Now().UTC().Add(-time.Hour))

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{Rating: strPtr("9.1")}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Inception", updated.Title)
	assert.Equal(t, "inception", updated.TitleLower)
	require.NotNil(t, updated.Genre)
	assert.Equal(t, "thriller", *updated.Genre)
	assert.Nil(t, updated.PosterURL)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 9.1, *updated.Rating)

	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt), "createdAt must never change")
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updatedAt must strictly increase")
}

func TestUpdateEmptyStringsClearNullableFields(t *testing.T) {
	svc, repo, _ := newTestService()
	created := seedMovie(repo, "Heat", strPtr("crime"), floatPtr(8.3), time.Now().UTC().Add(-time.Hour))

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{
		Genre:     strPtr(""),
		Rating:    strPtr(""),
		PosterURL: strPtr(""),
	}, nil)
	require.NoError(t, err)

	assert.Nil(t, updated.Genre)
	assert.Nil(t, updated.Rating)
	assert.Nil(t, updated.PosterURL)
	assert.Equal(t, "Heat", updated.Title)
}

func TestUpdateIgnoresEmptyTitle(t *testing.T) {
	svc, repo, _ := newTestService()
	created := seedMovie(repo, "Alien", nil, nil, time.Now().UTC().Add(-time.Hour))

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{Title: strPtr("")}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Alien", updated.Title)
	assert.Equal(t, "alien", updated.TitleLower)
}

func TestUpdateRecomputesTitleLower(t *testing.T) {
	svc, repo, _ := newTestService()
	created := seedMovie(repo, "Alien", nil, nil, time.Now().UTC().Add(-time.Hour))

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{Title: strPtr("ALIENS")}, nil)
	require.NoError(t, err)

	assert.Equal(t, "ALIENS", updated.Title)
	assert.Equal(t, "aliens", updated.TitleLower)
}

func TestUpdateRefreshesUpdatedAtOnEmptyPatch(t *testing.T) {
	svc, repo, _ := newTestService()
	created := seedMovie(repo, "Alien", nil, nil, time.Now().UTC().Add(-time.Hour))

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{}, nil)
	require.NoError(t, err)

	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, "Alien", updated.Title)
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Update(context.Background(), "2a9cf166-6f90-4f84-a23a-6161b2e4d28b", UpdateInput{Title: strPtr("x")}, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUnknownIDSucceeds(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Delete(context.Background(), "2a9cf166-6f90-4f84-a23a-6161b2e4d28b")
	require.NoError(t, err)
}

func TestListAppliesLimitBeforeTextFilter(t *testing.T) {
	svc, repo, _ := newTestService()
	base := time.Now().UTC()

	// Five newest records match nothing; the two "matrix" titles sit beyond
	// the fetched window, so the text filter empties the page.
	seedMovie(repo, "The Matrix", nil, nil, base.Add(-10*time.Minute))
	seedMovie(repo, "Matrix Reloaded", nil, nil, base.Add(-9*time.Minute))
	for i := 0; i < 5; i++ {
		seedMovie(repo, "Filler", nil, nil, base.Add(time.Duration(i)*time.Minute))
	}

	movies, err := svc.List(context.Background(), Query{Q: "matrix", Limit: 5, Sort: "createdAt", Order: "desc"})
	require.NoError(t, err)
	assert.Empty(t, movies, "limit bounds the fetch, not the final count — no re-fetch to compensate")
}

func TestListTextFilterIsCaseInsensitiveSubstring(t *testing.T) {
	svc, repo, _ := newTestService()
	base := time.Now().UTC()

	seedMovie(repo, "The Matrix", nil, nil, base.Add(-3*time.Minute))
	seedMovie(repo, "Matrix Reloaded", nil, nil, base.Add(-2*time.Minute))
	seedMovie(repo, "Inception", nil, nil, base.Add(-1*time.Minute))

	movies, err := svc.List(context.Background(), Query{Q: "matrix", Sort: "createdAt", Order: "desc"})
	require.NoError(t, err)
	require.Len(t, movies, 2)
	titles := []string{movies[0].Title, movies[1].Title}
	assert.ElementsMatch(t, []string{"The Matrix", "Matrix Reloaded"}, titles)

	movies, err = svc.List(context.Background(), Query{Q: "inception", Sort: "createdAt", Order: "desc"})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Inception", movies[0].Title)
}

func TestListUnknownSortFallsBackToNewestFirst(t *testing.T) {
	svc, repo, _ := newTestService()
	base := time.Now().UTC()

	seedMovie(repo, "Older", nil, nil, base.Add(-2*time.Minute))
	seedMovie(repo, "Newer", nil, nil, base.Add(-1*time.Minute))

	movies, err := svc.List(context.Background(), Query{Sort: "director", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "Newer", movies[0].Title, "unrecognized sort must fall back to createdAt desc, ignoring order")
}

func TestListGenreFilterAndRatingSort(t *testing.T) {
	svc, repo, _ := newTestService()
	base := time.Now().UTC()

	seedMovie(repo, "Low", strPtr("sci-fi"), floatPtr(6.0), base.Add(-3*time.Minute))
	seedMovie(repo, "High", strPtr("sci-fi"), floatPtr(9.0), base.Add(-2*time.Minute))
	seedMovie(repo, "Other", strPtr("drama"), floatPtr(7.5), base.Add(-1*time.Minute))

	movies, err := svc.List(context.Background(), Query{Genre: "sci-fi", Sort: "rating", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "Low", movies[0].Title)
	assert.Equal(t, "High", movies[1].Title)
}

func TestListNonPositiveLimitUsesDefault(t *testing.T) {
	svc, repo, _ := newTestService()
	base := time.Now().UTC()
	for i := 0; i < defaultListLimit+5; i++ {
		seedMovie(repo, "Movie", nil, nil, base.Add(time.Duration(-i)*time.Minute))
	}

	movies, err := svc.List(context.Background(), Query{Sort: "createdAt"})
	require.NoError(t, err)
	assert.Len(t, movies, defaultListLimit)
}

func TestUploadPosterKeyFormat(t *testing.T) {
	svc, _, store := newTestService()

	url, err := svc.UploadPoster(context.Background(), &PosterUpload{
		Data:        []byte("bytes"),
		Filename:    "poster art.png",
		ContentType: "image/png",
	})
	require.NoError(t, err)

	keys := store.keys()
	require.Len(t, keys, 1)
	parts := strings.SplitN(strings.TrimPrefix(keys[0], "posters/"), "_", 3)
	require.Len(t, parts, 3, "key must be <timestamp>_<uuid>_<filename>")
	assert.Equal(t, "poster art.png", parts[2])
	assert.Equal(t, "https://cdn.test/posters/"+keys[0], url)
}
