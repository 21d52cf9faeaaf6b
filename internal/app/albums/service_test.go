package albums

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicalog/internal/store"
)

// stubStore wraps a MemoryStore and lets individual calls be overridden.
type stubStore struct {
	*store.MemoryStore

	saveErr   error
	noResult  bool
	byIDErr   error
	deleteErr error

	saves   int
	deletes int
}

func newStubStore() *stubStore {
	return &stubStore{MemoryStore: store.NewMemoryStore()}
}

func (s *stubStore) ByID(ctx context.Context, id string) (store.Album, error) {
	if s.byIDErr != nil {
		return store.Album{}, s.byIDErr
	}
	return s.MemoryStore.ByID(ctx, id)
}

func (s *stubStore) Save(ctx context.Context, album store.Album) (*store.Album, error) {
	s.saves++
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	if s.noResult {
		return nil, nil
	}
	return s.MemoryStore.Save(ctx, album)
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	s.deletes++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryStore.Delete(ctx, id)
}

func seeded(t *testing.T, albums ...store.Album) (Service, *stubStore) {
	t.Helper()
	st := newStubStore()
	for _, album := range albums {
		_, err := st.MemoryStore.Save(context.Background(), album)
		require.NoError(t, err)
	}
	return New(st), st
}

func idsOf(t *testing.T, seq iter.Seq2[store.Album, error]) []string {
	t.Helper()
	albums, err := store.Collect(seq)
	require.NoError(t, err)
	out := make([]string, 0, len(albums))
	for _, album := range albums {
		out = append(out, album.ID)
	}
	return out
}

func TestCreateThenGetRoundTrips(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, store.Album{
		Title:      "Kind of Blue",
		ArtistName: "Miles Davis",
		Type:       store.MediaTypeVinyl,
		Stock:      4,
		Cover:      []byte{0x89, 0x50},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(created, got); diff != "" {
		t.Fatalf("Get() mismatch (-created +got):\n%s", diff)
	}
}

func TestCreateWithoutStoreResultIsServiceError(t *testing.T) {
	svc, st := seeded(t)
	st.noResult = true

	_, err := svc.Create(context.Background(), store.Album{ID: "A9", Title: "Ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrService)
	assert.EqualError(t, err, "album with id A9 could not be saved: album service failure")
	assert.Equal(t, 1, st.saves)
}

func TestCreatePropagatesStoreFailure(t *testing.T) {
	svc, st := seeded(t)
	outage := errors.New("connection refused")
	st.saveErr = outage

	_, err := svc.Create(context.Background(), store.Album{Title: "Ghost"})
	assert.ErrorIs(t, err, outage)
	assert.NotErrorIs(t, err, ErrService)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestGetMissingIsNotFound(t *testing.T) {
	svc, _ := seeded(t, store.Album{ID: "A1"})

	_, err := svc.Get(context.Background(), "A3")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "album not found with id: A3")
}

func TestGetPropagatesStoreFailure(t *testing.T) {
	svc, st := seeded(t)
	st.byIDErr = errors.New("timeout")

	_, err := svc.Get(context.Background(), "A1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUpdateKeepsIDAndOverwritesEverythingElse(t *testing.T) {
	svc, _ := seeded(t, store.Album{
		ID:         "A1",
		Title:      "Rock Legends",
		ArtistName: "The Stones",
		Type:       store.MediaTypeVinyl,
		Stock:      10,
		Cover:      []byte{1},
	})

	incoming := store.Album{ID: "A1", Title: "Rock Classics", Type: store.MediaTypeCD}
	updated, err := svc.Update(context.Background(), incoming)
	require.NoError(t, err)

	want := store.Album{ID: "A1", Title: "Rock Classics", Type: store.MediaTypeCD}
	if diff := cmp.Diff(want, updated); diff != "" {
		t.Fatalf("Update() mismatch (-want +got):\n%s", diff)
	}

	got, err := svc.Get(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUpdateMissingIsNotFoundAndDoesNotWrite(t *testing.T) {
	svc, st := seeded(t, store.Album{ID: "A1"})

	_, err := svc.Update(context.Background(), store.Album{ID: "A7", Title: "Nope"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, st.saves)

	_, err = svc.Get(context.Background(), "A7")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateWithoutStoreResultIsServiceError(t *testing.T) {
	svc, st := seeded(t, store.Album{ID: "A1"})
	st.noResult = true

	_, err := svc.Update(context.Background(), store.Album{ID: "A1", Title: "x"})
	assert.ErrorIs(t, err, ErrService)
}

func TestRemoveIsIdempotent(t *testing.T) {
	svc, st := seeded(t, store.Album{ID: "A1"}, store.Album{ID: "A2"})
	ctx := context.Background()

	require.NoError(t, svc.Remove(ctx, "A2"))
	require.NoError(t, svc.Remove(ctx, "A2"))
	require.NoError(t, svc.Remove(ctx, "unknown"))
	assert.Equal(t, 3, st.deletes)

	_, err := svc.Get(ctx, "A2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"A1"}, idsOf(t, svc.ListAll(ctx)))
}

func TestRemovePropagatesStoreFailure(t *testing.T) {
	svc, st := seeded(t)
	st.deleteErr = errors.New("disk full")

	err := svc.Remove(context.Background(), "A1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestListFilters(t *testing.T) {
	svc, _ := seeded(t,
		store.Album{ID: "A1", Title: "Rock Legends", ArtistName: "The Stones"},
		store.Album{ID: "A2", Title: "Pop Hits", ArtistName: "Various Artists"},
	)
	ctx := context.Background()

	tests := []struct {
		name string
		seq  iter.Seq2[store.Album, error]
		want []string
	}{
		{"all", svc.ListAll(ctx), []string{"A1", "A2"}},
		{"title match", svc.ListByTitle(ctx, "rock"), []string{"A1"}},
		{"title upper", svc.ListByTitle(ctx, "HITS"), []string{"A2"}},
		{"title none", svc.ListByTitle(ctx, "xyz"), []string{}},
		{"artist match", svc.ListByArtist(ctx, "various"), []string{"A2"}},
		{"artist none", svc.ListByArtist(ctx, "beatles"), []string{}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, idsOf(t, tc.seq))
		})
	}
}

func TestListEmptyStoreIsEmpty(t *testing.T) {
	svc, _ := seeded(t)

	assert.Equal(t, []string{}, idsOf(t, svc.ListAll(context.Background())))
}

func TestCancelledContextStopsBeforeStore(t *testing.T) {
	svc, st := seeded(t, store.Album{ID: "A1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Get(ctx, "A1")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.Create(ctx, store.Album{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.Update(ctx, store.Album{ID: "A1"})
	assert.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, svc.Remove(ctx, "A1"), context.Canceled)

	_, err = store.Collect(svc.ListAll(ctx))
	assert.ErrorIs(t, err, context.Canceled)

	assert.Zero(t, st.saves)
	assert.Zero(t, st.deletes)
}

func TestMerge(t *testing.T) {
	existing := store.Album{ID: "A1", Title: "Old", ArtistName: "Old Artist", Type: store.MediaTypeVinyl, Stock: 3, Cover: []byte{1}}

	tests := []struct {
		name     string
		incoming store.Album
		want     store.Album
	}{
		{
			name:     "overwrites all fields",
			incoming: store.Album{ID: "A1", Title: "New", ArtistName: "New Artist", Type: store.MediaTypeDigital, Stock: 0, Cover: []byte{2}},
			want:     store.Album{ID: "A1", Title: "New", ArtistName: "New Artist", Type: store.MediaTypeDigital, Stock: 0, Cover: []byte{2}},
		},
		{
			name:     "zero values clear fields",
			incoming: store.Album{ID: "A1"},
			want:     store.Album{ID: "A1"},
		},
		{
			name:     "keeps existing id",
			incoming: store.Album{ID: "other", Title: "New"},
			want:     store.Album{ID: "A1", Title: "New"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(existing, tc.incoming)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeDoesNotAliasCover(t *testing.T) {
	incoming := store.Album{ID: "A1", Cover: []byte{1, 2}}

	merged := Merge(store.Album{ID: "A1"}, incoming)
	merged.Cover[0] = 9

	assert.Equal(t, []byte{1, 2}, incoming.Cover)
}
