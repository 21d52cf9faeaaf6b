package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicalog/internal/store"
)

var columns = []string{"id", "title", "artist_name", "media_type", "stock", "cover"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestAllStreamsRowsOrderedByID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM albums ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("A1", "Rock Legends", "The Stones", "VINYL", 10, nil).
			AddRow("A2", "Pop Hits", "Various", "CD", 5, []byte{0xff}))

	got, err := store.Collect(s.All(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, []store.Album{
		{ID: "A1", Title: "Rock Legends", ArtistName: "The Stones", Type: store.MediaTypeVinyl, Stock: 10},
		{ID: "A2", Title: "Pop Hits", ArtistName: "Various", Type: store.MediaTypeCD, Stock: 5, Cover: []byte{0xff}},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUsesEscapedILikePattern(t *testing.T) {
	tests := []struct {
		name    string
		find    func(*Store) ([]store.Album, error)
		pattern string
		arg     string
	}{
		{
			name:    "title",
			find:    func(s *Store) ([]store.Album, error) { return store.Collect(s.FindByTitle(context.Background(), "rock")) },
			pattern: `SELECT (.+) FROM albums WHERE title ILIKE \$1 ORDER BY id`,
			arg:     "%rock%",
		},
		{
			name:    "artist with wildcards",
			find:    func(s *Store) ([]store.Album, error) { return store.Collect(s.FindByArtist(context.Background(), `50%_off\`)) },
			pattern: `SELECT (.+) FROM albums WHERE artist_name ILIKE \$1 ORDER BY id`,
			arg:     `%50\%\_off\\%`,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectQuery(tc.pattern).
				WithArgs(tc.arg).
				WillReturnRows(sqlmock.NewRows(columns))

			got, err := tc.find(s)
			require.NoError(t, err)
			assert.Empty(t, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStreamClosesRowsWhenConsumerBreaks(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM albums ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("A1", "One", "X", "CD", 1, nil).
			AddRow("A2", "Two", "X", "CD", 1, nil).
			AddRow("A3", "Three", "X", "CD", 1, nil)).
		RowsWillBeClosed()

	var seen []string
	for album, err := range s.All(context.Background()) {
		require.NoError(t, err)
		seen = append(seen, album.ID)
		break
	}

	assert.Equal(t, []string{"A1"}, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamReportsRowError(t *testing.T) {
	s, mock := newMockStore(t)
	connReset := errors.New("connection reset")

	mock.ExpectQuery(`SELECT (.+) FROM albums ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("A1", "One", "X", "CD", 1, nil).
			AddRow("A2", "Two", "X", "CD", 1, nil).
			RowError(1, connReset))

	var (
		seen    []string
		lastErr error
	)
	for album, err := range s.All(context.Background()) {
		if err != nil {
			lastErr = err
			break
		}
		seen = append(seen, album.ID)
	}

	assert.Equal(t, []string{"A1"}, seen)
	assert.ErrorIs(t, lastErr, connReset)
}

func TestStreamReportsQueryError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT (.+) FROM albums`).WillReturnError(sql.ErrConnDone)

	_, err := store.Collect(s.All(context.Background()))
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT (.+) FROM albums WHERE id = \$1`).
			WithArgs("A1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("A1", "Rock Legends", "The Stones", "VINYL", 10, nil))

		got, err := s.ByID(context.Background(), "A1")
		require.NoError(t, err)
		assert.Equal(t, "Rock Legends", got.Title)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT (.+) FROM albums WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := s.ByID(context.Background(), "missing")
		assert.ErrorIs(t, err, store.ErrAlbumNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSaveUpsertsAndReturnsRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO albums (.+) ON CONFLICT \(id\) DO UPDATE SET (.+) RETURNING id, title, artist_name, media_type, stock, cover`).
		WithArgs("A1", "Rock Legends", "The Stones", "VINYL", 10, []byte{1}).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("A1", "Rock Legends", "The Stones", "VINYL", 10, []byte{1}))

	saved, err := s.Save(context.Background(), store.Album{
		ID: "A1", Title: "Rock Legends", ArtistName: "The Stones", Type: store.MediaTypeVinyl, Stock: 10, Cover: []byte{1},
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "A1", saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveGeneratesIDForTransientAlbum(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO albums`).
		WithArgs(sqlmock.AnyArg(), "New", "Artist", "CD", 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("generated", "New", "Artist", "CD", 1, nil))

	saved, err := s.Save(context.Background(), store.Album{Title: "New", ArtistName: "Artist", Type: store.MediaTypeCD, Stock: 1})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "generated", saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveWithoutReturnedRowIsNoResult(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO albums`).WillReturnRows(sqlmock.NewRows(columns))

	saved, err := s.Save(context.Background(), store.Album{ID: "A1"})
	assert.NoError(t, err)
	assert.Nil(t, saved)
}

func TestDelete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM albums WHERE id = \$1`).
		WithArgs("A2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), "A2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
