// Package pgstore implements store.Store on PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"musicalog/internal/store"
)

const tableAlbums = "albums"

var albumColumns = []string{
	"id",
	"title",
	"artist_name",
	"media_type",
	"stock",
	"cover",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Store provides album persistence backed by Postgres.
type Store struct {
	db *sql.DB
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// All streams every album ordered by id.
func (s *Store) All(ctx context.Context) iter.Seq2[store.Album, error] {
	return s.stream(ctx, selectAlbums())
}

// FindByTitle streams albums whose title contains substring, ignoring case.
func (s *Store) FindByTitle(ctx context.Context, substring string) iter.Seq2[store.Album, error] {
	return s.stream(ctx, selectAlbums().Where(sq.ILike{"title": containsPattern(substring)}))
}

// FindByArtist streams albums whose artist name contains substring, ignoring case.
func (s *Store) FindByArtist(ctx context.Context, substring string) iter.Seq2[store.Album, error] {
	return s.stream(ctx, selectAlbums().Where(sq.ILike{"artist_name": containsPattern(substring)}))
}

// ByID returns a single album by its identifier.
func (s *Store) ByID(ctx context.Context, id string) (store.Album, error) {
	query, args, err := psql.
		Select(albumColumns...).
		From(tableAlbums).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return store.Album{}, fmt.Errorf("build album query: %w", err)
	}

	album, err := scanAlbum(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Album{}, store.ErrAlbumNotFound
		}
		return store.Album{}, fmt.Errorf("select album: %w", err)
	}
	return album, nil
}

// Save upserts an album keyed by id, generating one for transient albums.
func (s *Store) Save(ctx context.Context, album store.Album) (*store.Album, error) {
	if album.Transient() {
		album.ID = uuid.NewString()
	}

	query, args, err := psql.
		Insert(tableAlbums).
		Columns(albumColumns...).
		Values(album.ID, album.Title, album.ArtistName, string(album.Type), album.Stock, album.Cover).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			artist_name = EXCLUDED.artist_name,
			media_type = EXCLUDED.media_type,
			stock = EXCLUDED.stock,
			cover = EXCLUDED.cover
		RETURNING ` + strings.Join(albumColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert query: %w", err)
	}

	saved, err := scanAlbum(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("upsert album: %w", err)
	}
	return &saved, nil
}

// Delete removes an album; a missing row is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	query, args, err := psql.
		Delete(tableAlbums).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	return nil
}

func (s *Store) stream(ctx context.Context, b sq.SelectBuilder) iter.Seq2[store.Album, error] {
	return func(yield func(store.Album, error) bool) {
		query, args, err := b.OrderBy("id").ToSql()
		if err != nil {
			yield(store.Album{}, fmt.Errorf("build albums query: %w", err))
			return
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(store.Album{}, fmt.Errorf("select albums: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			album, err := scanAlbum(rows)
			if err != nil {
				yield(store.Album{}, fmt.Errorf("scan album: %w", err))
				return
			}
			if !yield(album, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(store.Album{}, fmt.Errorf("iterate albums: %w", err))
		}
	}
}

func selectAlbums() sq.SelectBuilder {
	return psql.Select(albumColumns...).From(tableAlbums)
}

func containsPattern(substring string) string {
	return "%" + likeEscaper.Replace(substring) + "%"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlbum(row rowScanner) (store.Album, error) {
	var (
		album     store.Album
		mediaType sql.NullString
		stock     sql.NullInt64
	)
	if err := row.Scan(&album.ID, &album.Title, &album.ArtistName, &mediaType, &stock, &album.Cover); err != nil {
		return store.Album{}, err
	}
	album.Type = store.MediaType(mediaType.String)
	album.Stock = int(stock.Int64)
	return album, nil
}
