// Package store defines the persistence contract for album records and ships
// an in-memory backend. Document and relational backends live in the
// mongostore and pgstore subpackages.
package store

import (
	"context"
	"errors"
	"iter"
)

var (
	// ErrAlbumNotFound signals a missing album record.
	ErrAlbumNotFound = errors.New("album not found")
)

// Store is the asynchronous document store backing the catalog.
// Implementations must be safe for concurrent use.
type Store interface {
	// All streams every album in the store's natural order.
	All(ctx context.Context) iter.Seq2[Album, error]

	// FindByTitle streams albums whose title contains substring, ignoring case.
	FindByTitle(ctx context.Context, substring string) iter.Seq2[Album, error]

	// FindByArtist streams albums whose artist name contains substring, ignoring case.
	FindByArtist(ctx context.Context, substring string) iter.Seq2[Album, error]

	// ByID returns ErrAlbumNotFound when no album has the given id.
	ByID(ctx context.Context, id string) (Album, error)

	// Save inserts or replaces an album, assigning an id when it has none.
	// A nil album with a nil error means the write did not take effect.
	Save(ctx context.Context, album Album) (*Album, error)

	// Delete removes an album. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// Collect drains a stream into a slice, stopping at the first error.
func Collect(seq iter.Seq2[Album, error]) ([]Album, error) {
	albums := []Album{}
	for album, err := range seq {
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	return albums, nil
}

// Fail returns a stream that yields err once.
func Fail(err error) iter.Seq2[Album, error] {
	return func(yield func(Album, error) bool) {
		yield(Album{}, err)
	}
}
