package albums

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"musicalog/internal/store"
)

var (
	// ErrNotFound is returned when the referenced album does not exist.
	ErrNotFound = errors.New("album not found")
	// ErrService is returned when a write did not produce the expected album.
	ErrService = errors.New("album service failure")
)

// Store captures the persistence needs for album workflows.
type Store interface {
	All(ctx context.Context) iter.Seq2[store.Album, error]
	FindByTitle(ctx context.Context, substring string) iter.Seq2[store.Album, error]
	FindByArtist(ctx context.Context, substring string) iter.Seq2[store.Album, error]
	ByID(ctx context.Context, id string) (store.Album, error)
	Save(ctx context.Context, album store.Album) (*store.Album, error)
	Delete(ctx context.Context, id string) error
}

// Service coordinates catalog operations.
type Service interface {
	ListAll(ctx context.Context) iter.Seq2[store.Album, error]
	ListByTitle(ctx context.Context, title string) iter.Seq2[store.Album, error]
	ListByArtist(ctx context.Context, artistName string) iter.Seq2[store.Album, error]
	Get(ctx context.Context, id string) (store.Album, error)
	Create(ctx context.Context, album store.Album) (store.Album, error)
	Update(ctx context.Context, album store.Album) (store.Album, error)
	Remove(ctx context.Context, id string) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) ListAll(ctx context.Context) iter.Seq2[store.Album, error] {
	if err := ctx.Err(); err != nil {
		return store.Fail(err)
	}
	return s.store.All(ctx)
}

func (s *service) ListByTitle(ctx context.Context, title string) iter.Seq2[store.Album, error] {
	if err := ctx.Err(); err != nil {
		return store.Fail(err)
	}
	return s.store.FindByTitle(ctx, title)
}

func (s *service) ListByArtist(ctx context.Context, artistName string) iter.Seq2[store.Album, error] {
	if err := ctx.Err(); err != nil {
		return store.Fail(err)
	}
	return s.store.FindByArtist(ctx, artistName)
}

func (s *service) Get(ctx context.Context, id string) (store.Album, error) {
	if err := ctx.Err(); err != nil {
		return store.Album{}, err
	}

	album, err := s.store.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrAlbumNotFound) {
			return store.Album{}, fmt.Errorf("%w with id: %s", ErrNotFound, id)
		}
		return store.Album{}, fmt.Errorf("load album %s: %w", id, err)
	}
	return album, nil
}

func (s *service) Create(ctx context.Context, album store.Album) (store.Album, error) {
	if err := ctx.Err(); err != nil {
		return store.Album{}, err
	}
	return s.save(ctx, album)
}

// Update replaces every field of an existing album except its id.
func (s *service) Update(ctx context.Context, album store.Album) (store.Album, error) {
	existing, err := s.Get(ctx, album.ID)
	if err != nil {
		return store.Album{}, err
	}
	return s.save(ctx, Merge(existing, album))
}

func (s *service) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete album %s: %w", id, err)
	}
	return nil
}

func (s *service) save(ctx context.Context, album store.Album) (store.Album, error) {
	saved, err := s.store.Save(ctx, album)
	if err != nil {
		return store.Album{}, fmt.Errorf("save album: %w", err)
	}
	if saved == nil {
		return store.Album{}, fmt.Errorf("album with id %s could not be saved: %w", album.ID, ErrService)
	}
	return *saved, nil
}

// Merge builds the replacement for existing from incoming, keeping existing's id.
func Merge(existing, incoming store.Album) store.Album {
	merged := incoming.Clone()
	merged.ID = existing.ID
	return merged
}
