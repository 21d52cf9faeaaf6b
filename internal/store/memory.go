package store

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps albums in-memory, preserving insertion order.
type MemoryStore struct {
	mu     sync.RWMutex
	albums map[string]Album
	order  []string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{albums: make(map[string]Album)}
}

// All streams every album in insertion order.
func (s *MemoryStore) All(ctx context.Context) iter.Seq2[Album, error] {
	return s.scan(ctx, func(Album) bool { return true })
}

// FindByTitle streams albums whose title contains substring, ignoring case.
func (s *MemoryStore) FindByTitle(ctx context.Context, substring string) iter.Seq2[Album, error] {
	needle := strings.ToLower(substring)
	return s.scan(ctx, func(a Album) bool {
		return strings.Contains(strings.ToLower(a.Title), needle)
	})
}

// FindByArtist streams albums whose artist name contains substring, ignoring case.
func (s *MemoryStore) FindByArtist(ctx context.Context, substring string) iter.Seq2[Album, error] {
	needle := strings.ToLower(substring)
	return s.scan(ctx, func(a Album) bool {
		return strings.Contains(strings.ToLower(a.ArtistName), needle)
	})
}

// ByID returns an album by id.
func (s *MemoryStore) ByID(ctx context.Context, id string) (Album, error) {
	if err := ctx.Err(); err != nil {
		return Album{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	album, ok := s.albums[id]
	if !ok {
		return Album{}, ErrAlbumNotFound
	}
	return album.Clone(), nil
}

// Save inserts or replaces an album.
func (s *MemoryStore) Save(ctx context.Context, album Album) (*Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if album.Transient() {
		album.ID = uuid.NewString()
	}
	if _, exists := s.albums[album.ID]; !exists {
		s.order = append(s.order, album.ID)
	}
	s.albums[album.ID] = album.Clone()

	saved := album.Clone()
	return &saved, nil
}

// Delete removes an album by id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.albums[id]; !ok {
		return nil
	}
	delete(s.albums, id)
	s.order = slices.DeleteFunc(s.order, func(existing string) bool { return existing == id })
	return nil
}

// scan walks a snapshot of the ids and looks each album up as the consumer
// asks for it, so records removed mid-stream are skipped.
func (s *MemoryStore) scan(ctx context.Context, match func(Album) bool) iter.Seq2[Album, error] {
	return func(yield func(Album, error) bool) {
		s.mu.RLock()
		ids := slices.Clone(s.order)
		s.mu.RUnlock()

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(Album{}, err)
				return
			}

			s.mu.RLock()
			album, ok := s.albums[id]
			s.mu.RUnlock()

			if !ok || !match(album) {
				continue
			}
			if !yield(album.Clone(), nil) {
				return
			}
		}
	}
}
