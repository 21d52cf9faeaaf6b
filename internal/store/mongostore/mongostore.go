// Package mongostore implements store.Store on a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"musicalog/internal/store"
)

const (
	// DefaultCollection is the collection albums are stored in.
	DefaultCollection = "albums"

	writeTimeout = 5 * time.Second
)

// Store keeps albums as documents keyed by _id.
type Store struct {
	coll *mongo.Collection
}

// New wraps an existing collection.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// EnsureIndexes creates the lookup indexes used by the find operations.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: 1}}},
		{Keys: bson.D{{Key: "artistName", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create album indexes: %w", err)
	}
	return nil
}

// All streams every album in natural order. Streams live as long as ctx and
// the consumer do.
func (s *Store) All(ctx context.Context) iter.Seq2[store.Album, error] {
	return s.stream(ctx, bson.M{})
}

// FindByTitle streams albums whose title contains substring, ignoring case.
func (s *Store) FindByTitle(ctx context.Context, substring string) iter.Seq2[store.Album, error] {
	return s.stream(ctx, bson.M{"title": containsFold(substring)})
}

// FindByArtist streams albums whose artist name contains substring, ignoring case.
func (s *Store) FindByArtist(ctx context.Context, substring string) iter.Seq2[store.Album, error] {
	return s.stream(ctx, bson.M{"artistName": containsFold(substring)})
}

// ByID loads a single album.
func (s *Store) ByID(ctx context.Context, id string) (store.Album, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var album store.Album
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&album); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.Album{}, store.ErrAlbumNotFound
		}
		return store.Album{}, fmt.Errorf("find album %s: %w", id, err)
	}
	return album, nil
}

// Save replaces the document with the album's id, inserting it when absent.
// Transient albums get a fresh ObjectID hex string.
func (s *Store) Save(ctx context.Context, album store.Album) (*store.Album, error) {
	if album.Transient() {
		album.ID = primitive.NewObjectID().Hex()
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": album.ID}, album, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("replace album %s: %w", album.ID, err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return nil, nil
	}
	return &album, nil
}

// Delete removes the album document if present.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete album %s: %w", id, err)
	}
	return nil
}

func (s *Store) stream(ctx context.Context, filter bson.M) iter.Seq2[store.Album, error] {
	return func(yield func(store.Album, error) bool) {
		cur, err := s.coll.Find(ctx, filter)
		if err != nil {
			yield(store.Album{}, fmt.Errorf("find albums: %w", err))
			return
		}
		defer closeCursor(cur)

		for cur.Next(ctx) {
			var album store.Album
			if err := cur.Decode(&album); err != nil {
				yield(store.Album{}, fmt.Errorf("decode album: %w", err))
				return
			}
			if !yield(album, nil) {
				return
			}
		}

		if err := cur.Err(); err != nil {
			yield(store.Album{}, fmt.Errorf("iterate albums: %w", err))
		}
	}
}

// closeCursor kills the server-side cursor even when the stream's context
// was cancelled by a departing client.
func closeCursor(cur *mongo.Cursor) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_ = cur.Close(ctx)
}

func containsFold(substring string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(substring), Options: "i"}
}
