package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"musicalog/internal/config"
	"musicalog/internal/logging"
	"musicalog/internal/store"
	"musicalog/internal/store/mongostore"
	"musicalog/internal/store/pgstore"
)

// closeFunc releases whatever connection backs a store.
type closeFunc func(ctx context.Context) error

// retryPolicy bounds how long startup waits for a backing store to answer.
type retryPolicy struct {
	pingTimeout    time.Duration
	maxWait        time.Duration
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func defaultRetryPolicy(maxWait time.Duration) retryPolicy {
	return retryPolicy{
		pingTimeout:    5 * time.Second,
		maxWait:        maxWait,
		initialBackoff: 500 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
}

// waitFor retries ping with exponential backoff until it succeeds, ctx is
// cancelled, or the policy's maxWait elapses.
func waitFor(ctx context.Context, policy retryPolicy, ping func(context.Context) error) error {
	deadline := time.Now().Add(policy.maxWait)
	backoff := policy.initialBackoff
	var lastErr error

	for {
		pingCtx, cancel := context.WithTimeout(ctx, policy.pingTimeout)
		lastErr = ping(pingCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > policy.maxBackoff {
			backoff = policy.maxBackoff
		}
	}
}

// openStore connects the backend selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *logging.Logger) (store.Store, closeFunc, error) {
	policy := defaultRetryPolicy(cfg.ConnectTimeout)

	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory album store; data is lost on restart")
		return store.NewMemoryStore(), func(context.Context) error { return nil }, nil

	case config.DriverPostgres:
		db, err := openPostgres(ctx, cfg.DatabaseURL, policy)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to postgres album store")
		return pgstore.New(db), func(context.Context) error { return db.Close() }, nil

	case config.DriverMongo:
		client, err := openMongo(ctx, cfg.MongoURI, policy)
		if err != nil {
			return nil, nil, err
		}
		albums := mongostore.New(client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection))
		if err := albums.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		logger.WithFields(map[string]any{
			"database":   cfg.MongoDatabase,
			"collection": cfg.MongoCollection,
		}).Info().Msg("connected to mongo album store")
		return albums, client.Disconnect, nil
	}

	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
}

// openPostgres establishes a database connection and retries until the instance responds.
func openPostgres(ctx context.Context, dsn string, policy retryPolicy) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := waitFor(ctx, policy, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func openMongo(ctx context.Context, uri string, policy retryPolicy) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	ping := func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
	if err := waitFor(ctx, policy, ping); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}
