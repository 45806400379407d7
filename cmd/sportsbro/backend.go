package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sportsbro/sportsbro/internal/config"
	"github.com/sportsbro/sportsbro/internal/metrics"
	"github.com/sportsbro/sportsbro/internal/team"
	"github.com/sportsbro/sportsbro/internal/user"
)

// backend bundles the stores for the configured database driver.
type backend struct {
	teams team.Store
	users user.Store

	// ping is nil for the memory driver.
	ping func(ctx context.Context) error
	// poolStats is nil for the memory driver.
	poolStats metrics.DBPoolStatFunc
	close     func()
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("creating pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("pinging postgres: %w", err)
		}
		slog.Info("connected to database", "driver", cfg.Database.Driver)
		return &backend{
			teams: team.NewPGStore(pool),
			users: user.NewPGStore(pool),
			ping:  pool.Ping,
			poolStats: func() metrics.DBPoolStats {
				s := pool.Stat()
				return metrics.DBPoolStats{
					Total:         s.TotalConns(),
					Idle:          s.IdleConns(),
					Acquired:      s.AcquiredConns(),
					Max:           s.MaxConns(),
					Acquires:      s.AcquireCount(),
					EmptyAcquires: s.EmptyAcquireCount(),
					AcquireWait:   s.AcquireDuration(),
				}
			},
			close: pool.Close,
		}, nil

	case config.DriverMongo:
		opts := options.Client().ApplyURI(cfg.Database.URL)
		tracker := newMongoPoolTracker(opts.MaxPoolSize)
		opts.SetPoolMonitor(tracker.monitor())
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("connecting to mongo: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("pinging mongo: %w", err)
		}
		db := client.Database(cfg.Database.Name)
		teams := team.NewMongoStore(db)
		users := user.NewMongoStore(db)
		if err := teams.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		slog.Info("connected to database", "driver", cfg.Database.Driver, "database", cfg.Database.Name)
		return &backend{
			teams: teams,
			users: users,
			ping: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
			poolStats: tracker.stats,
			close:     func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.DriverMemory:
		slog.Warn("using in-memory storage; data is lost on restart")
		return &backend{
			teams: team.NewMemoryStore(),
			users: user.NewMemoryStore(),
			close: func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
