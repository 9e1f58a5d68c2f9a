package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/casaflow/booking-service/internal/utils"
)

const (
	connectAttempts = 5
	connectBackoff  = 3 * time.Second
)

// ConnectDB opens the pgx pool, retrying a few times so the service
// survives the database coming up after it.
func ConnectDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err = pgxpool.Connect(ctx, databaseURL)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				utils.Logger.Info("connected to database")
				return pool, nil
			} else {
				err = pingErr
				pool.Close()
			}
		}
		utils.Logger.WithError(err).Warnf("database connection attempt %d/%d failed", attempt, connectAttempts)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	return nil, err
}
