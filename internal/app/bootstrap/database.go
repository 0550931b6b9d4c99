package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/fjstoneservices/site-api/pkg/logging"
)

// ConnectPostgresPool opens the service-credential pool used for anonymous
// quote inserts. It returns nil when url is empty or the database is down.
func ConnectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("failed to connect postgres", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// OpenStaffDB opens the low-privilege connection used by the admin screens
// and the content editor. An empty readerURL reuses serviceURL.
func OpenStaffDB(ctx context.Context, readerURL, serviceURL string) (*sqlx.DB, error) {
	url := strings.TrimSpace(readerURL)
	if url == "" {
		url = strings.TrimSpace(serviceURL)
	}
	if url == "" {
		return nil, fmt.Errorf("bootstrap: staff database url is required")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect staff db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}
