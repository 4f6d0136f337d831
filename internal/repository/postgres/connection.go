package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbor/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Teams       string
	Collections string
	Documents   string
	Events      string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Teams:       fmt.Sprintf("%steams", prefix),
		Collections: fmt.Sprintf("%scollections", prefix),
		Documents:   fmt.Sprintf("%sdocuments", prefix),
		Events:      fmt.Sprintf("%sevents", prefix),
	}
}

// CreateConnectionPool creates a new pgx connection pool with automatic PgBouncer compatibility.
//
// By default pgx caches prepared statements (QueryExecModeCacheStatement), which
// PgBouncer's transaction pooling mode (port 6543 on Supabase) does not support:
// it causes "prepared statement already exists" errors. When port 6543 is detected
// and the user did not set default_query_exec_mode explicitly, the pool switches to
// QueryExecModeCacheDescribe, which keeps the extended protocol (required for JSONB
// encoding of map[string]any) while caching only statement descriptions.
//
// Dynamic table prefixes (dev_, test_, prod_) interpolated with fmt.Sprintf are safe
// with prepared statements: the SQL string is built before it reaches the database,
// so each environment gets its own statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	// Configure pool size
	config.MaxConns = 25
	config.MinConns = 5

	// Explicit default_query_exec_mode in the connection string takes precedence
	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction.
// Otherwise, it returns the provided pool.
// This enables repositories to automatically participate in transactions when they exist.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
