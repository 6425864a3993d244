package database

import (
	"context"
	"fmt"
	"time"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cfg "github.com/fincubator/booker/config"
)

const (
	defaultMaxPoolSize       = 10
	defaultConnTimeout       = 5 * time.Second
	defaultHealthCheckPeriod = time.Minute
)

// Postgres bundles the pgx pool with the transactor used to run compound
// repository operations inside one database transaction.
type Postgres struct {
	maxPoolSize       int32
	connTimeout       time.Duration
	healthCheckPeriod time.Duration
	isolation         pgx.TxIsoLevel

	Pool       *pgxpool.Pool
	DBGetter   tx.DBGetter
	Transactor *tx.Transactor
}

// Option customizes pool construction.
type Option func(*Postgres)

// MaxPoolSize caps the number of pooled connections.
func MaxPoolSize(size int32) Option {
	return func(p *Postgres) {
		p.maxPoolSize = size
	}
}

// ConnTimeout sets the connect timeout in seconds.
func ConnTimeout(seconds int) Option {
	return func(p *Postgres) {
		p.connTimeout = time.Duration(seconds) * time.Second
	}
}

// HealthCheckPeriod sets the pool health check period in seconds.
func HealthCheckPeriod(seconds int) Option {
	return func(p *Postgres) {
		p.healthCheckPeriod = time.Duration(seconds) * time.Second
	}
}

// Isolation sets the default transaction isolation level for every pooled
// connection. The settlement core requires at least read committed.
func Isolation(level pgx.TxIsoLevel) Option {
	return func(p *Postgres) {
		p.isolation = level
	}
}

// New connects to PostgreSQL and wires the transactor over the pool.
func New(config *cfg.Config, opts ...Option) (*Postgres, error) {
	p := &Postgres{
		maxPoolSize:       defaultMaxPoolSize,
		connTimeout:       defaultConnTimeout,
		healthCheckPeriod: defaultHealthCheckPeriod,
		isolation:         pgx.ReadCommitted,
	}

	for _, opt := range opts {
		opt(p)
	}

	poolConfig, err := pgxpool.ParseConfig(config.DB.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	poolConfig.MaxConns = p.maxPoolSize
	poolConfig.HealthCheckPeriod = p.healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = p.connTimeout
	poolConfig.ConnConfig.RuntimeParams["default_transaction_isolation"] = string(p.isolation)

	ctx, cancel := context.WithTimeout(context.Background(), p.connTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p.Pool = pool
	p.Transactor, p.DBGetter = tx.NewTransactorFromPool(pool)

	return p, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}
