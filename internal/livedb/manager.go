package livedb

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const DefaultPort = 5432

// ConnConfig describes one target database. Password is plain text; callers
// decrypt it before handing it over.
type ConnConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

func (c ConnConfig) URL(connectTimeout time.Duration) string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(port)),
		Path:   "/" + c.Database,
	}
	if connectTimeout > 0 {
		q := url.Values{}
		q.Set("connect_timeout", strconv.Itoa(int(connectTimeout.Seconds())))
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type Options struct {
	MaxConns       int32
	ConnectTimeout time.Duration
}

// Manager owns one pool per target id. Pools are created on first use and
// live until Evict or Close.
type Manager struct {
	mu     sync.Mutex
	pools  map[int64]*pgxpool.Pool
	opts   Options
	logger *zap.Logger
}

func NewManager(opts Options, logger *zap.Logger) *Manager {
	if opts.MaxConns <= 0 {
		opts.MaxConns = 10
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	return &Manager{
		pools:  make(map[int64]*pgxpool.Pool),
		opts:   opts,
		logger: logger,
	}
}

// Source returns a Source backed by the pool for id, creating the pool from
// cfg if this is the first request for that target.
func (m *Manager) Source(ctx context.Context, id int64, cfg ConnConfig) (*Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pool, ok := m.pools[id]; ok {
		return &Source{db: pool}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL(m.opts.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("parsing connection config for target %d: %w", id, err)
	}
	poolCfg.MaxConns = m.opts.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to target %d: %w", id, err)
	}

	m.pools[id] = pool
	m.logger.Debug("opened target pool",
		zap.Int64("target_id", id),
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
	)
	return &Source{db: pool}, nil
}

// Evict closes and forgets the pool for id. Safe to call for unknown ids.
func (m *Manager) Evict(id int64) {
	m.mu.Lock()
	pool, ok := m.pools[id]
	delete(m.pools, id)
	m.mu.Unlock()

	if ok {
		pool.Close()
		m.logger.Debug("closed target pool", zap.Int64("target_id", id))
	}
}

func (m *Manager) Close() {
	m.mu.Lock()
	pools := m.pools
	m.pools = make(map[int64]*pgxpool.Pool)
	m.mu.Unlock()

	for _, pool := range pools {
		pool.Close()
	}
}

// Len reports how many pools are open.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pools)
}
