package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Dialer opens a database pool for the given tenant parameters. Swappable so
// tests can resolve tenants without a live database.
type Dialer func(ctx context.Context, params ConnParams) (*pgxpool.Pool, error)

// PgxDialer opens a pgx pool from the directory DSN and eagerly verifies
// connectivity with a ping.
func PgxDialer(ctx context.Context, params ConnParams) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(params.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if params.MaxConns > 0 {
		poolConfig.MaxConns = params.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping tenant database: %w", err)
	}

	return pool, nil
}

// ManagerConfig controls Manager construction.
type ManagerConfig struct {
	Directory Directory
	// Dialer defaults to PgxDialer.
	Dialer Dialer
	// DialTimeout bounds pool establishment when the caller context carries
	// no deadline. Defaults to 10s.
	DialTimeout time.Duration
	// IdleTTL enables eviction of pools unused for this long; zero disables.
	IdleTTL time.Duration
	// SweepInterval is how often idle pools are checked. Defaults to 1m.
	SweepInterval time.Duration
	Logger        *zap.Logger
}

// entry is a per-tenant creation future. ready is closed once conn or err is
// set; concurrent resolvers for the same tenant wait on it instead of dialing.
type entry struct {
	ready chan struct{}
	conn  *Conn
	err   error
}

// Manager hands out tenant database connections, opening each tenant's pool
// at most once and reusing it for every later request, socket event and job.
type Manager struct {
	dir         Directory
	dial        Dialer
	dialTimeout time.Duration
	idleTTL     time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	done    chan struct{}
}

// NewManager validates the config and starts the optional idle sweeper.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Directory == nil {
		panic("tenant manager: directory is required")
	}
	if cfg.Dialer == nil {
		cfg.Dialer = PgxDialer
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	m := &Manager{
		dir:         cfg.Directory,
		dial:        cfg.Dialer,
		dialTimeout: cfg.DialTimeout,
		idleTTL:     cfg.IdleTTL,
		logger:      cfg.Logger,
		entries:     make(map[string]*entry),
		done:        make(chan struct{}),
	}

	if cfg.IdleTTL > 0 {
		interval := cfg.SweepInterval
		if interval <= 0 {
			interval = time.Minute
		}
		go m.sweep(interval)
	}

	return m
}

// Resolve returns the tenant's connection, opening the pool on first use.
// Concurrent calls for an unseen tenant dial exactly once: the first caller
// creates, the rest wait on the same future and share its outcome. A failed
// creation leaves no cache entry, so the next call retries.
func (m *Manager) Resolve(ctx context.Context, tenantID string) (*Conn, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrInvalidTenant
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	e, ok := m.entries[tenantID]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		m.entries[tenantID] = e
		m.mu.Unlock()
		m.create(ctx, tenantID, e)
	} else {
		m.mu.Unlock()
	}

	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, &ConnectionError{TenantID: tenantID, Err: ctx.Err()}
	}

	if e.err != nil {
		return nil, e.err
	}
	e.conn.touch()
	return e.conn, nil
}

// create fills the future, removing it from the cache on any failure.
func (m *Manager) create(ctx context.Context, tenantID string, e *entry) {
	defer close(e.ready)

	fail := func(err error) {
		e.err = err
		m.mu.Lock()
		if m.entries[tenantID] == e {
			delete(m.entries, tenantID)
		}
		m.mu.Unlock()
	}

	params, err := m.dir.Lookup(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, ErrUnknownTenant) && !errors.Is(err, ErrInvalidTenant) {
			err = &ConnectionError{TenantID: tenantID, Err: err}
		}
		fail(err)
		return
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.dialTimeout)
		defer cancel()
	}

	pool, err := m.dial(dialCtx, params)
	if err != nil {
		fail(&ConnectionError{TenantID: tenantID, Err: err})
		return
	}

	conn := &Conn{tenantID: tenantID, pool: pool, createdAt: time.Now()}
	conn.touch()
	e.conn = conn

	m.logger.Info("tenant pool opened", zap.String("tenant_id", tenantID))
}

// Evict closes and forgets the tenant's pool, if present. The next Resolve
// re-establishes it.
func (m *Manager) Evict(tenantID string) {
	m.mu.Lock()
	e, ok := m.entries[tenantID]
	if ok {
		delete(m.entries, tenantID)
	}
	m.mu.Unlock()

	if ok {
		m.closeEntry(e)
	}
}

// Len reports the number of cached tenant connections (including in-flight
// creations).
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close tears down every tenant pool and rejects further resolutions.
// Safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range entries {
		m.closeEntry(e)
	}
}

func (m *Manager) closeEntry(e *entry) {
	<-e.ready
	if e.conn != nil {
		e.conn.close()
	}
}

func (m *Manager) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var stale []*entry
	for id, e := range m.entries {
		select {
		case <-e.ready:
		default:
			continue // creation still in flight
		}
		if e.conn == nil || e.conn.LastUsedAt().After(cutoff) {
			continue
		}
		delete(m.entries, id)
		stale = append(stale, e)
		m.logger.Info("evicting idle tenant pool", zap.String("tenant_id", id))
	}
	m.mu.Unlock()

	for _, e := range stale {
		e.conn.close()
	}
}
