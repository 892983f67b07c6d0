// Package tenant owns per-tenant database connection routing: a directory of
// tenant connection parameters and a manager that lazily opens and caches one
// connection pool per tenant.
package tenant

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInvalidTenant is returned when the tenant identifier is empty or malformed.
	ErrInvalidTenant = errors.New("invalid tenant id")
	// ErrUnknownTenant is returned when the directory has no entry for the tenant.
	ErrUnknownTenant = errors.New("unknown tenant")
	// ErrMissingTenant is returned when a tenant-scoped request carries no tenant context.
	ErrMissingTenant = errors.New("missing tenant context")
	// ErrManagerClosed is returned by Resolve after the manager is shut down.
	ErrManagerClosed = errors.New("tenant manager closed")
)

// ConnectionError wraps a failure to reach or authenticate against a tenant's
// database. It is retryable: the manager caches nothing on this path.
type ConnectionError struct {
	TenantID string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("tenant %s: connect: %v", e.TenantID, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ConnParams are the directory-resolved parameters needed to open a tenant's
// database pool.
type ConnParams struct {
	TenantID string
	DSN      string
	MaxConns int32
}

// Conn is a live handle to one tenant's database. At most one Conn exists per
// tenant id within a process; only the Manager constructs them.
type Conn struct {
	tenantID  string
	pool      *pgxpool.Pool
	createdAt time.Time
	lastUsed  atomic.Int64 // unix nanos
}

// TenantID returns the tenant this handle belongs to.
func (c *Conn) TenantID() string { return c.tenantID }

// Pool returns the underlying pgx pool.
func (c *Conn) Pool() *pgxpool.Pool { return c.pool }

// CreatedAt reports when the pool was established.
func (c *Conn) CreatedAt() time.Time { return c.createdAt }

// LastUsedAt reports the last successful resolution of this handle.
func (c *Conn) LastUsedAt() time.Time { return time.Unix(0, c.lastUsed.Load()) }

func (c *Conn) touch() { c.lastUsed.Store(time.Now().UnixNano()) }

func (c *Conn) close() {
	if c.pool != nil {
		c.pool.Close()
	}
}
