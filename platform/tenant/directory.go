package tenant

import (
	"context"
	"strings"
	"sync"
)

// Directory maps tenant identifiers to connection parameters. Lookup returns
// ErrUnknownTenant when no active entry exists for the id.
type Directory interface {
	Lookup(ctx context.Context, tenantID string) (ConnParams, error)
	// TenantIDs lists the ids of all active tenants. Used by scheduled jobs
	// that scan every tenant's data.
	TenantIDs(ctx context.Context) ([]string, error)
}

// StaticDirectory is an in-memory Directory for tests and single-tenant
// deployments.
type StaticDirectory struct {
	mu      sync.RWMutex
	entries map[string]ConnParams
}

// NewStaticDirectory builds a directory pre-populated with the given entries.
func NewStaticDirectory(entries ...ConnParams) *StaticDirectory {
	d := &StaticDirectory{entries: make(map[string]ConnParams, len(entries))}
	for _, e := range entries {
		d.entries[e.TenantID] = e
	}
	return d
}

// Add registers or replaces an entry.
func (d *StaticDirectory) Add(params ConnParams) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[params.TenantID] = params
}

// Remove drops an entry, if present.
func (d *StaticDirectory) Remove(tenantID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, tenantID)
}

func (d *StaticDirectory) Lookup(ctx context.Context, tenantID string) (ConnParams, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	params, ok := d.entries[strings.TrimSpace(tenantID)]
	if !ok {
		return ConnParams{}, ErrUnknownTenant
	}
	return params, nil
}

func (d *StaticDirectory) TenantIDs(ctx context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.entries))
	for id := range d.entries {
		ids = append(ids, id)
	}
	return ids, nil
}
