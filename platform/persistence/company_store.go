package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Chetanya2001/CRM-backend/platform/tenant"
)

const CompaniesTable = "companies"

// Company represents a row in the master companies table: one tenant and the
// parameters needed to reach its database.
type Company struct {
	CompanyID   string    `db:"company_id" json:"companyId"`
	Name        string    `db:"name" json:"name"`
	DatabaseURL string    `db:"database_url" json:"-"`
	MaxConns    int32     `db:"max_conns" json:"-"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// ErrCompanyNotFound indicates a missing or inactive company record.
var ErrCompanyNotFound = errors.New("company not found")

// CompanyStore exposes persistence helpers for the companies table in the
// master database.
type CompanyStore struct {
	pool *pgxpool.Pool
}

// NewCompanyStore returns a store bound to the master pool.
func NewCompanyStore(pool *pgxpool.Pool) (*CompanyStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &CompanyStore{pool: pool}, nil
}

// CreateCompanyParams captures the fields required to register a new company.
type CreateCompanyParams struct {
	CompanyID   string
	Name        string
	DatabaseURL string
	MaxConns    int32
}

// Create inserts a new active company and returns the persisted record.
func (s *CompanyStore) Create(ctx context.Context, params CreateCompanyParams) (Company, error) {
	if strings.TrimSpace(params.CompanyID) == "" {
		return Company{}, errors.New("company id is required")
	}
	if strings.TrimSpace(params.DatabaseURL) == "" {
		return Company{}, errors.New("database url is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (company_id, name, database_url, max_conns, is_active)
        VALUES ($1, $2, $3, $4, TRUE)
        RETURNING company_id, name, database_url, max_conns, is_active, created_at, updated_at
    `, CompaniesTable),
		strings.TrimSpace(params.CompanyID),
		strings.TrimSpace(params.Name),
		strings.TrimSpace(params.DatabaseURL),
		params.MaxConns,
	)

	return scanCompany(row)
}

// GetActive fetches an active company by id.
func (s *CompanyStore) GetActive(ctx context.Context, companyID string) (Company, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT company_id, name, database_url, max_conns, is_active, created_at, updated_at
        FROM %s
        WHERE company_id = $1 AND is_active
    `, CompaniesTable), companyID)

	company, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrCompanyNotFound
	}
	return company, err
}

// ListActiveIDs returns the ids of every active company.
func (s *CompanyStore) ListActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT company_id FROM %s WHERE is_active ORDER BY company_id
    `, CompaniesTable))
	if err != nil {
		return nil, fmt.Errorf("list active companies: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Deactivate soft-disables a company; its tenant id stops resolving.
func (s *CompanyStore) Deactivate(ctx context.Context, companyID string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET is_active = FALSE, updated_at = now() WHERE company_id = $1
    `, CompaniesTable), companyID)
	if err != nil {
		return fmt.Errorf("deactivate company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

func scanCompany(row pgx.Row) (Company, error) {
	var c Company
	err := row.Scan(&c.CompanyID, &c.Name, &c.DatabaseURL, &c.MaxConns, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CompanyDirectory adapts the companies table to the tenant.Directory
// contract consumed by the connection manager.
type CompanyDirectory struct {
	store *CompanyStore
}

// NewCompanyDirectory wraps a CompanyStore as a tenant directory.
func NewCompanyDirectory(store *CompanyStore) *CompanyDirectory {
	if store == nil {
		panic("company store is required")
	}
	return &CompanyDirectory{store: store}
}

func (d *CompanyDirectory) Lookup(ctx context.Context, tenantID string) (tenant.ConnParams, error) {
	company, err := d.store.GetActive(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrCompanyNotFound) {
			return tenant.ConnParams{}, tenant.ErrUnknownTenant
		}
		return tenant.ConnParams{}, fmt.Errorf("directory lookup: %w", err)
	}
	return tenant.ConnParams{
		TenantID: company.CompanyID,
		DSN:      company.DatabaseURL,
		MaxConns: company.MaxConns,
	}, nil
}

func (d *CompanyDirectory) TenantIDs(ctx context.Context) ([]string, error) {
	return d.store.ListActiveIDs(ctx)
}
