package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const UsersTable = "users"

// User represents a row in a tenant database's users table.
type User struct {
	UserID    string    `db:"user_id" json:"userId"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"fullName"`
	IsOnline  bool      `db:"is_online" json:"isOnline"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ErrUserNotFound indicates a missing user record.
var ErrUserNotFound = errors.New("user not found")

// UserStore exposes tenant-scoped user persistence. Every call resolves the
// tenant's pool through the connection manager, mirroring the per-request
// routing done by the HTTP middleware.
type UserStore struct {
	resolver TenantResolver
}

// NewUserStore returns a store routing through the given resolver.
func NewUserStore(resolver TenantResolver) (*UserStore, error) {
	if resolver == nil {
		return nil, errors.New("tenant resolver is required")
	}
	return &UserStore{resolver: resolver}, nil
}

// SetOnline flips the user's online flag in the tenant's database.
func (s *UserStore) SetOnline(ctx context.Context, tenantID, userID string, online bool) error {
	conn, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return err
	}

	tag, err := conn.Pool().Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET is_online = $1 WHERE user_id = $2
    `, UsersTable), online, userID)
	if err != nil {
		return fmt.Errorf("update online flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetByID fetches a user from the tenant's database.
func (s *UserStore) GetByID(ctx context.Context, tenantID, userID string) (User, error) {
	conn, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return User{}, err
	}

	row := conn.Pool().QueryRow(ctx, fmt.Sprintf(`
        SELECT user_id, email, full_name, is_online, created_at
        FROM %s WHERE user_id = $1
    `, UsersTable), userID)

	var u User
	err = row.Scan(&u.UserID, &u.Email, &u.FullName, &u.IsOnline, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}
