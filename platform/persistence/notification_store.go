package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const NotificationsTable = "notifications"

// Notification is a row in a tenant database's notifications table.
type Notification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Kind      string    `db:"kind" json:"kind"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"isRead"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ErrNotificationNotFound indicates a missing notification record.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationStore exposes tenant-scoped persistence for in-app
// notifications.
type NotificationStore struct {
	resolver TenantResolver
}

// NewNotificationStore returns a store routing through the given resolver.
func NewNotificationStore(resolver TenantResolver) (*NotificationStore, error) {
	if resolver == nil {
		return nil, errors.New("tenant resolver is required")
	}
	return &NotificationStore{resolver: resolver}, nil
}

// InsertParams captures the fields required to record a notification.
type InsertParams struct {
	UserID  string
	Kind    string
	Message string
}

// Insert records a notification for the user and returns the persisted row.
func (s *NotificationStore) Insert(ctx context.Context, tenantID string, params InsertParams) (Notification, error) {
	conn, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return Notification{}, err
	}

	row := conn.Pool().QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, user_id, kind, message)
        VALUES ($1, $2, $3, $4)
        RETURNING id, user_id, kind, message, is_read, created_at
    `, NotificationsTable), uuid.New(), params.UserID, params.Kind, params.Message)

	var n Notification
	err = row.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.IsRead, &n.CreatedAt)
	return n, err
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationStore) ListForUser(ctx context.Context, tenantID, userID string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	conn, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Pool().Query(ctx, fmt.Sprintf(`
        SELECT id, user_id, kind, message, is_read, created_at
        FROM %s WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, NotificationsTable), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification as read.
func (s *NotificationStore) MarkRead(ctx context.Context, tenantID string, id uuid.UUID) error {
	conn, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return err
	}

	tag, err := conn.Pool().Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET is_read = TRUE WHERE id = $1
    `, NotificationsTable), id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
