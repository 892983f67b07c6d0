package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const FollowupsTable = "followups"

// FollowupReminder is the slice of a followup row needed to notify the
// assigned user that a scheduled followup is due.
type FollowupReminder struct {
	FollowupID  string    `db:"followup_id" json:"followupId"`
	UserID      string    `db:"user_id" json:"userId"`
	LeadName    string    `db:"lead_name" json:"leadName"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduledAt"`
}

// FollowupStore exposes tenant-scoped reads over the followups table.
type FollowupStore struct {
	resolver TenantResolver
}

// NewFollowupStore returns a store routing through the given resolver.
func NewFollowupStore(resolver TenantResolver) (*FollowupStore, error) {
	if resolver == nil {
		return nil, errors.New("tenant resolver is required")
	}
	return &FollowupStore{resolver: resolver}, nil
}

// DueNow returns followups whose scheduled time has passed and that have not
// been reminded yet, marking them reminded in the same statement.
func (s *FollowupStore) DueNow(ctx context.Context, tenantID string) ([]FollowupReminder, error) {
	conn, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Pool().Query(ctx, fmt.Sprintf(`
        UPDATE %s SET reminder_sent = TRUE
        WHERE reminder_sent = FALSE
          AND scheduled_at <= now()
        RETURNING followup_id, user_id, lead_name, scheduled_at
    `, FollowupsTable))
	if err != nil {
		return nil, fmt.Errorf("scan due followups: %w", err)
	}
	defer rows.Close()

	var due []FollowupReminder
	for rows.Next() {
		var f FollowupReminder
		if err := rows.Scan(&f.FollowupID, &f.UserID, &f.LeadName, &f.ScheduledAt); err != nil {
			return nil, fmt.Errorf("scan followup reminder: %w", err)
		}
		due = append(due, f)
	}
	return due, rows.Err()
}
