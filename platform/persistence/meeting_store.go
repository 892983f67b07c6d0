package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const MeetingsTable = "meetings"

// MeetingReminder is the slice of a meeting row needed to notify the assigned
// user that the meeting is about to start.
type MeetingReminder struct {
	MeetingID  string    `db:"meeting_id" json:"meetingId"`
	UserID     string    `db:"user_id" json:"userId"`
	ClientName string    `db:"client_name" json:"clientName"`
	StartTime  time.Time `db:"start_time" json:"startTime"`
}

// MeetingStore exposes tenant-scoped reads over the meetings table.
type MeetingStore struct {
	resolver TenantResolver
}

// NewMeetingStore returns a store routing through the given resolver.
func NewMeetingStore(resolver TenantResolver) (*MeetingStore, error) {
	if resolver == nil {
		return nil, errors.New("tenant resolver is required")
	}
	return &MeetingStore{resolver: resolver}, nil
}

// DueWithin returns meetings starting between now and now+window that have
// not been reminded yet, marking them reminded in the same statement so a
// later scan does not notify twice.
func (s *MeetingStore) DueWithin(ctx context.Context, tenantID string, window time.Duration) ([]MeetingReminder, error) {
	conn, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Pool().Query(ctx, fmt.Sprintf(`
        UPDATE %s SET reminder_sent = TRUE
        WHERE reminder_sent = FALSE
          AND start_time BETWEEN now() AND now() + $1
        RETURNING meeting_id, user_id, client_name, start_time
    `, MeetingsTable), window)
	if err != nil {
		return nil, fmt.Errorf("scan due meetings: %w", err)
	}
	defer rows.Close()

	var due []MeetingReminder
	for rows.Next() {
		var m MeetingReminder
		if err := rows.Scan(&m.MeetingID, &m.UserID, &m.ClientName, &m.StartTime); err != nil {
			return nil, fmt.Errorf("scan meeting reminder: %w", err)
		}
		due = append(due, m)
	}
	return due, rows.Err()
}
