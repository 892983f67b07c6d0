package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Chetanya2001/CRM-backend/platform/persistence"
)

// EventNotification is the realtime event delivering a freshly created
// notification to its user.
const EventNotification = "notification"

// TenantLister enumerates active tenants. Satisfied by tenant.Directory.
type TenantLister interface {
	TenantIDs(ctx context.Context) ([]string, error)
}

// NotificationSink records notifications in a tenant's database. Satisfied by
// persistence.NotificationStore.
type NotificationSink interface {
	Insert(ctx context.Context, tenantID string, params persistence.InsertParams) (persistence.Notification, error)
}

// UserNotifier pushes an event to a user's active socket, reporting whether
// the user was online. Satisfied by realtime.Channel.
type UserNotifier interface {
	NotifyUser(userID, event string, payload any) bool
}

// MeetingSource yields meetings due for a reminder. Satisfied by
// persistence.MeetingStore.
type MeetingSource interface {
	DueWithin(ctx context.Context, tenantID string, window time.Duration) ([]persistence.MeetingReminder, error)
}

// MeetingScan notifies assigned users of meetings starting soon.
type MeetingScan struct {
	tenants       TenantLister
	meetings      MeetingSource
	notifications NotificationSink
	notifier      UserNotifier
	window        time.Duration
	logger        *zap.Logger
}

// NewMeetingScan wires the scan. window defaults to 30 minutes.
func NewMeetingScan(tenants TenantLister, meetings MeetingSource, notifications NotificationSink, notifier UserNotifier, window time.Duration, logger *zap.Logger) *MeetingScan {
	if tenants == nil || meetings == nil || notifications == nil || notifier == nil {
		panic("meeting scan: all collaborators are required")
	}
	if window <= 0 {
		window = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeetingScan{
		tenants:       tenants,
		meetings:      meetings,
		notifications: notifications,
		notifier:      notifier,
		window:        window,
		logger:        logger,
	}
}

func (s *MeetingScan) Name() string { return "meeting-reminders" }

// Run sweeps every tenant. A failing tenant is logged and skipped; the sweep
// continues with the rest.
func (s *MeetingScan) Run(ctx context.Context) error {
	ids, err := s.tenants.TenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	for _, tenantID := range ids {
		if err := s.scanTenant(ctx, tenantID); err != nil {
			s.logger.Error("meeting reminder scan failed for tenant",
				zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
	return nil
}

func (s *MeetingScan) scanTenant(ctx context.Context, tenantID string) error {
	due, err := s.meetings.DueWithin(ctx, tenantID, s.window)
	if err != nil {
		return err
	}

	for _, meeting := range due {
		notification, err := s.notifications.Insert(ctx, tenantID, persistence.InsertParams{
			UserID:  meeting.UserID,
			Kind:    "meeting_reminder",
			Message: fmt.Sprintf("Meeting with %s at %s", meeting.ClientName, meeting.StartTime.Format("15:04")),
		})
		if err != nil {
			s.logger.Error("record meeting reminder",
				zap.String("tenant_id", tenantID), zap.String("meeting_id", meeting.MeetingID), zap.Error(err))
			continue
		}
		s.notifier.NotifyUser(meeting.UserID, EventNotification, notification)
	}
	return nil
}
