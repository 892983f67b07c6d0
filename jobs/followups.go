package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Chetanya2001/CRM-backend/platform/persistence"
)

// FollowupSource yields followups due for a reminder. Satisfied by
// persistence.FollowupStore.
type FollowupSource interface {
	DueNow(ctx context.Context, tenantID string) ([]persistence.FollowupReminder, error)
}

// FollowupScan notifies assigned users of scheduled followups that are due.
type FollowupScan struct {
	tenants       TenantLister
	followups     FollowupSource
	notifications NotificationSink
	notifier      UserNotifier
	logger        *zap.Logger
}

// NewFollowupScan wires the scan.
func NewFollowupScan(tenants TenantLister, followups FollowupSource, notifications NotificationSink, notifier UserNotifier, logger *zap.Logger) *FollowupScan {
	if tenants == nil || followups == nil || notifications == nil || notifier == nil {
		panic("followup scan: all collaborators are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FollowupScan{
		tenants:       tenants,
		followups:     followups,
		notifications: notifications,
		notifier:      notifier,
		logger:        logger,
	}
}

func (s *FollowupScan) Name() string { return "followup-reminders" }

// Run sweeps every tenant, logging and skipping failures per tenant.
func (s *FollowupScan) Run(ctx context.Context) error {
	ids, err := s.tenants.TenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	for _, tenantID := range ids {
		if err := s.scanTenant(ctx, tenantID); err != nil {
			s.logger.Error("followup reminder scan failed for tenant",
				zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
	return nil
}

func (s *FollowupScan) scanTenant(ctx context.Context, tenantID string) error {
	due, err := s.followups.DueNow(ctx, tenantID)
	if err != nil {
		return err
	}

	for _, followup := range due {
		notification, err := s.notifications.Insert(ctx, tenantID, persistence.InsertParams{
			UserID:  followup.UserID,
			Kind:    "followup_reminder",
			Message: fmt.Sprintf("Followup with %s is due", followup.LeadName),
		})
		if err != nil {
			s.logger.Error("record followup reminder",
				zap.String("tenant_id", tenantID), zap.String("followup_id", followup.FollowupID), zap.Error(err))
			continue
		}
		s.notifier.NotifyUser(followup.UserID, EventNotification, notification)
	}
	return nil
}
