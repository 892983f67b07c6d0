package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Chetanya2001/CRM-backend/platform/tenant"
)

func TestCompanyDirectoryLifecycle(t *testing.T) {
	pool, url := mustTestPool(t)
	ctx := context.Background()

	store, err := NewCompanyStore(pool)
	require.NoError(t, err)

	created, err := store.Create(ctx, CreateCompanyParams{
		CompanyID:   "acme",
		Name:        "Acme Co",
		DatabaseURL: url,
	})
	require.NoError(t, err)
	require.True(t, created.IsActive)

	dir := NewCompanyDirectory(store)

	params, err := dir.Lookup(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, url, params.DSN)

	ids, err := dir.TenantIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"acme"}, ids)

	_, err = dir.Lookup(ctx, "ghost")
	require.ErrorIs(t, err, tenant.ErrUnknownTenant)

	require.NoError(t, store.Deactivate(ctx, "acme"))
	_, err = dir.Lookup(ctx, "acme")
	require.ErrorIs(t, err, tenant.ErrUnknownTenant)
}

// TestTenantStoresRoundTrip drives the tenant-scoped stores through a real
// Manager whose directory points the tenant at the test database itself.
func TestTenantStoresRoundTrip(t *testing.T) {
	pool, url := mustTestPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO users (user_id, email, full_name) VALUES ('u1', 'u1@acme.test', 'User One')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO meetings (meeting_id, user_id, client_name, start_time)
        VALUES ('m1', 'u1', 'Globex', now() + interval '10 minutes'),
               ('m2', 'u1', 'Initech', now() + interval '3 hours')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO followups (followup_id, user_id, lead_name, scheduled_at)
        VALUES ('f1', 'u1', 'Hooli', now() - interval '1 minute')`)
	require.NoError(t, err)

	mgr := tenant.NewManager(tenant.ManagerConfig{
		Directory: tenant.NewStaticDirectory(tenant.ConnParams{TenantID: "acme", DSN: url}),
	})
	t.Cleanup(mgr.Close)

	users, err := NewUserStore(mgr)
	require.NoError(t, err)
	require.NoError(t, users.SetOnline(ctx, "acme", "u1", true))

	fetched, err := users.GetByID(ctx, "acme", "u1")
	require.NoError(t, err)
	require.True(t, fetched.IsOnline)

	require.ErrorIs(t, users.SetOnline(ctx, "acme", "ghost", true), ErrUserNotFound)

	meetings, err := NewMeetingStore(mgr)
	require.NoError(t, err)
	due, err := meetings.DueWithin(ctx, "acme", time.Hour)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "m1", due[0].MeetingID)

	// Already marked reminded; a second scan finds nothing.
	due, err = meetings.DueWithin(ctx, "acme", time.Hour)
	require.NoError(t, err)
	require.Empty(t, due)

	followups, err := NewFollowupStore(mgr)
	require.NoError(t, err)
	dueF, err := followups.DueNow(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, dueF, 1)
	require.Equal(t, "f1", dueF[0].FollowupID)

	notifications, err := NewNotificationStore(mgr)
	require.NoError(t, err)

	inserted, err := notifications.Insert(ctx, "acme", InsertParams{
		UserID:  "u1",
		Kind:    "meeting_reminder",
		Message: "Meeting with Globex in 10 minutes",
	})
	require.NoError(t, err)
	require.False(t, inserted.IsRead)

	listed, err := notifications.ListForUser(ctx, "acme", "u1", 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, notifications.MarkRead(ctx, "acme", inserted.ID))

	listed, err = notifications.ListForUser(ctx, "acme", "u1", 10)
	require.NoError(t, err)
	require.True(t, listed[0].IsRead)
}
