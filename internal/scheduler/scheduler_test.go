package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"zedcmms/internal/config"
	"zedcmms/internal/dto"
	"zedcmms/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The fakes embed the service interfaces and override only what the jobs call.

type fakePM struct {
	service.PMService
	calls int
}

func (f *fakePM) UpdatePMTaskStatuses(context.Context) (*dto.PMStatusStats, error) {
	f.calls++
	return &dto.PMStatusStats{Updated: 3, Overdue: 2, DueToday: 1}, nil
}

type fakeReservations struct {
	service.ReservationService
	calls int
}

func (f *fakeReservations) CleanupExpiredReservations(context.Context) (int, error) {
	f.calls++
	return 2, nil
}

type fakeNotifications struct {
	service.NotificationService
	err error
}

func (f *fakeNotifications) CheckPMNotifications(context.Context) (int, error) {
	return 4, f.err
}

type fakeAudit struct {
	service.AuditService
	retention int
}

func (f *fakeAudit) Purge(_ context.Context, days int) (int64, error) {
	f.retention = days
	return 7, nil
}

type fixture struct {
	s     *Scheduler
	pm    *fakePM
	res   *fakeReservations
	notif *fakeNotifications
	audit *fakeAudit
}

func newFixture(cfg *config.Config) *fixture {
	f := &fixture{pm: &fakePM{}, res: &fakeReservations{}, notif: &fakeNotifications{}, audit: &fakeAudit{}}
	f.s = New(cfg, Deps{PM: f.pm, Reservations: f.res, Notifications: f.notif, Audit: f.audit})
	return f
}

func testConfig() *config.Config {
	return &config.Config{
		PMStatusCron:   "0 * * * *",
		PMNotifyCron:   "0 */6 * * *",
		CleanupCron:    "0 2 * * *",
		AuditRetention: 365,
	}
}

func TestRunNow_PMStatusAlsoCleansReservations(t *testing.T) {
	f := newFixture(testConfig())

	result, err := f.s.RunNow(context.Background(), JobPMStatus)
	require.NoError(t, err)
	assert.Equal(t, 1, f.pm.calls)
	assert.Equal(t, 1, f.res.calls)
	assert.Equal(t, 3, result["updated"])
	assert.Equal(t, 2, result["reservations_removed"])
}

func TestRunNow_CleanupUsesRetention(t *testing.T) {
	f := newFixture(testConfig())

	result, err := f.s.RunNow(context.Background(), JobCleanup)
	require.NoError(t, err)
	assert.Equal(t, 365, f.audit.retention)
	assert.EqualValues(t, 7, result["audit_purged"])
}

func TestRunNow_Errors(t *testing.T) {
	f := newFixture(testConfig())
	f.notif.err = errors.New("db gone")

	_, err := f.s.RunNow(context.Background(), JobPMNotifications)
	assert.Error(t, err)

	_, err = f.s.RunNow(context.Background(), "reindex")
	assert.Error(t, err)
}

func TestStartStop_Idempotent(t *testing.T) {
	f := newFixture(testConfig())

	require.NoError(t, f.s.Start())
	require.NoError(t, f.s.Start())
	assert.True(t, f.s.Running())
	assert.Len(t, f.s.cron.Entries(), 3)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f.s.Stop(ctx)
	f.s.Stop(ctx)
	assert.False(t, f.s.Running())
}

func TestStartStopStart_DoesNotDuplicateJobs(t *testing.T) {
	f := newFixture(testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, f.s.Start())
	f.s.Stop(ctx)
	require.NoError(t, f.s.Start())
	defer f.s.Stop(ctx)

	assert.True(t, f.s.Running())
	assert.Len(t, f.s.cron.Entries(), 3)
}

func TestStart_InvalidSpec(t *testing.T) {
	cfg := testConfig()
	cfg.PMNotifyCron = "every now and then"
	f := newFixture(cfg)

	assert.Error(t, f.s.Start())
	assert.False(t, f.s.Running())
	assert.Nil(t, f.s.cron, "no partially registered cron is kept")
}

func TestStart_EmptySpecDisablesJob(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupCron = ""
	f := newFixture(cfg)

	require.NoError(t, f.s.Start())
	defer f.s.Stop(context.Background())
	assert.Len(t, f.s.cron.Entries(), 2)
}
