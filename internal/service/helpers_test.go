package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"zedcmms/internal/config"
	"zedcmms/internal/dto"
	"zedcmms/internal/infra"
	"zedcmms/internal/model"
	"zedcmms/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	bcryptCost = 4
}

// ── Fakes ─────────────────────────────────────────────────────────────────────

type stubQueue struct {
	mu   sync.Mutex
	jobs []EmailJob
	err  error
}

func (q *stubQueue) EnqueueEmail(_ context.Context, job EmailJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *stubQueue) sent() []EmailJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]EmailJob(nil), q.jobs...)
}

type memArchive struct {
	files map[string][]byte
}

func (a *memArchive) Save(_ context.Context, name, _ string, data []byte) (string, error) {
	if a.files == nil {
		a.files = make(map[string][]byte)
	}
	a.files[name] = data
	return "mem://" + name, nil
}

// ── Environment ───────────────────────────────────────────────────────────────

type testEnv struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	now time.Time

	cfg   *config.Config
	queue *stubQueue
	files *memArchive

	roles     repository.RoleRepository
	users     repository.UserRepository
	assetRepo repository.AssetRepository
	invRepo   repository.InventoryRepository
	resRepo   repository.ReservationRepository
	wsRepo    repository.WorksheetRepository
	pmRepo    repository.PMRepository
	notifRepo repository.NotificationRepository
	auditRepo repository.AuditRepository

	audit         *auditService
	perms         *permissionService
	userSvc       *userService
	assets        *assetService
	inventory     *inventoryService
	reservations  *reservationService
	worksheets    *worksheetService
	pm            *pmService
	notifications *notificationService
	reports       *reportService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, infra.RunMigrations(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		now:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		cfg:   &config.Config{DefaultPassword: "cmms2025", ReservationTTLHours: 24, JWTSecret: "test-secret", JWTExpirationHours: 8, JWTRefreshHours: 24},
		queue: &stubQueue{},
		files: &memArchive{},
	}
	clock := func() time.Time { return env.now }

	env.roles = repository.NewRoleRepository(db)
	env.users = repository.NewUserRepository(db)
	env.assetRepo = repository.NewAssetRepository(db)
	env.invRepo = repository.NewInventoryRepository(db)
	env.resRepo = repository.NewReservationRepository(db)
	env.wsRepo = repository.NewWorksheetRepository(db)
	env.pmRepo = repository.NewPMRepository(db)
	env.notifRepo = repository.NewNotificationRepository(db)
	env.auditRepo = repository.NewAuditRepository(db)

	env.audit = NewAuditService(env.auditRepo).(*auditService)
	env.audit.now = clock
	env.perms = NewPermissionService(env.roles, config.DefaultRoles(), env.audit).(*permissionService)
	require.NoError(t, env.perms.EnsureRoles(env.ctx))
	env.userSvc = NewUserService(env.users, env.roles, env.cfg, env.audit).(*userService)

	env.notifications = NewNotificationService(env.notifRepo, env.users, env.pmRepo, env.queue).(*notificationService)
	env.notifications.now = clock
	env.assets = NewAssetService(env.assetRepo, env.audit).(*assetService)
	env.assets.now = clock
	env.inventory = NewInventoryService(env.invRepo, env.audit).(*inventoryService)
	env.inventory.now = clock
	env.worksheets = NewWorksheetService(env.wsRepo, env.assetRepo, env.users, env.inventory,
		env.notifications, env.audit, env.files).(*worksheetService)
	env.worksheets.now = clock
	env.reservations = NewReservationService(env.resRepo, env.invRepo, env.wsRepo, env.inventory, env.audit, env.cfg).(*reservationService)
	env.reservations.now = clock
	env.pm = NewPMService(env.pmRepo, env.assetRepo, env.users, env.worksheets, env.notifications, env.audit).(*pmService)
	env.pm.now = clock
	env.reports = NewReportService(env.assetRepo, env.wsRepo, env.pmRepo, env.invRepo, env.resRepo, env.files).(*reportService)
	env.reports.now = clock
	return env
}

// advance moves the shared clock forward.
func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

// ── Seed helpers ──────────────────────────────────────────────────────────────

func (e *testEnv) seedUser(username, role string, email *string) *model.User {
	e.t.Helper()
	resp, err := e.userSvc.CreateUser(e.ctx, uuid.Nil, dto.CreateUserRequest{
		Username: username,
		FullName: "User " + username,
		Email:    email,
		Password: "secret-pass-1",
		RoleName: role,
	})
	require.NoError(e.t, err)
	u, err := e.users.FindByID(e.ctx, uuid.MustParse(resp.ID))
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) seedMachine(name string) *model.Machine {
	e.t.Helper()
	line, err := e.assets.CreateProductionLine(e.ctx, uuid.Nil, dto.CreateProductionLineRequest{Name: "Line " + name})
	require.NoError(e.t, err)
	m, err := e.assets.CreateMachine(e.ctx, uuid.Nil, dto.CreateMachineRequest{
		ProductionLineID: line.ID,
		Name:             name,
	})
	require.NoError(e.t, err)
	machine, err := e.assetRepo.FindMachineByID(e.ctx, uuid.MustParse(m.ID))
	require.NoError(e.t, err)
	return machine
}

func (e *testEnv) seedPart(sku string, qty int, price float64) uuid.UUID {
	e.t.Helper()
	p, err := e.inventory.CreatePart(e.ctx, uuid.Nil, dto.CreatePartRequest{
		SKU:             sku,
		Name:            "Part " + sku,
		BuyPrice:        decimal.NewFromFloat(price),
		SafetyStock:     2,
		InitialQuantity: qty,
	})
	require.NoError(e.t, err)
	return uuid.MustParse(p.ID)
}

func (e *testEnv) level(partID uuid.UUID) *model.InventoryLevel {
	e.t.Helper()
	l, err := e.invRepo.FindLevel(e.ctx, partID)
	require.NoError(e.t, err)
	return l
}

func (e *testEnv) openWorksheet(machine *model.Machine, assignee *model.User) *dto.WorksheetResponse {
	e.t.Helper()
	breakdown := e.now.Add(-3 * time.Hour)
	ws, err := e.worksheets.CreateWorksheet(e.ctx, assignee.ID, dto.CreateWorksheetRequest{
		MachineID:        machine.ID.String(),
		AssignedToUserID: assignee.ID.String(),
		BreakdownTime:    &breakdown,
	})
	require.NoError(e.t, err)
	return ws
}

func strPtr(s string) *string { return &s }
