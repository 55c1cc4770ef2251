package router

import (
	"zedcmms/internal/config"
	"zedcmms/internal/repository"
	"zedcmms/internal/service"

	"gorm.io/gorm"
)

// Services is the wired service layer shared by the HTTP router and the scheduler.
type Services struct {
	Audit         service.AuditService
	Permissions   service.PermissionService
	Auth          service.AuthService
	Users         service.UserService
	Notifications service.NotificationService
	Assets        service.AssetService
	Inventory     service.InventoryService
	Worksheets    service.WorksheetService
	Reservations  service.ReservationService
	PM            service.PMService
	Reports       service.ReportService
}

// NewServices builds every repository and service.
// Dependency graph: Service ← Repository ← DB; e-mail goes out through queue.
func NewServices(cfg *config.Config, db *gorm.DB, roles []config.RoleDefinition, queue service.EmailQueue, archive service.ReportArchiver) *Services {
	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	invRepo := repository.NewInventoryRepository(db)
	resRepo := repository.NewReservationRepository(db)
	wsRepo := repository.NewWorksheetRepository(db)
	pmRepo := repository.NewPMRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	s := &Services{}
	s.Audit = service.NewAuditService(auditRepo)
	s.Permissions = service.NewPermissionService(roleRepo, roles, s.Audit)
	s.Auth = service.NewAuthService(userRepo, cfg, s.Audit)
	s.Users = service.NewUserService(userRepo, roleRepo, cfg, s.Audit)
	s.Notifications = service.NewNotificationService(notifRepo, userRepo, pmRepo, queue)
	s.Assets = service.NewAssetService(assetRepo, s.Audit)
	s.Inventory = service.NewInventoryService(invRepo, s.Audit)
	s.Worksheets = service.NewWorksheetService(wsRepo, assetRepo, userRepo, s.Inventory, s.Notifications, s.Audit, archive)
	s.Reservations = service.NewReservationService(resRepo, invRepo, wsRepo, s.Inventory, s.Audit, cfg)
	s.PM = service.NewPMService(pmRepo, assetRepo, userRepo, s.Worksheets, s.Notifications, s.Audit)
	s.Reports = service.NewReportService(assetRepo, wsRepo, pmRepo, invRepo, resRepo, archive)
	return s
}
