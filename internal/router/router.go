package router

import (
	"context"
	"time"

	"zedcmms/internal/config"
	"zedcmms/internal/handler"
	"zedcmms/internal/middleware"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New returns the configured Gin engine. jobs may be nil when the scheduler
// is disabled. ctx bounds the background purge of the rate limiters.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, svc *Services, jobs handler.JobRunner) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	apiLimit, apiLimiter := middleware.RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	loginLimit, loginLimiter := middleware.LoginRateLimiter()
	go apiLimiter.RunPurge(ctx, 5*time.Minute)
	go loginLimiter.RunPurge(ctx, 5*time.Minute)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedExtensions([]string{".xlsx", ".pdf"}),
		gzip.WithExcludedPathsRegexs([]string{`/pdf$`}),
	))

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(svc.Auth)
	usersH := handler.NewUsersHandler(svc.Users, svc.Permissions)
	permsH := handler.NewPermissionsHandler(svc.Permissions)
	assetsH := handler.NewAssetsHandler(svc.Assets)
	worksheetsH := handler.NewWorksheetsHandler(svc.Worksheets)
	inventoryH := handler.NewInventoryHandler(svc.Inventory, svc.Reservations)
	pmH := handler.NewPMHandler(svc.PM)
	reportsH := handler.NewReportsHandler(svc.Reports)
	notificationsH := handler.NewNotificationsHandler(svc.Notifications)
	auditH := handler.NewAuditHandler(svc.Audit)

	can := func(key string) gin.HandlerFunc { return middleware.RequirePermission(svc.Permissions, key) }

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, jobs))

	api := r.Group("/api/v1", apiLimit)

	auth := api.Group("/auth")
	{
		auth.POST("/login", loginLimit, authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	v1 := api.Group("", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/auth/me", authH.Me)
		v1.POST("/auth/change-password", authH.ChangePassword)

		users := v1.Group("/users")
		{
			users.GET("", can("users_view"), usersH.List)
			users.POST("", can("users_create"), usersH.Create)
			users.GET("/:id", can("users_view"), usersH.Get)
			users.PUT("/:id", can("users_edit"), usersH.Update)
			users.DELETE("/:id", can("users_delete"), usersH.Deactivate)
			users.PATCH("/:id/reactivate", can("users_edit"), usersH.Reactivate)
			users.POST("/:id/reset-password", can("users_edit"), usersH.ResetPassword)
		}
		v1.GET("/roles", can("users_view"), usersH.ListRoles)

		perms := v1.Group("/permissions")
		{
			perms.GET("/matrix", can("users_view"), permsH.Matrix)
			perms.PUT("/matrix", can("permissions_manage"), permsH.UpdateMatrix)
			perms.POST("/reset", can("permissions_manage"), permsH.Reset)
			perms.GET("/summary", can("users_view"), permsH.Summary)
			perms.GET("/me", permsH.Mine)
		}

		lines := v1.Group("/assets/production-lines")
		{
			lines.GET("", can("assets_view"), assetsH.ListLines)
			lines.POST("", can("assets_create"), assetsH.CreateLine)
			lines.PUT("/:id", can("assets_edit"), assetsH.UpdateLine)
			lines.DELETE("/:id", can("assets_delete"), assetsH.DeleteLine)
		}

		machines := v1.Group("/machines")
		{
			machines.GET("", can("assets_view"), assetsH.ListMachines)
			machines.POST("", can("assets_create"), assetsH.CreateMachine)
			machines.GET("/upcoming-service", can("assets_view"), assetsH.UpcomingService)
			machines.GET("/:id", can("assets_view"), assetsH.GetMachine)
			machines.PUT("/:id", can("assets_edit"), assetsH.UpdateMachine)
			machines.PATCH("/:id/status", can("assets_edit"), assetsH.ChangeStatus)
			machines.PATCH("/:id/operating-hours", can("assets_edit"), assetsH.UpdateOperatingHours)
			machines.POST("/:id/scrap", can("assets_delete"), assetsH.Scrap)
			machines.GET("/:id/history", can("assets_view"), assetsH.History)
		}

		ws := v1.Group("/worksheets")
		{
			ws.GET("", can("worksheets_view"), worksheetsH.List)
			ws.POST("", can("worksheets_create"), worksheetsH.Create)
			ws.GET("/:id", can("worksheets_view"), worksheetsH.Get)
			ws.PUT("/:id", can("worksheets_edit"), worksheetsH.Update)
			ws.PATCH("/:id/status", can("worksheets_edit"), worksheetsH.UpdateStatus)
			ws.POST("/:id/parts", can("worksheets_edit"), worksheetsH.AddPart)
			ws.GET("/:id/parts", can("worksheets_view"), worksheetsH.ListParts)
			ws.GET("/:id/pdf", can("worksheets_view"), worksheetsH.PDF)
		}

		inv := v1.Group("/inventory")
		{
			inv.GET("/suppliers", can("inventory_view"), inventoryH.ListSuppliers)
			inv.POST("/suppliers", can("inventory_create"), inventoryH.CreateSupplier)

			inv.GET("/parts", can("inventory_view"), inventoryH.ListParts)
			inv.POST("/parts", can("inventory_create"), inventoryH.CreatePart)
			inv.GET("/parts/sku/:sku", can("inventory_view"), inventoryH.GetPartBySKU)
			inv.GET("/parts/:id", can("inventory_view"), inventoryH.GetPart)
			inv.PUT("/parts/:id", can("inventory_edit"), inventoryH.UpdatePart)
			inv.DELETE("/parts/:id", can("inventory_delete"), inventoryH.DeletePart)
			inv.GET("/parts/:id/level", can("inventory_view"), inventoryH.Level)
			inv.GET("/parts/:id/batches", can("inventory_view"), inventoryH.Batches)
			inv.POST("/parts/:id/receive", can("inventory_edit"), inventoryH.Receive)
			inv.POST("/parts/:id/adjust", can("inventory_edit"), inventoryH.Adjust)
			inv.POST("/parts/:id/reconcile", can("inventory_edit"), inventoryH.Reconcile)
			inv.GET("/reconciliation", can("inventory_view"), inventoryH.Reconciliation)
			inv.GET("/transactions", can("inventory_view"), inventoryH.Transactions)
			inv.GET("/low-stock", can("inventory_view"), inventoryH.LowStock)

			inv.GET("/reservations", can("inventory_view"), inventoryH.ListReservations)
			inv.POST("/reservations", can("inventory_create"), inventoryH.Reserve)
			inv.POST("/reservations/cleanup", can("inventory_edit"), inventoryH.CleanupReservations)
			inv.DELETE("/reservations/:id", can("inventory_edit"), inventoryH.ReleaseReservation)
			inv.POST("/reservations/:id/consume", can("inventory_edit"), inventoryH.ConsumeReservation)
		}

		pm := v1.Group("/pm")
		{
			pm.GET("/tasks", can("pm_view"), pmH.List)
			pm.POST("/tasks", can("pm_create"), pmH.Create)
			pm.GET("/tasks/:id", can("pm_view"), pmH.Get)
			pm.PUT("/tasks/:id", can("pm_edit"), pmH.Update)
			pm.DELETE("/tasks/:id", can("pm_delete"), pmH.Deactivate)
			pm.GET("/due", can("pm_view"), pmH.Due)
			pm.POST("/tasks/:id/executions", can("pm_edit"), pmH.RecordExecution)
			pm.POST("/tasks/:id/complete", can("pm_edit"), pmH.Complete)
			pm.GET("/tasks/:id/history", can("pm_view"), pmH.History)
			pm.POST("/status-update", can("pm_edit"), pmH.UpdateStatuses)
		}

		reports := v1.Group("/reports", can("reports_view"))
		{
			reports.GET("/dashboard", reportsH.Dashboard)
			reports.GET("/maintenance-costs", reportsH.MaintenanceCosts)
			reports.GET("/inventory-valuation", reportsH.InventoryValuation)
			reports.GET("/inventory.xlsx", reportsH.InventoryExcel)
			reports.GET("/pm-schedule.xlsx", reportsH.PMScheduleExcel)
		}

		notif := v1.Group("/notifications")
		{
			notif.GET("", notificationsH.List)
			notif.GET("/unread-count", notificationsH.UnreadCount)
			notif.PATCH("/:id/read", notificationsH.MarkRead)
			notif.POST("/read-all", notificationsH.MarkAllRead)
		}

		v1.GET("/audit-logs", can("logs_view"), auditH.List)

		if jobs != nil {
			schedH := handler.NewSchedulerHandler(jobs)
			v1.GET("/scheduler/jobs", can("settings_view"), schedH.List)
			v1.POST("/scheduler/jobs/:name/run", can("settings_edit"), schedH.Run)
		}
	}

	// Swagger UI, outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
