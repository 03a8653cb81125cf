package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/access"
	"github.com/noah-isme/compliance-api/internal/middleware"
	"github.com/noah-isme/compliance-api/internal/models"
)

// Router mounts every API endpoint. Each group is gated on the screen that
// consumes it.
type Router struct {
	Auth           *AuthHandler
	Session        *SessionHandler
	Company        *CompanyHandler
	Certificates   *CertificateHandler
	SelfProtection *SelfProtectionHandler
	QRDocuments    *QRDocumentHandler
	Events         *EventHandler
	Files          *FileHandler
	Dashboard      *DashboardHandler
	Reports        *ReportHandler
	Metrics        *MetricsHandler

	// RequireAuth and OptionalAuth resolve the caller's session.
	RequireAuth  gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	// AuditLog records an audit entry for endpoints whose services do not.
	AuditLog func(action, resource string) gin.HandlerFunc
}

// Register mounts the routes: probes and metrics at the root, the API under prefix.
func (rt *Router) Register(engine *gin.Engine, prefix string) {
	engine.GET("/health", rt.Metrics.Health)
	engine.GET("/ready", rt.Metrics.Ready)
	engine.GET("/metrics", rt.Metrics.Prometheus)

	api := engine.Group(prefix)
	audit := rt.AuditLog
	if audit == nil {
		audit = func(string, string) gin.HandlerFunc { return func(c *gin.Context) { c.Next() } }
	}

	auth := api.Group("/auth")
	auth.POST("/login", rt.Auth.Login)
	auth.POST("/register", rt.Auth.Register)
	auth.POST("/refresh", rt.Auth.Refresh)
	auth.POST("/logout", rt.RequireAuth, rt.Auth.Logout)
	auth.GET("/me", rt.RequireAuth, rt.Auth.Me)

	api.GET("/session/route", rt.OptionalAuth, rt.Session.Route)

	// Token-bearing links are opened by the browser without an Authorization header.
	api.GET("/files/download", rt.Files.Download)
	api.GET("/files/preview/:handle", rt.Files.OpenPreview)
	if rt.Reports != nil {
		api.GET("/reports/download/:token", rt.Reports.Download)
	}

	secured := api.Group("", rt.RequireAuth)

	secured.POST("/company", middleware.Gate(access.RouteCreateCompany), rt.Company.Create)

	onboarding := secured.Group("", middleware.Gate(access.RouteSubscription))
	onboarding.GET("/company", rt.Company.Get)
	onboarding.GET("/subscription/plans", rt.Company.Plans)
	onboarding.POST("/subscription", rt.Company.Subscribe)

	settings := secured.Group("/company", middleware.Gate(access.RouteSettings))
	settings.PATCH("", rt.Company.Update)
	settings.POST("/employees", rt.Company.AddEmployee)
	settings.PUT("/employees/:id", rt.Company.UpdateEmployee)
	settings.DELETE("/employees/:id", rt.Company.DeleteEmployee)

	secured.GET("/dashboard", middleware.Gate(access.RouteDashboard), rt.Dashboard.Get)

	certificates := secured.Group("/certificates", middleware.Gate(access.RouteCertificates))
	certificates.GET("", rt.Certificates.List)
	certificates.POST("", rt.Certificates.Create)
	certificates.PUT("/:id", rt.Certificates.Update)
	certificates.DELETE("/:id", rt.Certificates.Delete)

	systems := secured.Group("/self-protection-systems", middleware.Gate(access.RouteSelfProtection))
	systems.GET("", rt.SelfProtection.List)
	systems.POST("", rt.SelfProtection.Create)
	systems.PUT("/:id", rt.SelfProtection.Update)
	systems.DELETE("/:id", rt.SelfProtection.Delete)

	qr := secured.Group("/qr-documents", middleware.Gate(access.RouteDashboard))
	qr.GET("", rt.QRDocuments.List)
	qr.POST("", rt.QRDocuments.Upload)
	qr.POST("/:id/confirm-date", rt.QRDocuments.ConfirmDate)
	qr.DELETE("/:id", rt.QRDocuments.Delete)

	events := secured.Group("/events", middleware.Gate(access.RouteEventInformation))
	events.GET("", rt.Events.List)
	events.POST("", rt.Events.Create)
	events.GET("/:id", rt.Events.Get)
	events.PUT("/:id", rt.Events.Update)
	events.DELETE("/:id", rt.Events.Delete)
	events.GET("/:id/pdf", rt.Events.PDF)

	files := secured.Group("/files", middleware.Gate(access.RouteDashboard))
	files.POST("", audit(models.AuditActionCreate, "file"), rt.Files.Upload)
	files.POST("/preview", rt.Files.Preview)
	files.DELETE("/preview/:handle", rt.Files.ReleasePreview)

	// Reports is nil when report generation is disabled.
	if rt.Reports != nil {
		reports := secured.Group("/reports", middleware.Gate(access.RouteDashboard))
		reports.POST("", audit(models.AuditActionCreate, "report"), rt.Reports.Create)
		reports.GET("/:id", rt.Reports.Status)
	}
}
