package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-certificate-api/internal/handler"
	"github.com/noah-isme/edu-certificate-api/internal/middleware"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	"github.com/noah-isme/edu-certificate-api/internal/service"
	"github.com/noah-isme/edu-certificate-api/pkg/config"
	"github.com/noah-isme/edu-certificate-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edu-certificate-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edu-certificate-api/pkg/middleware/requestid"
)

type routeDeps struct {
	auth         middleware.TokenValidator
	audit        middleware.AuditWriter
	metrics      *service.MetricsService
	certificates *handler.CertificateHandler
	eligibility  *handler.EligibilityHandler
	templates    *handler.TemplateHandler
	verification *handler.VerificationHandler
	downloads    *handler.DownloadHandler
	ops          *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.ops.Health)
	r.GET("/ready", deps.ops.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", deps.ops.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := middleware.RequirePrivileged()
	admin := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	staffOrSelf := middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), string(models.RoleInstructor), middleware.Self)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	api.GET("/verify/:number", deps.verification.Verify)
	api.GET("/certificates/files/:token", deps.downloads.OpenLink)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.auth))

	secured.GET("/courses/:courseId/eligibility/:studentId", staffOrSelf, deps.eligibility.Evaluate)
	secured.GET("/courses/:courseId/certificates", staff, deps.certificates.ListByCourse)
	secured.GET("/courses/:courseId/certificates/export", staff, deps.certificates.ExportCourse)
	secured.GET("/students/:id/certificates", staffOrSelf, deps.certificates.ListByStudent)

	certs := secured.Group("/certificates")
	certs.POST("/generate", deps.certificates.Generate)
	certs.POST("/issue", staff, deps.certificates.Issue)
	certs.GET("/stats", staff, deps.certificates.Stats)
	certs.GET("/:id", deps.certificates.Get)
	certs.GET("/:id/history", deps.certificates.History)
	certs.PUT("/:id/revoke", staff, deps.certificates.Revoke)
	certs.GET("/:id/download-data", deps.downloads.DownloadData)
	certs.GET("/:id/download", deps.downloads.Download)
	certs.POST("/:id/download-link", deps.downloads.CreateLink)

	templates := secured.Group("/templates")
	templates.GET("", deps.templates.List)
	templates.GET("/:id", deps.templates.Get)
	templates.POST("", admin, middleware.Audit(deps.audit, logr, models.AuditActionTemplateCreate, models.AuditResourceTemplate), deps.templates.Create)
	templates.PUT("/:id", admin, middleware.Audit(deps.audit, logr, models.AuditActionTemplateUpdate, models.AuditResourceTemplate), deps.templates.Update)
	templates.DELETE("/:id", admin, middleware.Audit(deps.audit, logr, models.AuditActionTemplateDelete, models.AuditResourceTemplate), deps.templates.Delete)

	secured.GET("/metrics/summary", admin, deps.ops.Snapshot)

	return r
}
