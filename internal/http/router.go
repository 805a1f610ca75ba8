package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"unicms/backend/internal/handler"
	"unicms/backend/internal/model"
	"unicms/backend/internal/service"
	"unicms/backend/internal/traffic"
)

const (
	uploadLimiterRequests = 20
	uploadLimiterWindow   = 15 * time.Minute

	// Transport-layer cap matching the image service's per-file limit, so an
	// oversized body is rejected before the multipart form is parsed.
	uploadBodyLimit = "10M"
)

// NewRouter assembles the HTTP surface: public content and registration
// routes, authenticated management routes, and the admin SPA fallback.
func NewRouter(
	imageHandler *handler.ImageHandler,
	studentHandler *handler.StudentHandler,
	authHandler *handler.AuthHandler,
	articleHandler *handler.ArticleHandler,
	categoryHandler *handler.CategoryHandler,
	authService service.AuthService,
	guard *traffic.Guard,
	throttle *traffic.Throttle,
	staticDir string,
	production bool,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(RequestLoggerMiddleware())

	api := e.Group("/api")

	// Public surface.
	imageHandler.RegisterPublicRoutes(api)
	articleHandler.RegisterPublicRoutes(api)
	categoryHandler.RegisterPublicRoutes(api)
	studentHandler.RegisterPublicRoutes(api,
		DdosGuardMiddleware(guard, production),
		ThrottleMiddleware(throttle, production),
	)

	authed := api.Group("", JWTAuthMiddleware(authService))
	authHandler.RegisterRoutes(api, authed)

	// Content management requires at least faculty.
	staff := api.Group("", JWTAuthMiddleware(authService), RequireRole(model.RoleFaculty, model.RoleAdmin))
	articleHandler.RegisterRoutes(staff)
	categoryHandler.RegisterRoutes(staff)
	imageHandler.RegisterRoutes(staff,
		RequireRole(model.RoleAdmin),
		UploadLimiterMiddleware(uploadLimiterRequests, uploadLimiterWindow),
		middleware.BodyLimit(uploadBodyLimit))

	admin := api.Group("", JWTAuthMiddleware(authService), RequireRole(model.RoleAdmin))
	studentHandler.RegisterAdminRoutes(admin)
	authHandler.RegisterAdminRoutes(admin)

	registerStatic(e, staticDir)

	return e
}
