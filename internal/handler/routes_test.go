package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"unicms/backend/internal/handler"
)

func assertRoute(t *testing.T, routes []*echo.Route, method, path string) {
	t.Helper()
	for _, r := range routes {
		if r.Method == method && r.Path == path {
			return
		}
	}
	t.Fatalf("route not found: %s %s", method, path)
}

func TestHandler_RegisterRoutes(t *testing.T) {
	e := newTestEcho()
	g := e.Group("/api")

	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }

	imageHandler := handler.NewImageHandler(nil)
	imageHandler.RegisterRoutes(g, passthrough, passthrough)
	imageHandler.RegisterPublicRoutes(g)

	studentHandler := handler.NewStudentHandler(nil)
	studentHandler.RegisterPublicRoutes(g)
	studentHandler.RegisterAdminRoutes(g)

	authHandler := handler.NewAuthHandler(nil, time.Hour, false)
	authHandler.RegisterRoutes(g, g)
	authHandler.RegisterAdminRoutes(g)

	articleHandler := handler.NewArticleHandler(nil)
	articleHandler.RegisterRoutes(g)
	articleHandler.RegisterPublicRoutes(g)

	categoryHandler := handler.NewCategoryHandler(nil)
	categoryHandler.RegisterRoutes(g)
	categoryHandler.RegisterPublicRoutes(g)

	routes := e.Routes()

	assertRoute(t, routes, http.MethodPost, "/api/images/upload")
	assertRoute(t, routes, http.MethodGet, "/api/images")
	assertRoute(t, routes, http.MethodDelete, "/api/images/delete")
	assertRoute(t, routes, http.MethodDelete, "/api/images/bulk-delete")
	assertRoute(t, routes, http.MethodDelete, "/api/images/force-delete")
	assertRoute(t, routes, http.MethodGet, "/api/images/:directory/:filename")

	assertRoute(t, routes, http.MethodPost, "/api/students/register")
	assertRoute(t, routes, http.MethodGet, "/api/students/registrations")
	assertRoute(t, routes, http.MethodGet, "/api/students/registrations/export")
	assertRoute(t, routes, http.MethodPatch, "/api/students/registrations/:id/status")

	assertRoute(t, routes, http.MethodPost, "/api/auth/register")
	assertRoute(t, routes, http.MethodPost, "/api/auth/login")
	assertRoute(t, routes, http.MethodPost, "/api/auth/logout")
	assertRoute(t, routes, http.MethodGet, "/api/auth/me")
	assertRoute(t, routes, http.MethodPut, "/api/auth/profile")
	assertRoute(t, routes, http.MethodPut, "/api/auth/password")
	assertRoute(t, routes, http.MethodGet, "/api/users")

	assertRoute(t, routes, http.MethodPost, "/api/articles")
	assertRoute(t, routes, http.MethodGet, "/api/articles")
	assertRoute(t, routes, http.MethodGet, "/api/articles/:id")
	assertRoute(t, routes, http.MethodPut, "/api/articles/:id")
	assertRoute(t, routes, http.MethodDelete, "/api/articles/:id")
	assertRoute(t, routes, http.MethodPatch, "/api/articles/:id/status")
	assertRoute(t, routes, http.MethodGet, "/api/articles/public")
	assertRoute(t, routes, http.MethodGet, "/api/articles/slug/:slug")
	assertRoute(t, routes, http.MethodGet, "/api/articles/search")
	assertRoute(t, routes, http.MethodGet, "/api/articles/statistics")

	assertRoute(t, routes, http.MethodPost, "/api/categories")
	assertRoute(t, routes, http.MethodPut, "/api/categories/:id")
	assertRoute(t, routes, http.MethodDelete, "/api/categories/:id")
	assertRoute(t, routes, http.MethodGet, "/api/categories")
	assertRoute(t, routes, http.MethodGet, "/api/categories/:id")
	assertRoute(t, routes, http.MethodGet, "/api/categories/statistics")
}
