package handler

import (
	"github.com/labstack/echo/v4"

	"unicms/backend/internal/service"
)

// userContextKey is where the auth middleware stores the validated claims.
const userContextKey = "currentUser"

// SetCurrentUser stores the authenticated claims on the request context.
func SetCurrentUser(c echo.Context, claims *service.Claims) {
	c.Set(userContextKey, claims)
}

func currentUser(c echo.Context) *service.Claims {
	claims, _ := c.Get(userContextKey).(*service.Claims)
	return claims
}

// CurrentUser returns the authenticated claims, or nil on unauthenticated
// requests.
func CurrentUser(c echo.Context) *service.Claims {
	return currentUser(c)
}
