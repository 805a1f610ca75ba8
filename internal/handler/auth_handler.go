package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"unicms/backend/internal/model"
	"unicms/backend/internal/repository"
	"unicms/backend/internal/service"
)

// AuthCookieName is the cookie carrying the session token for browser
// clients. API clients may use the Authorization header instead.
const AuthCookieName = "unicms_token"

type AuthHandler struct {
	service    service.AuthService
	cookieTTL  time.Duration
	production bool
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type updateProfileRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type userResponse struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Role      string  `json:"role"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"createdAt"`
}

type userListResponse struct {
	Items      []userResponse `json:"items"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalItems int            `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func NewAuthHandler(service service.AuthService, cookieTTL time.Duration, production bool) *AuthHandler {
	return &AuthHandler{service: service, cookieTTL: cookieTTL, production: production}
}

// RegisterRoutes mounts the public auth endpoints; authed receives the
// endpoints that require a valid session.
func (h *AuthHandler) RegisterRoutes(g *echo.Group, authed *echo.Group) {
	g.POST("/auth/register", h.Register)
	g.POST("/auth/login", h.Login)
	g.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)
	authed.PUT("/auth/profile", h.UpdateProfile)
	authed.PUT("/auth/password", h.ChangePassword)
}

// RegisterAdminRoutes mounts the account directory for administrators.
func (h *AuthHandler) RegisterAdminRoutes(g *echo.Group) {
	g.GET("/users", h.ListUsers)
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	// Role assignment is reserved for admins; self-registration always gets
	// the default.
	role := ""
	if claims := currentUser(c); claims != nil && claims.Role == model.RoleAdmin {
		role = req.Role
	}

	result, err := h.service.Register(c.Request().Context(), req.Username, req.Email, req.Password, role)
	if err != nil {
		return writeServiceError(c, err)
	}

	h.setAuthCookie(c, result.Token)
	return okMessage(c, http.StatusCreated, "account created", toAuthResponse(result))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	result, err := h.service.Login(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		return writeServiceError(c, err)
	}

	h.setAuthCookie(c, result.Token)
	return ok(c, http.StatusOK, toAuthResponse(result))
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteLaxMode,
	})
	return okMessage(c, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) Me(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	user, err := h.service.GetUser(c.Request().Context(), claims.UserID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return ok(c, http.StatusOK, toUserResponse(user))
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), claims.UserID, service.ProfileInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return okMessage(c, http.StatusOK, "profile updated", toUserResponse(user))
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return fail(c, http.StatusBadRequest, "current, new, and confirmation passwords are required")
	}
	if req.NewPassword != req.ConfirmPassword {
		return fail(c, http.StatusBadRequest, "new password and confirmation do not match")
	}

	if err := h.service.ChangePassword(c.Request().Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return writeServiceError(c, err)
	}
	return okMessage(c, http.StatusOK, "password changed", nil)
}

func (h *AuthHandler) ListUsers(c echo.Context) error {
	page, limit := parsePagination(c, 10)
	result, err := h.service.ListUsers(c.Request().Context(), repository.UserFilter{
		Page:   page,
		Limit:  limit,
		Role:   c.QueryParam("role"),
		Search: c.QueryParam("search"),
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	items := make([]userResponse, 0, len(result.Items))
	for _, user := range result.Items {
		items = append(items, toUserResponse(user))
	}
	return ok(c, http.StatusOK, userListResponse{
		Items:      items,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

func (h *AuthHandler) setAuthCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cookieTTL),
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteLaxMode,
	})
}

func toAuthResponse(result *service.AuthResponse) authResponse {
	return authResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	}
}

func toUserResponse(user model.User) userResponse {
	return userResponse{
		ID:        itoa64(user.ID),
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		Active:    user.Active,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}
