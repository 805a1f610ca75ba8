package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"unicms/backend/internal/handler"
	"unicms/backend/internal/model"
	"unicms/backend/internal/repository"
	"unicms/backend/internal/service"
	"unicms/backend/internal/service/mock"
)

func newAuthHandler(t *testing.T, production bool) (*handler.AuthHandler, *mock.MockAuthService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	auth := mock.NewMockAuthService(ctrl)
	return handler.NewAuthHandler(auth, 24*time.Hour, production), auth
}

func authCookie(rec interface{ Header() http.Header }) *http.Cookie {
	resp := http.Response{Header: rec.Header()}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == handler.AuthCookieName {
			return cookie
		}
	}
	return nil
}

func TestAuthHandler_Register(t *testing.T) {
	h, auth := newAuthHandler(t, false)

	auth.EXPECT().
		Register(gomock.Any(), "alice", "alice@example.edu.vn", "secret123", "").
		Return(&service.AuthResponse{
			Token: "issued-token",
			User:  model.User{ID: 1, Username: "alice", Email: "alice@example.edu.vn", Role: model.RoleAdmin},
		}, nil)

	e := newTestEcho()
	req := newJSONRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.edu.vn",
		"password": "secret123",
	})
	c, rec := newTestContext(e, req)

	require.NoError(t, h.Register(c))

	var resp struct {
		Data handler.AuthResponseDTO `json:"data"`
	}
	assertJSONResponse(t, rec, http.StatusCreated, &resp)
	require.Equal(t, "issued-token", resp.Data.Token)
	require.Equal(t, "alice", resp.Data.User.Username)

	cookie := authCookie(rec)
	require.NotNil(t, cookie)
	require.Equal(t, "issued-token", cookie.Value)
	require.True(t, cookie.HttpOnly)
	require.False(t, cookie.Secure)
}

func TestAuthHandler_RegisterRoleIgnoredForAnonymous(t *testing.T) {
	h, auth := newAuthHandler(t, false)

	// The requested role must not reach the service without an admin session.
	auth.EXPECT().
		Register(gomock.Any(), "bob", "bob@example.edu.vn", "secret123", "").
		Return(&service.AuthResponse{Token: "t", User: model.User{ID: 2, Username: "bob", Role: model.RoleStudent}}, nil)

	e := newTestEcho()
	req := newJSONRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "bob",
		"email":    "bob@example.edu.vn",
		"password": "secret123",
		"role":     "admin",
	})
	c, _ := newTestContext(e, req)

	require.NoError(t, h.Register(c))
}

func TestAuthHandler_RegisterRoleHonoredForAdmin(t *testing.T) {
	h, auth := newAuthHandler(t, false)

	auth.EXPECT().
		Register(gomock.Any(), "carol", "carol@example.edu.vn", "secret123", "faculty").
		Return(&service.AuthResponse{Token: "t", User: model.User{ID: 3, Username: "carol", Role: model.RoleFaculty}}, nil)

	e := newTestEcho()
	req := newJSONRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "carol",
		"email":    "carol@example.edu.vn",
		"password": "secret123",
		"role":     "faculty",
	})
	c, _ := newTestContext(e, req)
	handler.SetCurrentUser(c, &service.Claims{UserID: 1, Username: "root", Role: model.RoleAdmin})

	require.NoError(t, h.Register(c))
}

func TestAuthHandler_Login(t *testing.T) {
	h, auth := newAuthHandler(t, true)

	t.Run("Success", func(t *testing.T) {
		auth.EXPECT().
			Login(gomock.Any(), "alice", "secret123").
			Return(&service.AuthResponse{
				Token: "session-token",
				User:  model.User{ID: 1, Username: "alice", Role: model.RoleAdmin},
			}, nil)

		e := newTestEcho()
		req := newJSONRequest(http.MethodPost, "/api/auth/login", map[string]string{
			"identifier": "alice",
			"password":   "secret123",
		})
		c, rec := newTestContext(e, req)

		require.NoError(t, h.Login(c))
		require.Equal(t, http.StatusOK, rec.Code)

		cookie := authCookie(rec)
		require.NotNil(t, cookie)
		require.True(t, cookie.Secure) // production handler
	})

	t.Run("BadCredentials", func(t *testing.T) {
		auth.EXPECT().
			Login(gomock.Any(), "alice", "wrong").
			Return(nil, service.ErrUnauthorized)

		e := newTestEcho()
		req := newJSONRequest(http.MethodPost, "/api/auth/login", map[string]string{
			"identifier": "alice",
			"password":   "wrong",
		})
		c, rec := newTestContext(e, req)

		require.NoError(t, h.Login(c))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Nil(t, authCookie(rec))
	})
}

func TestAuthHandler_LogoutClearsCookie(t *testing.T) {
	h, _ := newAuthHandler(t, false)

	e := newTestEcho()
	req := newJSONRequest(http.MethodPost, "/api/auth/logout", nil)
	c, rec := newTestContext(e, req)

	require.NoError(t, h.Logout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := authCookie(rec)
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
	require.Equal(t, -1, cookie.MaxAge)
}

func TestAuthHandler_Me(t *testing.T) {
	h, auth := newAuthHandler(t, false)

	t.Run("Authenticated", func(t *testing.T) {
		auth.EXPECT().
			GetUser(gomock.Any(), int64(7)).
			Return(model.User{ID: 7, Username: "dora", Email: "dora@example.edu.vn", Role: model.RoleFaculty}, nil)

		e := newTestEcho()
		req := newJSONRequest(http.MethodGet, "/api/auth/me", nil)
		c, rec := newTestContext(e, req)
		handler.SetCurrentUser(c, &service.Claims{UserID: 7, Username: "dora", Role: model.RoleFaculty})

		require.NoError(t, h.Me(c))

		var resp struct {
			Data handler.UserResponse `json:"data"`
		}
		assertJSONResponse(t, rec, http.StatusOK, &resp)
		require.Equal(t, "7", resp.Data.ID)
		require.Equal(t, "dora", resp.Data.Username)
	})

	t.Run("NoSession", func(t *testing.T) {
		e := newTestEcho()
		req := newJSONRequest(http.MethodGet, "/api/auth/me", nil)
		c, rec := newTestContext(e, req)

		require.NoError(t, h.Me(c))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	h, auth := newAuthHandler(t, false)

	t.Run("Success", func(t *testing.T) {
		first := "Dora"
		auth.EXPECT().
			UpdateProfile(gomock.Any(), int64(7), service.ProfileInput{
				Email:     "dora.new@example.edu.vn",
				FirstName: "Dora",
			}).
			Return(model.User{ID: 7, Username: "dora", Email: "dora.new@example.edu.vn", FirstName: &first, Role: model.RoleFaculty}, nil)

		e := newTestEcho()
		req := newJSONRequest(http.MethodPut, "/api/auth/profile", map[string]string{
			"email":     "dora.new@example.edu.vn",
			"firstName": "Dora",
		})
		c, rec := newTestContext(e, req)
		handler.SetCurrentUser(c, &service.Claims{UserID: 7, Username: "dora", Role: model.RoleFaculty})

		require.NoError(t, h.UpdateProfile(c))

		var resp struct {
			Data handler.UserResponse `json:"data"`
		}
		assertJSONResponse(t, rec, http.StatusOK, &resp)
		require.Equal(t, "dora.new@example.edu.vn", resp.Data.Email)
		require.NotNil(t, resp.Data.FirstName)
		require.Equal(t, "Dora", *resp.Data.FirstName)
	})

	t.Run("NoSession", func(t *testing.T) {
		e := newTestEcho()
		req := newJSONRequest(http.MethodPut, "/api/auth/profile", map[string]string{"firstName": "Ghost"})
		c, rec := newTestContext(e, req)

		require.NoError(t, h.UpdateProfile(c))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	h, auth := newAuthHandler(t, false)

	t.Run("Success", func(t *testing.T) {
		auth.EXPECT().
			ChangePassword(gomock.Any(), int64(7), "old-secret", "new-secret").
			Return(nil)

		e := newTestEcho()
		req := newJSONRequest(http.MethodPut, "/api/auth/password", map[string]string{
			"currentPassword": "old-secret",
			"newPassword":     "new-secret",
			"confirmPassword": "new-secret",
		})
		c, rec := newTestContext(e, req)
		handler.SetCurrentUser(c, &service.Claims{UserID: 7, Username: "dora", Role: model.RoleFaculty})

		require.NoError(t, h.ChangePassword(c))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	// The confirmation checks run before the service is consulted, so no
	// expectation is primed for these.
	t.Run("MissingFields", func(t *testing.T) {
		e := newTestEcho()
		req := newJSONRequest(http.MethodPut, "/api/auth/password", map[string]string{
			"currentPassword": "old-secret",
		})
		c, rec := newTestContext(e, req)
		handler.SetCurrentUser(c, &service.Claims{UserID: 7, Username: "dora", Role: model.RoleFaculty})

		require.NoError(t, h.ChangePassword(c))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ConfirmationMismatch", func(t *testing.T) {
		e := newTestEcho()
		req := newJSONRequest(http.MethodPut, "/api/auth/password", map[string]string{
			"currentPassword": "old-secret",
			"newPassword":     "new-secret",
			"confirmPassword": "different",
		})
		c, rec := newTestContext(e, req)
		handler.SetCurrentUser(c, &service.Claims{UserID: 7, Username: "dora", Role: model.RoleFaculty})

		require.NoError(t, h.ChangePassword(c))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_ListUsers(t *testing.T) {
	h, auth := newAuthHandler(t, false)

	auth.EXPECT().
		ListUsers(gomock.Any(), repository.UserFilter{
			Page:   2,
			Limit:  5,
			Role:   model.RoleStudent,
			Search: "tran",
		}).
		Return(service.UserPage{
			Items:      []model.User{{ID: 9, Username: "tran", Email: "tran@example.edu.vn", Role: model.RoleStudent}},
			Page:       2,
			Limit:      5,
			TotalItems: 6,
			TotalPages: 2,
		}, nil)

	e := newTestEcho()
	req := newJSONRequest(http.MethodGet, "/api/users?page=2&limit=5&role=student&search=tran", nil)
	c, rec := newTestContext(e, req)

	require.NoError(t, h.ListUsers(c))

	var resp struct {
		Data handler.UserListResponse `json:"data"`
	}
	assertJSONResponse(t, rec, http.StatusOK, &resp)
	require.Len(t, resp.Data.Items, 1)
	require.Equal(t, "tran", resp.Data.Items[0].Username)
	require.Equal(t, 6, resp.Data.TotalItems)
	require.Equal(t, 2, resp.Data.TotalPages)
}
