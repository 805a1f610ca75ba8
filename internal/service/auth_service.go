//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"unicms/backend/internal/model"
	"unicms/backend/internal/repository"
	"unicms/backend/pkg/logger"
)

// Claims carries the authenticated identity extracted from a token.
type Claims struct {
	UserID   int64
	Username string
	Role     string
}

type AuthResponse struct {
	Token string
	User  model.User
}

// ProfileInput carries the self-editable account fields. An empty email
// keeps the current one; names are replaced as given.
type ProfileInput struct {
	Email     string
	FirstName string
	LastName  string
}

type UserPage struct {
	Items      []model.User
	Page       int
	Limit      int
	TotalItems int
	TotalPages int
}

type AuthService interface {
	Register(ctx context.Context, username, email, password, role string) (*AuthResponse, error)
	Login(ctx context.Context, identifier, password string) (*AuthResponse, error)
	ValidateToken(token string) (*Claims, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	UpdateProfile(ctx context.Context, userID int64, input ProfileInput) (model.User, error)
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
	// ListUsers is the admin account directory.
	ListUsers(ctx context.Context, filter repository.UserFilter) (UserPage, error)
}

type authService struct {
	users      repository.UserRepository
	jwtSecret  []byte
	jwtExpiry  time.Duration
	bcryptCost int
}

func NewAuthService(users repository.UserRepository, jwtSecret string, jwtExpiry time.Duration, bcryptCost int) AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		users:      users,
		jwtSecret:  []byte(jwtSecret),
		jwtExpiry:  jwtExpiry,
		bcryptCost: bcryptCost,
	}
}

func (s *authService) Register(ctx context.Context, username, email, password, role string) (*AuthResponse, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	errs := ValidationErrors{}
	if username == "" {
		errs["username"] = "username is required"
	}
	if !emailRegex.MatchString(email) {
		errs["email"] = "a valid email is required"
	}
	if len(password) < 8 {
		errs["password"] = "password must be at least 8 characters"
	}
	if len(errs) > 0 {
		return nil, errs
	}

	for _, identifier := range []string{username, email} {
		existing, err := s.users.FindByIdentifier(ctx, identifier)
		if err != nil {
			return nil, fmt.Errorf("check existing user: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("user %s: %w", identifier, ErrConflict)
		}
	}

	// The very first account becomes the admin; everything else defaults to
	// student unless a role was requested by an admin caller.
	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if count == 0 {
		role = model.RoleAdmin
	} else if role == "" {
		role = model.RoleStudent
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	logger.Info("user registered", "username", user.Username, "role", user.Role)
	return &AuthResponse{Token: token, User: user}, nil
}

func (s *authService) Login(ctx context.Context, identifier, password string) (*AuthResponse, error) {
	user, err := s.users.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.Warn("failed login attempt", "identifier", identifier)
		return nil, ErrUnauthorized
	}
	if !user.Active {
		return nil, ErrForbidden
	}

	token, err := s.issueToken(*user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: *user}, nil
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthorized
	}

	userID, ok := mapClaims["sub"].(string)
	if !ok {
		return nil, ErrUnauthorized
	}
	var id int64
	if _, err := fmt.Sscanf(userID, "%d", &id); err != nil {
		return nil, ErrUnauthorized
	}

	username, _ := mapClaims["username"].(string)
	role, _ := mapClaims["role"].(string)

	return &Claims{UserID: id, Username: username, Role: role}, nil
}

func (s *authService) GetUser(ctx context.Context, id int64) (model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID int64, input ProfileInput) (model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}

	if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" && email != user.Email {
		if !emailRegex.MatchString(email) {
			return model.User{}, ValidationErrors{"email": "a valid email is required"}
		}
		existing, err := s.users.FindByIdentifier(ctx, email)
		if err != nil {
			return model.User{}, fmt.Errorf("check email: %w", err)
		}
		if existing != nil && existing.ID != userID {
			return model.User{}, fmt.Errorf("email %s: %w", email, ErrConflict)
		}
		user.Email = email
	}

	user.FirstName = optionalString(input.FirstName)
	user.LastName = optionalString(input.LastName)

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		if isNoRows(err) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	logger.Info("profile updated", "username", updated.Username)
	return updated, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return ValidationErrors{"newPassword": "password must be at least 8 characters"}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		logger.Warn("password change rejected", "username", user.Username)
		return ErrUnauthorized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	logger.Info("password changed", "username", user.Username)
	return nil
}

func (s *authService) ListUsers(ctx context.Context, filter repository.UserFilter) (UserPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}

	items, total, err := s.users.List(ctx, filter)
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}

	return UserPage{
		Items:      items,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalItems: total,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func (s *authService) issueToken(user model.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", user.ID),
		"username": user.Username,
		"role":     user.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(s.jwtExpiry).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
