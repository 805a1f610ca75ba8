//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"unicms/backend/internal/model"
	"unicms/backend/pkg/snowflake"
)

// UserFilter narrows and pages a user listing. Search matches username,
// email, and first/last name as a case-insensitive substring.
type UserFilter struct {
	Page   int
	Limit  int
	Role   string
	Search string
}

// UserRepository defines the interface for user storage.
type UserRepository interface {
	Create(ctx context.Context, user model.User) (model.User, error)
	Update(ctx context.Context, user model.User) (model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	GetByID(ctx context.Context, id int64) (model.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, int, error)
	Count(ctx context.Context) (int, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	user.ID = snowflake.NextID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, first_name, last_name, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Username, user.Email, user.PasswordHash, nullableString(user.FirstName),
		nullableString(user.LastName), user.Role, boolToInt(user.Active), formatTime(now), formatTime(now))
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user model.User) (model.User, error) {
	now := time.Now().UTC()
	user.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET username = ?, email = ?, first_name = ?, last_name = ?, role = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, user.Username, user.Email, nullableString(user.FirstName), nullableString(user.LastName),
		user.Role, boolToInt(user.Active), formatTime(now), user.ID)
	if err != nil {
		return model.User{}, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return model.User{}, err
	}
	if rows == 0 {
		return model.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, formatTime(time.Now().UTC()), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, first_name, last_name, role, active, created_at, updated_at
		FROM users WHERE id = ?
	`, id)
	return scanUser(row)
}

// FindByIdentifier looks a user up by username or email. Returns nil without
// error when no user matches.
func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, first_name, last_name, role, active, created_at, updated_at
		FROM users WHERE username = ? OR email = ?
	`, identifier, identifier)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]model.User, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Role != "" {
		where = append(where, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		where = append(where, `(username LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\'
			OR first_name LIKE ? ESCAPE '\' OR last_name LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	condition := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE `+condition, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := `
		SELECT id, username, email, password_hash, first_name, last_name, role, active, created_at, updated_at
		FROM users WHERE ` + condition + `
		ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		user                 model.User
		firstName, lastName  sql.NullString
		active               int
		createdAt, updatedAt string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&firstName, &lastName, &user.Role, &active, &createdAt, &updatedAt); err != nil {
		return model.User{}, err
	}
	user.FirstName = stringPtr(firstName)
	user.LastName = stringPtr(lastName)
	user.Active = active != 0
	user.CreatedAt, _ = parseTime(createdAt)
	user.UpdatedAt, _ = parseTime(updatedAt)
	return user, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
