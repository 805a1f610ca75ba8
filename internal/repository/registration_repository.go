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

// RegistrationFilter narrows and pages a registration listing.
type RegistrationFilter struct {
	Page   int
	Limit  int
	Status string
}

// RegistrationRepository defines the interface for student registration
// storage. Registrations are never deleted.
type RegistrationRepository interface {
	Create(ctx context.Context, registration model.Registration) (model.Registration, error)
	GetByID(ctx context.Context, id int64) (model.Registration, error)
	List(ctx context.Context, filter RegistrationFilter) ([]model.Registration, int, error)
	ListAll(ctx context.Context) ([]model.Registration, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type registrationRepository struct {
	db *sql.DB
}

func NewRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) Create(ctx context.Context, registration model.Registration) (model.Registration, error) {
	registration.ID = snowflake.NextID()
	now := time.Now().UTC()
	registration.CreatedAt = now
	registration.UpdatedAt = now
	if registration.Status == "" {
		registration.Status = model.RegistrationStatusNew
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO student_registrations (id, name, email, facebook, phone, major, status, ip_address, user_agent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, registration.ID, registration.Name, registration.Email, nullableString(registration.Facebook),
		registration.Phone, registration.Major, registration.Status, registration.IPAddress,
		nullableString(registration.UserAgent), formatTime(now), formatTime(now))
	if err != nil {
		return model.Registration{}, err
	}
	return registration, nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id int64) (model.Registration, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, facebook, phone, major, status, ip_address, user_agent, created_at, updated_at
		FROM student_registrations WHERE id = ?
	`, id)
	return scanRegistration(row)
}

func (r *registrationRepository) List(ctx context.Context, filter RegistrationFilter) ([]model.Registration, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	condition := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM student_registrations WHERE `+condition, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, facebook, phone, major, status, ip_address, user_agent, created_at, updated_at
		FROM student_registrations WHERE `+condition+`
		ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	registrations, err := collectRegistrations(rows)
	if err != nil {
		return nil, 0, err
	}
	return registrations, total, nil
}

func (r *registrationRepository) ListAll(ctx context.Context) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, facebook, phone, major, status, ip_address, user_agent, created_at, updated_at
		FROM student_registrations ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE student_registrations SET status = ?, updated_at = ? WHERE id = ?
	`, status, formatTime(now), id)
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

func collectRegistrations(rows *sql.Rows) ([]model.Registration, error) {
	var registrations []model.Registration
	for rows.Next() {
		registration, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, registration)
	}
	return registrations, rows.Err()
}

func scanRegistration(row rowScanner) (model.Registration, error) {
	var (
		registration         model.Registration
		facebook, userAgent  sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&registration.ID, &registration.Name, &registration.Email, &facebook,
		&registration.Phone, &registration.Major, &registration.Status, &registration.IPAddress,
		&userAgent, &createdAt, &updatedAt); err != nil {
		return model.Registration{}, err
	}
	registration.Facebook = stringPtr(facebook)
	registration.UserAgent = stringPtr(userAgent)
	registration.CreatedAt, _ = parseTime(createdAt)
	registration.UpdatedAt, _ = parseTime(updatedAt)
	return registration, nil
}
