//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"unicms/backend/internal/model"
	"unicms/backend/internal/repository"
	"unicms/backend/pkg/logger"
)

const (
	maxNameLength  = 100
	maxMajorLength = 150
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Vietnamese mobile numbers: +84 or leading 0, then 9-10 digits.
	phoneRegex = regexp.MustCompile(`^(?:\+84|0)\d{9,10}$`)
)

var registrationStatuses = map[string]bool{
	model.RegistrationStatusNew:       true,
	model.RegistrationStatusContacted: true,
	model.RegistrationStatusEnrolled:  true,
	model.RegistrationStatusRejected:  true,
}

// RegistrationSubmission is the public intake form plus request metadata
// captured at the boundary.
type RegistrationSubmission struct {
	Name           string
	Email          string
	Facebook       string
	Phone          string
	Major          string
	RecaptchaToken string
	IPAddress      string
	UserAgent      string
}

type RegistrationPage struct {
	Items      []model.Registration
	Page       int
	Limit      int
	TotalItems int
	TotalPages int
}

type RegistrationService interface {
	Submit(ctx context.Context, submission RegistrationSubmission) (model.Registration, error)
	List(ctx context.Context, filter repository.RegistrationFilter) (RegistrationPage, error)
	Get(ctx context.Context, id int64) (model.Registration, error)
	UpdateStatus(ctx context.Context, id int64, status string) (model.Registration, error)
	ExportCSV(ctx context.Context, w io.Writer) error
}

type registrationService struct {
	registrations repository.RegistrationRepository
	captcha       RecaptchaVerifier
}

func NewRegistrationService(registrations repository.RegistrationRepository, captcha RecaptchaVerifier) RegistrationService {
	return &registrationService{registrations: registrations, captcha: captcha}
}

func (s *registrationService) Submit(ctx context.Context, submission RegistrationSubmission) (model.Registration, error) {
	if err := s.captcha.Verify(ctx, submission.RecaptchaToken, submission.IPAddress); err != nil {
		return model.Registration{}, err
	}

	registration, errs := buildRegistration(submission)
	if len(errs) > 0 {
		return model.Registration{}, errs
	}

	created, err := s.registrations.Create(ctx, registration)
	if err != nil {
		return model.Registration{}, fmt.Errorf("create registration: %w", err)
	}
	logger.Info("student registration received", "id", created.ID, "major", created.Major, "ip", created.IPAddress)
	return created, nil
}

// buildRegistration validates the whole form at once so the caller gets every
// field problem in a single response.
func buildRegistration(submission RegistrationSubmission) (model.Registration, ValidationErrors) {
	errs := ValidationErrors{}

	name := strings.TrimSpace(submission.Name)
	switch {
	case name == "":
		errs["name"] = "name is required"
	case len(name) > maxNameLength:
		errs["name"] = fmt.Sprintf("name must be at most %d characters", maxNameLength)
	}

	email := strings.ToLower(strings.TrimSpace(submission.Email))
	if !emailRegex.MatchString(email) {
		errs["email"] = "a valid email is required"
	}

	facebook := strings.TrimSpace(submission.Facebook)
	if facebook != "" {
		parsed, err := url.Parse(facebook)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			errs["facebook"] = "facebook must be a valid http(s) URL"
		}
	}

	phone := strings.ReplaceAll(strings.TrimSpace(submission.Phone), " ", "")
	if !phoneRegex.MatchString(phone) {
		errs["phone"] = "a valid Vietnamese phone number is required"
	}

	major := strings.TrimSpace(submission.Major)
	switch {
	case major == "":
		errs["major"] = "major is required"
	case len(major) > maxMajorLength:
		errs["major"] = fmt.Sprintf("major must be at most %d characters", maxMajorLength)
	}

	if len(errs) > 0 {
		return model.Registration{}, errs
	}

	registration := model.Registration{
		Name:      name,
		Email:     email,
		Phone:     phone,
		Major:     major,
		Status:    model.RegistrationStatusNew,
		IPAddress: submission.IPAddress,
	}
	if facebook != "" {
		registration.Facebook = &facebook
	}
	if agent := strings.TrimSpace(submission.UserAgent); agent != "" {
		registration.UserAgent = &agent
	}
	return registration, nil
}

func (s *registrationService) List(ctx context.Context, filter repository.RegistrationFilter) (RegistrationPage, error) {
	if filter.Status != "" && !registrationStatuses[filter.Status] {
		return RegistrationPage{}, ValidationErrors{"status": "unknown registration status"}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	items, total, err := s.registrations.List(ctx, filter)
	if err != nil {
		return RegistrationPage{}, fmt.Errorf("list registrations: %w", err)
	}

	return RegistrationPage{
		Items:      items,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalItems: total,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func (s *registrationService) Get(ctx context.Context, id int64) (model.Registration, error) {
	registration, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return model.Registration{}, ErrNotFound
		}
		return model.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return registration, nil
}

func (s *registrationService) UpdateStatus(ctx context.Context, id int64, status string) (model.Registration, error) {
	if !registrationStatuses[status] {
		return model.Registration{}, ValidationErrors{"status": "unknown registration status"}
	}

	if err := s.registrations.UpdateStatus(ctx, id, status); err != nil {
		if isNoRows(err) {
			return model.Registration{}, ErrNotFound
		}
		return model.Registration{}, fmt.Errorf("update registration status: %w", err)
	}
	return s.Get(ctx, id)
}

// ExportCSV streams every registration, newest first.
func (s *registrationService) ExportCSV(ctx context.Context, w io.Writer) error {
	registrations, err := s.registrations.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("export registrations: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"ID", "Name", "Email", "Facebook", "Phone", "Major", "Status", "Submitted At"}); err != nil {
		return err
	}

	for _, registration := range registrations {
		facebook := ""
		if registration.Facebook != nil {
			facebook = *registration.Facebook
		}
		record := []string{
			fmt.Sprintf("%d", registration.ID),
			registration.Name,
			registration.Email,
			facebook,
			registration.Phone,
			registration.Major,
			registration.Status,
			registration.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
