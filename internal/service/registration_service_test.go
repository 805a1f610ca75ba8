package service_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"unicms/backend/internal/model"
	"unicms/backend/internal/repository"
	"unicms/backend/internal/repository/testutil"
	"unicms/backend/internal/service"
	"unicms/backend/internal/service/mock"
)

func newRegistrationService(t *testing.T, captcha service.RecaptchaVerifier) (service.RegistrationService, repository.RegistrationRepository) {
	t.Helper()
	database := testutil.NewTestDB(t)
	repo := repository.NewRegistrationRepository(database)
	if captcha == nil {
		captcha = service.NewNoopVerifier()
	}
	return service.NewRegistrationService(repo, captcha), repo
}

func validSubmission() service.RegistrationSubmission {
	return service.RegistrationSubmission{
		Name:      "Nguyen Van A",
		Email:     "Student@Example.COM",
		Facebook:  "https://facebook.com/nguyenvana",
		Phone:     "+84912345678",
		Major:     "Computer Science",
		IPAddress: "203.0.113.10",
		UserAgent: "Mozilla/5.0",
	}
}

func TestRegistrationService_SubmitStoresNormalizedForm(t *testing.T) {
	svc, _ := newRegistrationService(t, nil)

	created, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "student@example.com", created.Email)
	require.Equal(t, model.RegistrationStatusNew, created.Status)
	require.NotNil(t, created.Facebook)
	require.Equal(t, "203.0.113.10", created.IPAddress)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Name, stored.Name)
}

func TestRegistrationService_SubmitValidationMatrix(t *testing.T) {
	svc, _ := newRegistrationService(t, nil)

	tests := []struct {
		name   string
		mutate func(*service.RegistrationSubmission)
		field  string
	}{
		{name: "missing name", mutate: func(s *service.RegistrationSubmission) { s.Name = "  " }, field: "name"},
		{name: "name too long", mutate: func(s *service.RegistrationSubmission) { s.Name = strings.Repeat("a", 101) }, field: "name"},
		{name: "bad email", mutate: func(s *service.RegistrationSubmission) { s.Email = "not-an-email" }, field: "email"},
		{name: "facebook not a url", mutate: func(s *service.RegistrationSubmission) { s.Facebook = "ftp://fb.com/me" }, field: "facebook"},
		{name: "phone wrong prefix", mutate: func(s *service.RegistrationSubmission) { s.Phone = "+1555123456" }, field: "phone"},
		{name: "phone too short", mutate: func(s *service.RegistrationSubmission) { s.Phone = "091234" }, field: "phone"},
		{name: "missing major", mutate: func(s *service.RegistrationSubmission) { s.Major = "" }, field: "major"},
		{name: "major too long", mutate: func(s *service.RegistrationSubmission) { s.Major = strings.Repeat("m", 151) }, field: "major"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			submission := validSubmission()
			tc.mutate(&submission)

			_, err := svc.Submit(context.Background(), submission)
			require.ErrorIs(t, err, service.ErrInvalid)

			var validation service.ValidationErrors
			require.ErrorAs(t, err, &validation)
			require.Contains(t, validation, tc.field)
		})
	}
}

func TestRegistrationService_SubmitAcceptsLocalPhoneFormat(t *testing.T) {
	svc, _ := newRegistrationService(t, nil)

	submission := validSubmission()
	submission.Phone = "0912 345 678"

	created, err := svc.Submit(context.Background(), submission)
	require.NoError(t, err)
	require.Equal(t, "0912345678", created.Phone)
}

func TestRegistrationService_SubmitOptionalFieldsMayBeEmpty(t *testing.T) {
	svc, _ := newRegistrationService(t, nil)

	submission := validSubmission()
	submission.Facebook = ""
	submission.UserAgent = ""

	created, err := svc.Submit(context.Background(), submission)
	require.NoError(t, err)
	require.Nil(t, created.Facebook)
	require.Nil(t, created.UserAgent)
}

func TestRegistrationService_SubmitRequiresCaptcha(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	captcha := mock.NewMockRecaptchaVerifier(ctrl)
	captcha.EXPECT().Verify(gomock.Any(), "bad-token", "203.0.113.10").
		Return(service.ValidationErrors{"recaptchaToken": "captcha verification failed"})

	svc, _ := newRegistrationService(t, captcha)

	submission := validSubmission()
	submission.RecaptchaToken = "bad-token"

	_, err := svc.Submit(context.Background(), submission)
	require.ErrorIs(t, err, service.ErrInvalid)
}

func TestRegistrationService_ListFiltersByStatus(t *testing.T) {
	svc, repo := newRegistrationService(t, nil)

	first, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)

	second := validSubmission()
	second.Email = "other@example.com"
	_, err = svc.Submit(context.Background(), second)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(context.Background(), first.ID, model.RegistrationStatusEnrolled))

	page, err := svc.List(context.Background(), repository.RegistrationFilter{Status: model.RegistrationStatusEnrolled})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalItems)
	require.Len(t, page.Items, 1)
	require.Equal(t, first.ID, page.Items[0].ID)

	_, err = svc.List(context.Background(), repository.RegistrationFilter{Status: "bogus"})
	require.ErrorIs(t, err, service.ErrInvalid)
}

func TestRegistrationService_UpdateStatus(t *testing.T) {
	svc, _ := newRegistrationService(t, nil)

	created, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), created.ID, model.RegistrationStatusContacted)
	require.NoError(t, err)
	require.Equal(t, model.RegistrationStatusContacted, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), created.ID, "bogus")
	require.ErrorIs(t, err, service.ErrInvalid)

	_, err = svc.UpdateStatus(context.Background(), 999999, model.RegistrationStatusRejected)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestRegistrationService_ExportCSV(t *testing.T) {
	svc, _ := newRegistrationService(t, nil)

	created, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Name")
	require.Contains(t, lines[1], created.Name)
	require.Contains(t, lines[1], "student@example.com")
}
