package handler_test

import (
	"errors"
	"net/http"
	"testing"

	"unicms/backend/internal/handler"
	"unicms/backend/internal/model"
	"unicms/backend/internal/service"

	"github.com/stretchr/testify/require"
)

func TestWriteServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		expected string
	}{
		{name: "invalid", err: service.ErrInvalid, status: http.StatusBadRequest, expected: "invalid request"},
		{name: "unauthorized", err: service.ErrUnauthorized, status: http.StatusUnauthorized, expected: "authentication required"},
		{name: "forbidden", err: service.ErrForbidden, status: http.StatusForbidden, expected: "forbidden"},
		{name: "not_found", err: service.ErrNotFound, status: http.StatusNotFound, expected: "resource not found"},
		{name: "conflict", err: service.ErrConflict, status: http.StatusConflict, expected: "conflict"},
		{name: "in_use", err: service.ErrInUse, status: http.StatusConflict, expected: "resource in use"},
		{name: "processing", err: service.ErrProcessing, status: http.StatusInternalServerError, expected: "processing failed"},
		{name: "default", err: errors.New("boom"), status: http.StatusInternalServerError, expected: "internal error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEcho()
			req := newJSONRequest(http.MethodGet, "/", nil)
			c, rec := newTestContext(e, req)

			err := handler.WriteServiceError(c, tc.err)
			require.NoError(t, err)

			var resp handler.Envelope
			assertJSONResponse(t, rec, tc.status, &resp)
			require.Equal(t, "error", resp.Status)
			require.Equal(t, tc.expected, resp.Message)
		})
	}
}

func TestWriteServiceError_ValidationCarriesFields(t *testing.T) {
	e := newTestEcho()
	req := newJSONRequest(http.MethodGet, "/", nil)
	c, rec := newTestContext(e, req)

	err := handler.WriteServiceError(c, service.ValidationErrors{"phone": "a valid Vietnamese phone number is required"})
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Errors map[string]string `json:"errors"`
		} `json:"data"`
	}
	assertJSONResponse(t, rec, http.StatusBadRequest, &resp)
	require.Equal(t, "error", resp.Status)
	require.Contains(t, resp.Data.Errors, "phone")
}

func TestWriteServiceError_ImageInUseCarriesReferences(t *testing.T) {
	e := newTestEcho()
	req := newJSONRequest(http.MethodGet, "/", nil)
	c, rec := newTestContext(e, req)

	err := handler.WriteServiceError(c, &service.ImageInUseError{
		Filename: "hero.jpg",
		Articles: []model.ArticleRef{{ID: 7, Slug: "campus-news"}},
	})
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Filename string `json:"filename"`
			Articles []struct {
				ID   string `json:"id"`
				Slug string `json:"slug"`
			} `json:"articles"`
		} `json:"data"`
	}
	assertJSONResponse(t, rec, http.StatusConflict, &resp)
	require.Equal(t, "hero.jpg", resp.Data.Filename)
	require.Len(t, resp.Data.Articles, 1)
	require.Equal(t, "campus-news", resp.Data.Articles[0].Slug)
}

func TestIDPtrToString(t *testing.T) {
	require.Nil(t, handler.IDPtrToString(nil))

	id := int64(42)
	got := handler.IDPtrToString(&id)
	require.NotNil(t, got)
	require.Equal(t, "42", *got)
}

func TestItoa(t *testing.T) {
	require.Equal(t, "123", handler.Itoa(123))
	require.Equal(t, "456", handler.Itoa64(456))
}
