package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"unicms/backend/internal/service"
)

// envelope is the uniform JSON response shape.
type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c echo.Context, code int, data interface{}) error {
	return c.JSON(code, envelope{Status: "success", Data: data})
}

func okMessage(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, envelope{Status: "success", Message: message, Data: data})
}

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, envelope{Status: "error", Message: message})
}

func failData(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, envelope{Status: "error", Message: message, Data: data})
}

// writeServiceError maps service-layer errors onto HTTP responses. Validation
// errors carry per-field messages in data; in-use conflicts carry the
// referencing articles.
func writeServiceError(c echo.Context, err error) error {
	var validation service.ValidationErrors
	if errors.As(err, &validation) {
		return failData(c, http.StatusBadRequest, "validation failed", map[string]interface{}{
			"errors": validation,
		})
	}

	var inUse *service.ImageInUseError
	if errors.As(err, &inUse) {
		refs := make([]map[string]string, 0, len(inUse.Articles))
		for _, ref := range inUse.Articles {
			refs = append(refs, map[string]string{
				"id":   itoa64(ref.ID),
				"slug": ref.Slug,
			})
		}
		return failData(c, http.StatusConflict, "image is still referenced by articles", map[string]interface{}{
			"filename": inUse.Filename,
			"articles": refs,
		})
	}

	switch {
	case errors.Is(err, service.ErrInvalid):
		return fail(c, http.StatusBadRequest, "invalid request")
	case errors.Is(err, service.ErrUnauthorized):
		return fail(c, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrForbidden):
		return fail(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound):
		return fail(c, http.StatusNotFound, "resource not found")
	case errors.Is(err, service.ErrConflict):
		return fail(c, http.StatusConflict, "conflict")
	case errors.Is(err, service.ErrInUse):
		return fail(c, http.StatusConflict, "resource in use")
	case errors.Is(err, service.ErrProcessing):
		return fail(c, http.StatusInternalServerError, "processing failed")
	default:
		return fail(c, http.StatusInternalServerError, "internal error")
	}
}

func itoa(value int) string {
	return strconv.Itoa(value)
}

func itoa64(value int64) string {
	return strconv.FormatInt(value, 10)
}

func idPtrToString(id *int64) *string {
	if id == nil {
		return nil
	}
	s := strconv.FormatInt(*id, 10)
	return &s
}
