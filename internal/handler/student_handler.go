package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"unicms/backend/internal/model"
	"unicms/backend/internal/repository"
	"unicms/backend/internal/service"
)

type StudentHandler struct {
	service service.RegistrationService
}

type registrationRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Facebook       string `json:"facebook"`
	Phone          string `json:"phone"`
	Major          string `json:"major"`
	RecaptchaToken string `json:"recaptchaToken"`
}

type registrationResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Facebook  *string `json:"facebook,omitempty"`
	Phone     string  `json:"phone"`
	Major     string  `json:"major"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

type registrationListResponse struct {
	Items      []registrationResponse `json:"items"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalItems int                    `json:"totalItems"`
	TotalPages int                    `json:"totalPages"`
}

type updateRegistrationStatusRequest struct {
	Status string `json:"status"`
}

func NewStudentHandler(service service.RegistrationService) *StudentHandler {
	return &StudentHandler{service: service}
}

// RegisterPublicRoutes mounts the intake endpoint. The abuse guard and the
// per-IP throttle are attached by the router, not here.
func (h *StudentHandler) RegisterPublicRoutes(g *echo.Group, guards ...echo.MiddlewareFunc) {
	g.POST("/students/register", h.Register, guards...)
}

// RegisterAdminRoutes mounts the registration management endpoints.
func (h *StudentHandler) RegisterAdminRoutes(g *echo.Group) {
	g.GET("/students/registrations", h.List)
	g.GET("/students/registrations/export", h.Export)
	g.PATCH("/students/registrations/:id/status", h.UpdateStatus)
}

func (h *StudentHandler) Register(c echo.Context) error {
	var req registrationRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	registration, err := h.service.Submit(c.Request().Context(), service.RegistrationSubmission{
		Name:           req.Name,
		Email:          req.Email,
		Facebook:       req.Facebook,
		Phone:          req.Phone,
		Major:          req.Major,
		RecaptchaToken: req.RecaptchaToken,
		IPAddress:      c.RealIP(),
		UserAgent:      c.Request().UserAgent(),
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	return okMessage(c, http.StatusCreated, "registration received", toRegistrationResponse(registration))
}

func (h *StudentHandler) List(c echo.Context) error {
	page, limit := parsePagination(c, 20)
	result, err := h.service.List(c.Request().Context(), repository.RegistrationFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	items := make([]registrationResponse, 0, len(result.Items))
	for _, registration := range result.Items {
		items = append(items, toRegistrationResponse(registration))
	}
	return ok(c, http.StatusOK, registrationListResponse{
		Items:      items,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

func (h *StudentHandler) Export(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="registrations-`+time.Now().UTC().Format("2006-01-02")+`.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	return h.service.ExportCSV(c.Request().Context(), c.Response())
}

func (h *StudentHandler) UpdateStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	var req updateRegistrationStatusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	registration, err := h.service.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return writeServiceError(c, err)
	}
	return ok(c, http.StatusOK, toRegistrationResponse(registration))
}

func toRegistrationResponse(registration model.Registration) registrationResponse {
	return registrationResponse{
		ID:        itoa64(registration.ID),
		Name:      registration.Name,
		Email:     registration.Email,
		Facebook:  registration.Facebook,
		Phone:     registration.Phone,
		Major:     registration.Major,
		Status:    registration.Status,
		CreatedAt: registration.CreatedAt.UTC().Format(time.RFC3339),
	}
}
