package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"unicms/backend/internal/model"
	"unicms/backend/internal/service"
)

type CategoryHandler struct {
	service service.CategoryService
}

type categoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type categoryResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Description  *string `json:"description,omitempty"`
	ArticleCount int     `json:"articleCount"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

type categoryStatEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ArticleCount int    `json:"articleCount"`
}

type categoryStatisticsResponse struct {
	Total           int                 `json:"total"`
	WithArticles    int                 `json:"withArticles"`
	WithoutArticles int                 `json:"withoutArticles"`
	TopCategories   []categoryStatEntry `json:"topCategories"`
}

func NewCategoryHandler(service service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// RegisterRoutes mounts the authenticated category management routes.
func (h *CategoryHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/categories", h.Create)
	g.GET("/categories/statistics", h.Statistics)
	g.PUT("/categories/:id", h.Update)
	g.DELETE("/categories/:id", h.Delete)
}

// RegisterPublicRoutes mounts the read-only public routes.
func (h *CategoryHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/categories", h.List)
	g.GET("/categories/:id", h.Get)
}

func (h *CategoryHandler) Create(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	category, err := h.service.Create(c.Request().Context(), toCategoryInput(req))
	if err != nil {
		return writeServiceError(c, err)
	}
	return okMessage(c, http.StatusCreated, "category created", toCategoryResponse(category))
}

func (h *CategoryHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	category, err := h.service.Update(c.Request().Context(), id, toCategoryInput(req))
	if err != nil {
		return writeServiceError(c, err)
	}
	return ok(c, http.StatusOK, toCategoryResponse(category))
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return writeServiceError(c, err)
	}
	return okMessage(c, http.StatusOK, "category deleted", nil)
}

func (h *CategoryHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	category, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return ok(c, http.StatusOK, toCategoryResponse(category))
}

func (h *CategoryHandler) List(c echo.Context) error {
	categories, err := h.service.List(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}

	response := make([]categoryResponse, 0, len(categories))
	for _, category := range categories {
		response = append(response, toCategoryResponse(category))
	}
	return ok(c, http.StatusOK, response)
}

func (h *CategoryHandler) Statistics(c echo.Context) error {
	stats, err := h.service.Statistics(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}

	top := make([]categoryStatEntry, 0, len(stats.TopCategories))
	for _, entry := range stats.TopCategories {
		top = append(top, categoryStatEntry{
			ID:           itoa64(entry.ID),
			Name:         entry.Name,
			Slug:         entry.Slug,
			ArticleCount: entry.ArticleCount,
		})
	}
	return ok(c, http.StatusOK, categoryStatisticsResponse{
		Total:           stats.Total,
		WithArticles:    stats.WithArticles,
		WithoutArticles: stats.WithoutArticles,
		TopCategories:   top,
	})
}

func toCategoryInput(req categoryRequest) service.CategoryInput {
	return service.CategoryInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	}
}

func toCategoryResponse(category model.Category) categoryResponse {
	return categoryResponse{
		ID:           itoa64(category.ID),
		Name:         category.Name,
		Slug:         category.Slug,
		Description:  category.Description,
		ArticleCount: category.ArticleCount,
		CreatedAt:    category.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    category.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
