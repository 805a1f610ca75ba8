package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"unicms/backend/internal/model"
	"unicms/backend/internal/repository"
	"unicms/backend/internal/service"
)

type ArticleHandler struct {
	service service.ArticleService
}

type articleRequest struct {
	Title         string  `json:"title"`
	Slug          string  `json:"slug"`
	Content       string  `json:"content"`
	Excerpt       string  `json:"excerpt"`
	FeaturedImage string  `json:"featuredImage"`
	CategoryIDs   []int64 `json:"categoryIds"`
	Status        string  `json:"status"`
}

type updateArticleStatusRequest struct {
	Status string `json:"status"`
}

type articleResponse struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	Content       string   `json:"content,omitempty"`
	Excerpt       *string  `json:"excerpt,omitempty"`
	FeaturedImage *string  `json:"featuredImage,omitempty"`
	AuthorID      string   `json:"authorId"`
	CategoryIDs   []string `json:"categoryIds"`
	Status        string   `json:"status"`
	PublishedAt   *string  `json:"publishedAt,omitempty"`
	ViewCount     int64    `json:"viewCount"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

type articleListResponse struct {
	Items      []articleResponse `json:"items"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalItems int               `json:"totalItems"`
	TotalPages int               `json:"totalPages"`
}

type articleSearchResponse struct {
	Articles    []articleResponse `json:"articles"`
	Keyword     string            `json:"keyword"`
	ResultCount int               `json:"resultCount"`
}

type articleStatEntry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Status    string `json:"status"`
	ViewCount int64  `json:"viewCount"`
	CreatedAt string `json:"createdAt"`
}

type articleStatisticsResponse struct {
	Total          int                `json:"total"`
	Published      int                `json:"published"`
	Draft          int                `json:"draft"`
	Archived       int                `json:"archived"`
	TotalViews     int64              `json:"totalViews"`
	TopArticles    []articleStatEntry `json:"topArticles"`
	RecentArticles []articleStatEntry `json:"recentArticles"`
}

func NewArticleHandler(service service.ArticleService) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// RegisterRoutes mounts the authenticated article management routes.
func (h *ArticleHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/articles", h.Create)
	g.GET("/articles", h.List)
	g.GET("/articles/statistics", h.Statistics)
	g.GET("/articles/:id", h.Get)
	g.PUT("/articles/:id", h.Update)
	g.DELETE("/articles/:id", h.Delete)
	g.PATCH("/articles/:id/status", h.UpdateStatus)
}

// RegisterPublicRoutes mounts the read-only public routes.
func (h *ArticleHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/articles/public", h.ListPublished)
	g.GET("/articles/search", h.Search)
	g.GET("/articles/slug/:slug", h.GetBySlug)
}

func (h *ArticleHandler) Create(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	var req articleRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	article, err := h.service.Create(c.Request().Context(), claims.UserID, toArticleInput(req))
	if err != nil {
		return writeServiceError(c, err)
	}
	return okMessage(c, http.StatusCreated, "article created", toArticleResponse(article, true))
}

func (h *ArticleHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	var req articleRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	article, err := h.service.Update(c.Request().Context(), id, toArticleInput(req))
	if err != nil {
		return writeServiceError(c, err)
	}
	return ok(c, http.StatusOK, toArticleResponse(article, true))
}

func (h *ArticleHandler) UpdateStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	var req updateArticleStatusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	current, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}

	article, err := h.service.Update(c.Request().Context(), id, service.ArticleInput{
		Title:         current.Title,
		Slug:          current.Slug,
		Content:       current.Content,
		Excerpt:       derefString(current.Excerpt),
		FeaturedImage: derefString(current.FeaturedImage),
		CategoryIDs:   current.CategoryIDs,
		Status:        req.Status,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return ok(c, http.StatusOK, toArticleResponse(article, true))
}

func (h *ArticleHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return writeServiceError(c, err)
	}
	return okMessage(c, http.StatusOK, "article deleted", nil)
}

func (h *ArticleHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	article, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return ok(c, http.StatusOK, toArticleResponse(article, true))
}

func (h *ArticleHandler) GetBySlug(c echo.Context) error {
	article, err := h.service.GetPublishedBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return ok(c, http.StatusOK, toArticleResponse(article, true))
}

func (h *ArticleHandler) List(c echo.Context) error {
	result, err := h.service.List(c.Request().Context(), h.filterFromQuery(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	return ok(c, http.StatusOK, toArticleListResponse(result))
}

func (h *ArticleHandler) ListPublished(c echo.Context) error {
	result, err := h.service.ListPublished(c.Request().Context(), h.filterFromQuery(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	return ok(c, http.StatusOK, toArticleListResponse(result))
}

func (h *ArticleHandler) Search(c echo.Context) error {
	input := service.ArticleSearchInput{
		Keyword:    c.QueryParam("q"),
		Status:     c.QueryParam("status"),
		CategoryID: parseInt64Query(c, "categoryId"),
	}
	if limit := parseInt64Query(c, "limit"); limit != nil {
		input.Limit = int(*limit)
	}

	result, err := h.service.Search(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, err)
	}

	articles := make([]articleResponse, 0, len(result.Items))
	for _, article := range result.Items {
		articles = append(articles, toArticleResponse(article, false))
	}
	return ok(c, http.StatusOK, articleSearchResponse{
		Articles:    articles,
		Keyword:     result.Keyword,
		ResultCount: result.Total,
	})
}

func (h *ArticleHandler) Statistics(c echo.Context) error {
	stats, err := h.service.Statistics(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return ok(c, http.StatusOK, toArticleStatisticsResponse(stats))
}

func (h *ArticleHandler) filterFromQuery(c echo.Context) repository.ArticleFilter {
	page, limit := parsePagination(c, 20)
	return repository.ArticleFilter{
		Page:       page,
		Limit:      limit,
		Status:     c.QueryParam("status"),
		CategoryID: parseInt64Query(c, "categoryId"),
	}
}

func toArticleInput(req articleRequest) service.ArticleInput {
	return service.ArticleInput{
		Title:         req.Title,
		Slug:          req.Slug,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		FeaturedImage: req.FeaturedImage,
		CategoryIDs:   req.CategoryIDs,
		Status:        req.Status,
	}
}

func toArticleResponse(article model.Article, includeContent bool) articleResponse {
	categoryIDs := make([]string, 0, len(article.CategoryIDs))
	for _, id := range article.CategoryIDs {
		categoryIDs = append(categoryIDs, itoa64(id))
	}

	response := articleResponse{
		ID:            itoa64(article.ID),
		Title:         article.Title,
		Slug:          article.Slug,
		Excerpt:       article.Excerpt,
		FeaturedImage: article.FeaturedImage,
		AuthorID:      itoa64(article.AuthorID),
		CategoryIDs:   categoryIDs,
		Status:        article.Status,
		ViewCount:     article.ViewCount,
		CreatedAt:     article.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     article.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if includeContent {
		response.Content = article.Content
	}
	if article.PublishedAt != nil {
		published := article.PublishedAt.UTC().Format(time.RFC3339)
		response.PublishedAt = &published
	}
	return response
}

func toArticleListResponse(result service.ArticlePage) articleListResponse {
	items := make([]articleResponse, 0, len(result.Items))
	for _, article := range result.Items {
		items = append(items, toArticleResponse(article, false))
	}
	return articleListResponse{
		Items:      items,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	}
}

func toArticleStatisticsResponse(stats model.ArticleStatistics) articleStatisticsResponse {
	return articleStatisticsResponse{
		Total:          stats.Total,
		Published:      stats.Published,
		Draft:          stats.Draft,
		Archived:       stats.Archived,
		TotalViews:     stats.TotalViews,
		TopArticles:    toArticleStatEntries(stats.TopArticles),
		RecentArticles: toArticleStatEntries(stats.RecentArticles),
	}
}

func toArticleStatEntries(entries []model.ArticleStatEntry) []articleStatEntry {
	result := make([]articleStatEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, articleStatEntry{
			ID:        itoa64(entry.ID),
			Title:     entry.Title,
			Slug:      entry.Slug,
			Status:    entry.Status,
			ViewCount: entry.ViewCount,
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return result
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
