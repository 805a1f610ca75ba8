package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"unicms/backend/internal/model"
	"unicms/backend/internal/service"
	"unicms/backend/internal/urlutil"
)

type ImageHandler struct {
	service service.ImageService
}

type imageResponse struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	Location  string `json:"location"`
	CreatedAt string `json:"createdAt"`
}

type imageListResponse struct {
	Items      []imageResponse `json:"items"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalItems int             `json:"totalItems"`
	TotalPages int             `json:"totalPages"`
}

type deleteImageRequest struct {
	Filename string `json:"filename"`
	ImageURL string `json:"imageUrl"`
}

type bulkDeleteRequest struct {
	Filenames []string `json:"filenames"`
}

type bulkDeleteResponse struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed"`
}

func NewImageHandler(service service.ImageService) *ImageHandler {
	return &ImageHandler{service: service}
}

// RegisterRoutes mounts the authenticated image management routes.
// admin guards the force-delete route; upload middlewares (rate limiter,
// body cap) apply only to the upload route.
func (h *ImageHandler) RegisterRoutes(g *echo.Group, admin echo.MiddlewareFunc, upload ...echo.MiddlewareFunc) {
	g.POST("/images/upload", h.Upload, upload...)
	g.GET("/images", h.List)
	g.DELETE("/images/delete", h.Delete)
	g.DELETE("/images/bulk-delete", h.BulkDelete)
	g.DELETE("/images/force-delete", h.ForceDelete, admin)
}

// RegisterPublicRoutes mounts the unauthenticated serving route.
func (h *ImageHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/images/:directory/:filename", h.Serve)
}

func (h *ImageHandler) Upload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		// A body-limit middleware surfaces its 413 through the multipart
		// parser; pass it on instead of flattening it to a 400.
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return fail(c, http.StatusBadRequest, "an image file is required")
	}

	src, err := file.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "could not read the uploaded file")
	}
	defer src.Close()

	temporary := c.QueryParam("temporary") == "true"
	asset, err := h.service.Upload(c.Request().Context(), service.Upload{
		Filename: file.Filename,
		MimeType: file.Header.Get(echo.HeaderContentType),
		Size:     file.Size,
		Content:  src,
	}, temporary)
	if err != nil {
		return writeServiceError(c, err)
	}

	return okMessage(c, http.StatusCreated, "image uploaded", toImageResponse(asset))
}

func (h *ImageHandler) List(c echo.Context) error {
	page, limit := parsePagination(c, 20)
	filter := service.AssetFilter{
		Page:      page,
		Limit:     limit,
		StartDate: parseDateQuery(c, "startDate"),
		EndDate:   parseDateQuery(c, "endDate"),
		MinSize:   parseInt64Query(c, "minSize"),
		MaxSize:   parseInt64Query(c, "maxSize"),
	}

	result, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return writeServiceError(c, err)
	}

	items := make([]imageResponse, 0, len(result.Items))
	for _, asset := range result.Items {
		items = append(items, toImageResponse(asset))
	}
	return ok(c, http.StatusOK, imageListResponse{
		Items:      items,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

func (h *ImageHandler) Delete(c echo.Context) error {
	var req deleteImageRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	filename := req.Filename
	if filename == "" && req.ImageURL != "" {
		filename = urlutil.FilenameFromURL(req.ImageURL)
	}

	if err := h.service.Delete(c.Request().Context(), filename); err != nil {
		return writeServiceError(c, err)
	}
	return okMessage(c, http.StatusOK, "image deleted", nil)
}

func (h *ImageHandler) BulkDelete(c echo.Context) error {
	var req bulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	if len(req.Filenames) == 0 {
		return fail(c, http.StatusBadRequest, "filenames are required")
	}

	result := h.service.BulkDelete(c.Request().Context(), req.Filenames)
	return ok(c, http.StatusOK, bulkDeleteResponse{
		Deleted: result.Deleted,
		Failed:  result.Failed,
	})
}

func (h *ImageHandler) ForceDelete(c echo.Context) error {
	var req deleteImageRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	actor := "unknown"
	if claims := currentUser(c); claims != nil {
		actor = claims.Username
	}

	if err := h.service.ForceDelete(c.Request().Context(), req.Filename, actor); err != nil {
		return writeServiceError(c, err)
	}
	return okMessage(c, http.StatusOK, "image deleted", nil)
}

func (h *ImageHandler) Serve(c echo.Context) error {
	path, err := h.service.Resolve(c.Param("directory"), c.Param("filename"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.File(path)
}

func toImageResponse(asset model.Asset) imageResponse {
	return imageResponse{
		Filename:  asset.Filename,
		URL:       asset.URL,
		Size:      asset.Size,
		MimeType:  asset.MimeType,
		Location:  asset.Location,
		CreatedAt: asset.CreatedAt.UTC().Format(time.RFC3339),
	}
}
