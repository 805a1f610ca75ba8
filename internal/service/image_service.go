//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
	_ "golang.org/x/image/webp" // register WebP decoding

	"unicms/backend/internal/fileutil"
	"unicms/backend/internal/model"
	"unicms/backend/internal/repository"
	"unicms/backend/internal/urlutil"
	"unicms/backend/pkg/logger"
)

const (
	// MaxUploadSize caps inbound images at 10 MiB.
	MaxUploadSize = 10 << 20

	maxImageWidth = 1200
	jpegQuality   = 80

	bulkDeleteConcurrency = 4
)

// Allowed upload types. MIME type and extension must agree.
var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Upload describes one inbound file before staging.
type Upload struct {
	Filename string
	MimeType string
	Size     int64
	Content  io.Reader
}

// AssetFilter narrows and pages a permanent-asset listing.
type AssetFilter struct {
	Page      int
	Limit     int
	StartDate *time.Time
	EndDate   *time.Time
	MinSize   *int64
	MaxSize   *int64
}

// AssetPage is one page of a filtered listing. TotalItems and TotalPages
// count the filtered result, not the raw directory.
type AssetPage struct {
	Items      []model.Asset
	Page       int
	Limit      int
	TotalItems int
	TotalPages int
}

// BulkDeleteResult partitions a bulk deletion into per-file outcomes.
type BulkDeleteResult struct {
	Deleted []string
	Failed  map[string]string
}

type ImageService interface {
	Upload(ctx context.Context, upload Upload, temporary bool) (model.Asset, error)
	Promote(ctx context.Context, temporaryURL string) (string, error)
	Delete(ctx context.Context, filename string) error
	BulkDelete(ctx context.Context, filenames []string) BulkDeleteResult
	ForceDelete(ctx context.Context, filename string, actor string) error
	List(ctx context.Context, filter AssetFilter) (AssetPage, error)
	Resolve(directory, filename string) (string, error)
}

type imageService struct {
	imagesDir      string
	tempImagesDir  string
	tempUploadsDir string
	articles       repository.ArticleRepository
}

func NewImageService(imagesDir, tempImagesDir, tempUploadsDir string, articles repository.ArticleRepository) ImageService {
	return &imageService{
		imagesDir:      imagesDir,
		tempImagesDir:  tempImagesDir,
		tempUploadsDir: tempUploadsDir,
		articles:       articles,
	}
}

// Upload validates, stages, and optimizes one inbound image. The staged raw
// file is removed on success and deliberately kept on optimization failure so
// it can be inspected before a cleanup job collects it.
func (s *imageService) Upload(ctx context.Context, upload Upload, temporary bool) (model.Asset, error) {
	extension := strings.ToLower(filepath.Ext(upload.Filename))
	if err := validateUploadType(extension, upload.MimeType); err != nil {
		logger.Warn("rejected upload", "filename", upload.Filename, "mimeType", upload.MimeType, "reason", err)
		return model.Asset{}, err
	}
	if upload.Size > MaxUploadSize {
		return model.Asset{}, ValidationErrors{"image": "file is too large, maximum size is 10MB"}
	}

	stagedPath, err := s.stage(upload, extension)
	if err != nil {
		return model.Asset{}, err
	}

	targetDir := s.imagesDir
	location := model.AssetLocationPermanent
	directory := urlutil.PermanentDir
	if temporary {
		targetDir = s.tempImagesDir
		location = model.AssetLocationTemporary
		directory = urlutil.TemporaryDir
	}

	filename, size, err := s.optimize(stagedPath, targetDir)
	if err != nil {
		// Keep the staged file for manual recovery.
		logger.Error("image optimization failed", "staged", stagedPath, "error", err)
		return model.Asset{}, fmt.Errorf("optimize %s: %w", upload.Filename, ErrProcessing)
	}

	asset := model.Asset{
		Filename:  filename,
		URL:       urlutil.AssetURL(directory, filename),
		Size:      size,
		MimeType:  "image/jpeg",
		Location:  location,
		CreatedAt: time.Now().UTC(),
	}
	logger.Info("image uploaded", "filename", filename, "size", size, "location", location)
	return asset, nil
}

// stage copies the upload into the staging directory under a generated name,
// enforcing the size cap while streaming.
func (s *imageService) stage(upload Upload, extension string) (string, error) {
	if err := fileutil.EnsureDirectories(s.tempUploadsDir); err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}

	stagedPath := filepath.Join(s.tempUploadsDir, fileutil.UniqueFilename(extension))
	out, err := os.Create(stagedPath)
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(upload.Content, MaxUploadSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(stagedPath)
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if written > MaxUploadSize {
		os.Remove(stagedPath)
		return "", ValidationErrors{"image": "file is too large, maximum size is 10MB"}
	}

	return stagedPath, nil
}

// optimize re-encodes the staged file as JPEG, shrinking to maxImageWidth
// without ever upscaling, and removes the staged original on success.
func (s *imageService) optimize(stagedPath, targetDir string) (string, int64, error) {
	img, err := imaging.Open(stagedPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", 0, fmt.Errorf("decode image: %w", err)
	}

	if img.Bounds().Dx() > maxImageWidth {
		img = imaging.Resize(img, maxImageWidth, 0, imaging.Lanczos)
	}

	if err := fileutil.EnsureDirectories(targetDir); err != nil {
		return "", 0, err
	}

	filename := fileutil.UniqueFilename(".jpg")
	targetPath := filepath.Join(targetDir, filename)
	if err := imaging.Save(img, targetPath, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", 0, fmt.Errorf("encode jpeg: %w", err)
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		return "", 0, fmt.Errorf("stat optimized image: %w", err)
	}

	if err := os.Remove(stagedPath); err != nil {
		logger.Warn("failed to remove staged upload", "path", stagedPath, "error", err)
	}

	return filename, info.Size(), nil
}

// Promote moves an asset from the temporary to the permanent directory and
// returns its permanent URL. Promoting an already-promoted asset returns the
// permanent URL without error.
func (s *imageService) Promote(ctx context.Context, temporaryURL string) (string, error) {
	filename := fileutil.SanitizeFilename(urlutil.FilenameFromURL(temporaryURL))
	if filename == "" {
		return "", ValidationErrors{"imageUrl": "image URL is required"}
	}

	tempPath := filepath.Join(s.tempImagesDir, filename)
	permanentPath := filepath.Join(s.imagesDir, filename)
	permanentURL := urlutil.AssetURL(urlutil.PermanentDir, filename)

	if _, err := os.Stat(tempPath); err == nil {
		if err := fileutil.EnsureDirectories(s.imagesDir); err != nil {
			return "", err
		}
		if err := os.Rename(tempPath, permanentPath); err != nil {
			return "", fmt.Errorf("promote %s: %w", filename, err)
		}
		logger.Info("image promoted", "filename", filename)
		return permanentURL, nil
	}

	if _, err := os.Stat(permanentPath); err == nil {
		return permanentURL, nil
	}

	return "", fmt.Errorf("promote %s: %w", filename, ErrNotFound)
}

// Delete removes a permanent asset after the reference-integrity check.
func (s *imageService) Delete(ctx context.Context, filename string) error {
	sanitized, err := s.checkFilename(filename)
	if err != nil {
		return err
	}

	targetPath := filepath.Join(s.imagesDir, sanitized)
	if _, err := os.Stat(targetPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete %s: %w", sanitized, ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", sanitized, err)
	}

	if err := s.checkReferences(ctx, sanitized); err != nil {
		return err
	}

	if err := os.Remove(targetPath); err != nil {
		return fmt.Errorf("delete %s: %w", sanitized, err)
	}
	logger.Info("image deleted", "filename", sanitized)
	return nil
}

// checkReferences refuses deletion while any article still points at the
// asset's canonical URL. Not transactional against concurrent content updates;
// admin-speed usage makes the window acceptable.
func (s *imageService) checkReferences(ctx context.Context, filename string) error {
	refs, err := s.articles.FindRefsByFeaturedImage(ctx, urlutil.AssetURL(urlutil.PermanentDir, filename))
	if err != nil {
		return fmt.Errorf("check references for %s: %w", filename, err)
	}
	if len(refs) > 0 {
		logger.Warn("refused deletion of referenced image", "filename", filename, "references", len(refs))
		return &ImageInUseError{Filename: filename, Articles: refs}
	}
	return nil
}

// BulkDelete processes each filename independently; one failure never aborts
// the batch.
func (s *imageService) BulkDelete(ctx context.Context, filenames []string) BulkDeleteResult {
	var (
		mu     sync.Mutex
		result = BulkDeleteResult{Failed: make(map[string]string)}
	)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(bulkDeleteConcurrency)

	for _, filename := range filenames {
		filename := filename
		group.Go(func() error {
			err := s.Delete(ctx, filename)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[filename] = deleteFailureReason(err)
			} else {
				result.Deleted = append(result.Deleted, filename)
			}
			return nil
		})
	}
	_ = group.Wait()

	sort.Strings(result.Deleted)
	return result
}

// ForceDelete bypasses the reference check. It exists so an operator can
// remove an asset whose references are known to be stale.
func (s *imageService) ForceDelete(ctx context.Context, filename string, actor string) error {
	sanitized, err := s.checkFilename(filename)
	if err != nil {
		return err
	}

	targetPath := filepath.Join(s.imagesDir, sanitized)
	if _, err := os.Stat(targetPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("force delete %s: %w", sanitized, ErrNotFound)
		}
		return fmt.Errorf("force delete %s: %w", sanitized, err)
	}

	if err := os.Remove(targetPath); err != nil {
		return fmt.Errorf("force delete %s: %w", sanitized, err)
	}
	logger.Warn("image force-deleted, reference check bypassed", "filename", sanitized, "actor", actor)
	return nil
}

// List enumerates permanent assets, applies the filters, then paginates the
// filtered result.
func (s *imageService) List(ctx context.Context, filter AssetFilter) (AssetPage, error) {
	entries, err := os.ReadDir(s.imagesDir)
	if err != nil {
		if os.IsNotExist(err) {
			entries = nil
		} else {
			return AssetPage{}, fmt.Errorf("list images: %w", err)
		}
	}

	assets := make([]model.Asset, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		asset := model.Asset{
			Filename:  entry.Name(),
			URL:       urlutil.AssetURL(urlutil.PermanentDir, entry.Name()),
			Size:      info.Size(),
			MimeType:  "image/jpeg",
			Location:  model.AssetLocationPermanent,
			CreatedAt: info.ModTime().UTC(),
		}
		if filterAllows(filter, asset) {
			assets = append(assets, asset)
		}
	}

	sort.Slice(assets, func(i, j int) bool {
		return assets[i].CreatedAt.After(assets[j].CreatedAt)
	})

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	total := len(assets)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return AssetPage{
		Items:      assets[start:end],
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// Resolve maps a (directory, filename) pair from the public serve route to a
// filesystem path, rejecting traversal attempts.
func (s *imageService) Resolve(directory, filename string) (string, error) {
	var base string
	switch directory {
	case urlutil.PermanentDir:
		base = s.imagesDir
	case urlutil.TemporaryDir:
		base = s.tempImagesDir
	default:
		return "", fmt.Errorf("resolve directory %s: %w", directory, ErrNotFound)
	}

	sanitized, err := s.checkFilename(filename)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(base, sanitized)
	if _, err := os.Stat(fullPath); err != nil {
		return "", fmt.Errorf("resolve %s: %w", sanitized, ErrNotFound)
	}
	return fullPath, nil
}

// checkFilename sanitizes and signals a traversal attempt whenever
// sanitization would alter the input.
func (s *imageService) checkFilename(filename string) (string, error) {
	trimmed := strings.TrimSpace(filename)
	if trimmed == "" {
		return "", ValidationErrors{"filename": "filename is required"}
	}
	sanitized := fileutil.SanitizeFilename(trimmed)
	if sanitized != trimmed {
		logger.Warn("rejected unsafe filename", "filename", filename)
		return "", ValidationErrors{"filename": "invalid filename"}
	}
	return sanitized, nil
}

func validateUploadType(extension, mimeType string) error {
	expectedMime, ok := allowedImageTypes[extension]
	if !ok {
		return ValidationErrors{"image": "invalid file type, only JPEG, PNG, GIF, and WebP are allowed"}
	}
	if !strings.EqualFold(strings.TrimSpace(mimeType), expectedMime) {
		return ValidationErrors{"image": "file extension does not match its content type"}
	}
	return nil
}

func filterAllows(filter AssetFilter, asset model.Asset) bool {
	if filter.StartDate != nil && asset.CreatedAt.Before(*filter.StartDate) {
		return false
	}
	if filter.EndDate != nil && asset.CreatedAt.After(*filter.EndDate) {
		return false
	}
	if filter.MinSize != nil && asset.Size < *filter.MinSize {
		return false
	}
	if filter.MaxSize != nil && asset.Size > *filter.MaxSize {
		return false
	}
	return true
}

func deleteFailureReason(err error) string {
	var inUse *ImageInUseError
	switch {
	case errors.As(err, &inUse):
		return inUse.Error()
	case errors.Is(err, ErrNotFound):
		return "image not found"
	case errors.Is(err, ErrInvalid):
		return "invalid filename"
	default:
		return "could not delete the image"
	}
}
