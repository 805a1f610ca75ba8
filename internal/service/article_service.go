//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"unicms/backend/internal/model"
	"unicms/backend/internal/repository"
	"unicms/backend/internal/urlutil"
	"unicms/backend/pkg/logger"
	"unicms/backend/pkg/sanitizer"
)

const excerptLength = 200

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugDashRuns     = regexp.MustCompile(`-{2,}`)
)

var articleStatuses = map[string]bool{
	model.ArticleStatusDraft:     true,
	model.ArticleStatusPublished: true,
	model.ArticleStatusArchived:  true,
}

// ArticleInput carries the writable fields of an article.
type ArticleInput struct {
	Title         string
	Slug          string
	Content       string
	Excerpt       string
	FeaturedImage string
	CategoryIDs   []int64
	Status        string
}

type ArticlePage struct {
	Items      []model.Article
	Page       int
	Limit      int
	TotalItems int
	TotalPages int
}

// ArticleSearchInput narrows a keyword search. Status defaults to published
// and Limit to 10.
type ArticleSearchInput struct {
	Keyword    string
	Status     string
	CategoryID *int64
	Limit      int
}

type ArticleSearchResult struct {
	Items   []model.Article
	Keyword string
	Total   int
}

type ArticleService interface {
	Create(ctx context.Context, authorID int64, input ArticleInput) (model.Article, error)
	Update(ctx context.Context, id int64, input ArticleInput) (model.Article, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (model.Article, error)
	// GetPublishedBySlug serves the public read path and counts the view.
	GetPublishedBySlug(ctx context.Context, slug string) (model.Article, error)
	List(ctx context.Context, filter repository.ArticleFilter) (ArticlePage, error)
	ListPublished(ctx context.Context, filter repository.ArticleFilter) (ArticlePage, error)
	// Search matches a keyword against titles and content.
	Search(ctx context.Context, input ArticleSearchInput) (ArticleSearchResult, error)
	Statistics(ctx context.Context) (model.ArticleStatistics, error)
}

type articleService struct {
	articles   repository.ArticleRepository
	categories repository.CategoryRepository
	images     ImageService
	policy     *bluemonday.Policy
}

func NewArticleService(articles repository.ArticleRepository, categories repository.CategoryRepository, images ImageService) ArticleService {
	return &articleService{
		articles:   articles,
		categories: categories,
		images:     images,
		policy:     bluemonday.UGCPolicy(),
	}
}

func (s *articleService) Create(ctx context.Context, authorID int64, input ArticleInput) (model.Article, error) {
	article, err := s.buildArticle(ctx, model.Article{AuthorID: authorID}, input)
	if err != nil {
		return model.Article{}, err
	}

	if existing, err := s.articles.GetBySlug(ctx, article.Slug); err == nil && existing.ID != 0 {
		return model.Article{}, fmt.Errorf("slug %s: %w", article.Slug, ErrConflict)
	} else if err != nil && !isNoRows(err) {
		return model.Article{}, fmt.Errorf("check slug: %w", err)
	}

	created, err := s.articles.Create(ctx, article)
	if err != nil {
		return model.Article{}, fmt.Errorf("create article: %w", err)
	}
	logger.Info("article created", "id", created.ID, "slug", created.Slug, "status", created.Status)
	return created, nil
}

func (s *articleService) Update(ctx context.Context, id int64, input ArticleInput) (model.Article, error) {
	current, err := s.articles.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return model.Article{}, ErrNotFound
		}
		return model.Article{}, fmt.Errorf("get article: %w", err)
	}

	article, err := s.buildArticle(ctx, current, input)
	if err != nil {
		return model.Article{}, err
	}

	if existing, err := s.articles.GetBySlug(ctx, article.Slug); err == nil && existing.ID != id {
		return model.Article{}, fmt.Errorf("slug %s: %w", article.Slug, ErrConflict)
	} else if err != nil && !isNoRows(err) {
		return model.Article{}, fmt.Errorf("check slug: %w", err)
	}

	updated, err := s.articles.Update(ctx, article)
	if err != nil {
		if isNoRows(err) {
			return model.Article{}, ErrNotFound
		}
		return model.Article{}, fmt.Errorf("update article: %w", err)
	}
	return updated, nil
}

// buildArticle validates the input and folds it into base. Shared between
// create and update so both paths sanitize, slug, and promote identically.
func (s *articleService) buildArticle(ctx context.Context, base model.Article, input ArticleInput) (model.Article, error) {
	errs := ValidationErrors{}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		errs["title"] = "title is required"
	}
	if strings.TrimSpace(input.Content) == "" {
		errs["content"] = "content is required"
	}

	status := input.Status
	if status == "" {
		status = model.ArticleStatusDraft
	}
	if !articleStatuses[status] {
		errs["status"] = "unknown article status"
	}

	if len(errs) > 0 {
		return model.Article{}, errs
	}

	for _, categoryID := range input.CategoryIDs {
		if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
			if isNoRows(err) {
				return model.Article{}, ValidationErrors{"categoryIds": fmt.Sprintf("category %d does not exist", categoryID)}
			}
			return model.Article{}, fmt.Errorf("check category: %w", err)
		}
	}

	base.Title = title
	base.Slug = Slugify(input.Slug)
	if base.Slug == "" {
		base.Slug = Slugify(title)
	}
	if base.Slug == "" {
		return model.Article{}, ValidationErrors{"slug": "a slug could not be derived from the title"}
	}

	base.Content = s.policy.Sanitize(input.Content)
	base.CategoryIDs = input.CategoryIDs

	excerpt := strings.TrimSpace(input.Excerpt)
	if excerpt == "" {
		excerpt = sanitizer.Excerpt(base.Content, excerptLength)
	}
	if excerpt != "" {
		base.Excerpt = &excerpt
	} else {
		base.Excerpt = nil
	}

	if err := s.applyFeaturedImage(ctx, &base, input.FeaturedImage); err != nil {
		return model.Article{}, err
	}

	// First transition into published stamps the publication time.
	if status == model.ArticleStatusPublished && base.PublishedAt == nil {
		now := time.Now().UTC()
		base.PublishedAt = &now
	}
	base.Status = status

	return base, nil
}

// applyFeaturedImage promotes a temporary asset URL so saving an article is
// what makes its image permanent.
func (s *articleService) applyFeaturedImage(ctx context.Context, article *model.Article, imageURL string) error {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		article.FeaturedImage = nil
		return nil
	}

	if urlutil.IsTemporaryURL(imageURL) {
		permanentURL, err := s.images.Promote(ctx, imageURL)
		if err != nil {
			return fmt.Errorf("promote featured image: %w", err)
		}
		imageURL = permanentURL
	}

	article.FeaturedImage = &imageURL
	return nil
}

func (s *articleService) Delete(ctx context.Context, id int64) error {
	if err := s.articles.Delete(ctx, id); err != nil {
		if isNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete article: %w", err)
	}
	logger.Info("article deleted", "id", id)
	return nil
}

func (s *articleService) Get(ctx context.Context, id int64) (model.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return model.Article{}, ErrNotFound
		}
		return model.Article{}, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

func (s *articleService) GetPublishedBySlug(ctx context.Context, slug string) (model.Article, error) {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		if isNoRows(err) {
			return model.Article{}, ErrNotFound
		}
		return model.Article{}, fmt.Errorf("get article: %w", err)
	}
	if article.Status != model.ArticleStatusPublished {
		return model.Article{}, ErrNotFound
	}

	if err := s.articles.IncrementViewCount(ctx, article.ID); err != nil {
		logger.Warn("failed to count article view", "id", article.ID, "error", err)
	} else {
		article.ViewCount++
	}
	return article, nil
}

func (s *articleService) List(ctx context.Context, filter repository.ArticleFilter) (ArticlePage, error) {
	if filter.Status != "" && !articleStatuses[filter.Status] {
		return ArticlePage{}, ValidationErrors{"status": "unknown article status"}
	}
	return s.list(ctx, filter)
}

func (s *articleService) ListPublished(ctx context.Context, filter repository.ArticleFilter) (ArticlePage, error) {
	filter.Status = model.ArticleStatusPublished
	return s.list(ctx, filter)
}

const searchDefaultLimit = 10

func (s *articleService) Search(ctx context.Context, input ArticleSearchInput) (ArticleSearchResult, error) {
	keyword := strings.TrimSpace(input.Keyword)
	if keyword == "" {
		return ArticleSearchResult{}, ValidationErrors{"q": "a search keyword is required"}
	}

	status := input.Status
	if status == "" {
		status = model.ArticleStatusPublished
	}
	if !articleStatuses[status] {
		return ArticleSearchResult{}, ValidationErrors{"status": "unknown article status"}
	}

	limit := input.Limit
	if limit < 1 {
		limit = searchDefaultLimit
	}

	items, total, err := s.articles.List(ctx, repository.ArticleFilter{
		Page:       1,
		Limit:      limit,
		Status:     status,
		CategoryID: input.CategoryID,
		Keyword:    keyword,
	})
	if err != nil {
		return ArticleSearchResult{}, fmt.Errorf("search articles: %w", err)
	}

	return ArticleSearchResult{Items: items, Keyword: keyword, Total: total}, nil
}

func (s *articleService) Statistics(ctx context.Context) (model.ArticleStatistics, error) {
	stats, err := s.articles.Statistics(ctx)
	if err != nil {
		return model.ArticleStatistics{}, fmt.Errorf("article statistics: %w", err)
	}
	return stats, nil
}

func (s *articleService) list(ctx context.Context, filter repository.ArticleFilter) (ArticlePage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	items, total, err := s.articles.List(ctx, filter)
	if err != nil {
		return ArticlePage{}, fmt.Errorf("list articles: %w", err)
	}

	return ArticlePage{
		Items:      items,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalItems: total,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

// Slugify lowercases the input and reduces it to dash-separated alphanumeric
// runs.
func Slugify(input string) string {
	slug := strings.ToLower(strings.TrimSpace(input))
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	slug = slugDashRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
