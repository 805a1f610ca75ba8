//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"fmt"
	"strings"

	"unicms/backend/internal/model"
	"unicms/backend/internal/repository"
	"unicms/backend/pkg/logger"
)

// CategoryInput carries the writable fields of a category.
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
}

type CategoryService interface {
	Create(ctx context.Context, input CategoryInput) (model.Category, error)
	Update(ctx context.Context, id int64, input CategoryInput) (model.Category, error)
	// Delete refuses to remove a category that still holds articles.
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Statistics(ctx context.Context) (model.CategoryStatistics, error)
}

type categoryService struct {
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository) CategoryService {
	return &categoryService{categories: categories}
}

func (s *categoryService) Create(ctx context.Context, input CategoryInput) (model.Category, error) {
	category, err := s.buildCategory(input)
	if err != nil {
		return model.Category{}, err
	}

	if err := s.checkSlug(ctx, category.Slug, 0); err != nil {
		return model.Category{}, err
	}

	created, err := s.categories.Create(ctx, category)
	if err != nil {
		return model.Category{}, fmt.Errorf("create category: %w", err)
	}
	logger.Info("category created", "id", created.ID, "slug", created.Slug)
	return created, nil
}

func (s *categoryService) Update(ctx context.Context, id int64, input CategoryInput) (model.Category, error) {
	current, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return model.Category{}, ErrNotFound
		}
		return model.Category{}, fmt.Errorf("get category: %w", err)
	}

	category, err := s.buildCategory(input)
	if err != nil {
		return model.Category{}, err
	}
	category.ID = id
	category.ArticleCount = current.ArticleCount
	category.CreatedAt = current.CreatedAt

	if err := s.checkSlug(ctx, category.Slug, id); err != nil {
		return model.Category{}, err
	}

	updated, err := s.categories.Update(ctx, category)
	if err != nil {
		if isNoRows(err) {
			return model.Category{}, ErrNotFound
		}
		return model.Category{}, fmt.Errorf("update category: %w", err)
	}
	return updated, nil
}

func (s *categoryService) Delete(ctx context.Context, id int64) error {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get category: %w", err)
	}

	if category.ArticleCount > 0 {
		return fmt.Errorf("category %s holds %d articles: %w", category.Slug, category.ArticleCount, ErrInUse)
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		if isNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete category: %w", err)
	}
	logger.Info("category deleted", "id", id, "slug", category.Slug)
	return nil
}

func (s *categoryService) Get(ctx context.Context, id int64) (model.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return model.Category{}, ErrNotFound
		}
		return model.Category{}, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) Statistics(ctx context.Context) (model.CategoryStatistics, error) {
	stats, err := s.categories.Statistics(ctx)
	if err != nil {
		return model.CategoryStatistics{}, fmt.Errorf("category statistics: %w", err)
	}
	return stats, nil
}

func (s *categoryService) buildCategory(input CategoryInput) (model.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return model.Category{}, ValidationErrors{"name": "name is required"}
	}

	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return model.Category{}, ValidationErrors{"slug": "a slug could not be derived from the name"}
	}

	category := model.Category{Name: name, Slug: slug}
	if description := strings.TrimSpace(input.Description); description != "" {
		category.Description = &description
	}
	return category, nil
}

func (s *categoryService) checkSlug(ctx context.Context, slug string, selfID int64) error {
	existing, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("check slug: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("slug %s: %w", slug, ErrConflict)
	}
	return nil
}
