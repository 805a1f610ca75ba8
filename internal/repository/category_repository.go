//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"time"

	"unicms/backend/internal/model"
	"unicms/backend/pkg/snowflake"
)

// CategoryRepository defines the interface for category storage.
type CategoryRepository interface {
	Create(ctx context.Context, category model.Category) (model.Category, error)
	Update(ctx context.Context, category model.Category) (model.Category, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (model.Category, error)
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Statistics(ctx context.Context) (model.CategoryStatistics, error)
}

type categoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category model.Category) (model.Category, error) {
	category.ID = snowflake.NextID()
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, description, article_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, category.ID, category.Name, category.Slug, nullableString(category.Description),
		formatTime(now), formatTime(now))
	if err != nil {
		return model.Category{}, err
	}
	category.ArticleCount = 0
	return category, nil
}

func (r *categoryRepository) Update(ctx context.Context, category model.Category) (model.Category, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, slug = ?, description = ?, updated_at = ? WHERE id = ?
	`, category.Name, category.Slug, nullableString(category.Description), formatTime(now), category.ID)
	if err != nil {
		return model.Category{}, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return model.Category{}, err
	}
	if rows == 0 {
		return model.Category{}, sql.ErrNoRows
	}
	category.UpdatedAt = now
	return category, nil
}

func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (model.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, description, article_count, created_at, updated_at
		FROM categories WHERE id = ?
	`, id)
	return scanCategory(row)
}

// FindBySlug returns nil without error when no category matches.
func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, description, article_count, created_at, updated_at
		FROM categories WHERE slug = ?
	`, slug)

	category, err := scanCategory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, slug, description, article_count, created_at, updated_at
		FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// Statistics aggregates category usage plus the five categories holding the
// most articles.
func (r *categoryRepository) Statistics(ctx context.Context) (model.CategoryStatistics, error) {
	var stats model.CategoryStatistics
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN article_count > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN article_count = 0 THEN 1 ELSE 0 END), 0)
		FROM categories
	`).Scan(&stats.Total, &stats.WithArticles, &stats.WithoutArticles)
	if err != nil {
		return model.CategoryStatistics{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, slug, article_count
		FROM categories ORDER BY article_count DESC, name LIMIT 5
	`)
	if err != nil {
		return model.CategoryStatistics{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry model.CategoryStatEntry
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Slug, &entry.ArticleCount); err != nil {
			return model.CategoryStatistics{}, err
		}
		stats.TopCategories = append(stats.TopCategories, entry)
	}
	return stats, rows.Err()
}

func scanCategory(row rowScanner) (model.Category, error) {
	var (
		category             model.Category
		description          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&category.ID, &category.Name, &category.Slug, &description,
		&category.ArticleCount, &createdAt, &updatedAt); err != nil {
		return model.Category{}, err
	}
	category.Description = stringPtr(description)
	category.CreatedAt, _ = parseTime(createdAt)
	category.UpdatedAt, _ = parseTime(updatedAt)
	return category, nil
}
