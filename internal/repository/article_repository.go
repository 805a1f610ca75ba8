//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"unicms/backend/internal/model"
	"unicms/backend/pkg/snowflake"
)

// ArticleFilter narrows and pages an article listing. Keyword matches
// title or content as a case-insensitive substring.
type ArticleFilter struct {
	Page       int
	Limit      int
	Status     string
	CategoryID *int64
	Keyword    string
}

// ArticleRepository defines the interface for article storage. Category
// article counts are denormalized; every operation that changes an
// article-category link applies the compensating count delta inside the same
// transaction.
type ArticleRepository interface {
	Create(ctx context.Context, article model.Article) (model.Article, error)
	Update(ctx context.Context, article model.Article) (model.Article, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (model.Article, error)
	GetBySlug(ctx context.Context, slug string) (model.Article, error)
	List(ctx context.Context, filter ArticleFilter) ([]model.Article, int, error)
	IncrementViewCount(ctx context.Context, id int64) error
	FindRefsByFeaturedImage(ctx context.Context, imageURL string) ([]model.ArticleRef, error)
	Statistics(ctx context.Context) (model.ArticleStatistics, error)
}

type articleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article model.Article) (model.Article, error) {
	article.ID = snowflake.NextID()
	now := time.Now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Article{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO articles (id, title, slug, content, excerpt, featured_image, author_id, status, published_at, view_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, article.ID, article.Title, article.Slug, article.Content, nullableString(article.Excerpt),
		nullableString(article.FeaturedImage), article.AuthorID, article.Status,
		nullableTime(article.PublishedAt), formatTime(now), formatTime(now))
	if err != nil {
		return model.Article{}, err
	}

	if err := r.linkCategories(ctx, tx, article.ID, article.CategoryIDs); err != nil {
		return model.Article{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Article{}, fmt.Errorf("commit tx: %w", err)
	}
	return article, nil
}

func (r *articleRepository) Update(ctx context.Context, article model.Article) (model.Article, error) {
	now := time.Now().UTC()
	article.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Article{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE articles
		SET title = ?, slug = ?, content = ?, excerpt = ?, featured_image = ?, status = ?, published_at = ?, updated_at = ?
		WHERE id = ?
	`, article.Title, article.Slug, article.Content, nullableString(article.Excerpt),
		nullableString(article.FeaturedImage), article.Status, nullableTime(article.PublishedAt),
		formatTime(now), article.ID)
	if err != nil {
		return model.Article{}, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return model.Article{}, err
	}
	if rows == 0 {
		return model.Article{}, sql.ErrNoRows
	}

	existing, err := r.categoryIDs(ctx, tx, article.ID)
	if err != nil {
		return model.Article{}, err
	}

	added, removed := diffIDs(article.CategoryIDs, existing)
	if err := r.linkCategories(ctx, tx, article.ID, added); err != nil {
		return model.Article{}, err
	}
	if err := r.unlinkCategories(ctx, tx, article.ID, removed); err != nil {
		return model.Article{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Article{}, fmt.Errorf("commit tx: %w", err)
	}
	return article, nil
}

func (r *articleRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	linked, err := r.categoryIDs(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := r.unlinkCategories(ctx, tx, id, linked); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
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

	return tx.Commit()
}

func (r *articleRepository) GetByID(ctx context.Context, id int64) (model.Article, error) {
	article, err := r.scanOne(ctx, `WHERE id = ?`, id)
	if err != nil {
		return model.Article{}, err
	}
	return article, nil
}

func (r *articleRepository) GetBySlug(ctx context.Context, slug string) (model.Article, error) {
	article, err := r.scanOne(ctx, `WHERE slug = ?`, slug)
	if err != nil {
		return model.Article{}, err
	}
	return article, nil
}

func (r *articleRepository) List(ctx context.Context, filter ArticleFilter) ([]model.Article, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Status != "" {
		where = append(where, "a.status = ?")
		args = append(args, filter.Status)
	}
	if filter.CategoryID != nil {
		where = append(where, "a.id IN (SELECT article_id FROM article_categories WHERE category_id = ?)")
		args = append(args, *filter.CategoryID)
	}
	if filter.Keyword != "" {
		pattern := "%" + escapeLike(filter.Keyword) + "%"
		where = append(where, "(a.title LIKE ? ESCAPE '\\' OR a.content LIKE ? ESCAPE '\\')")
		args = append(args, pattern, pattern)
	}
	condition := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles a WHERE `+condition, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	query := `
		SELECT a.id, a.title, a.slug, a.content, a.excerpt, a.featured_image, a.author_id, a.status, a.published_at, a.view_count, a.created_at, a.updated_at
		FROM articles a WHERE ` + condition + `
		ORDER BY a.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range articles {
		ids, err := r.categoryIDs(ctx, r.db, articles[i].ID)
		if err != nil {
			return nil, 0, err
		}
		articles[i].CategoryIDs = ids
	}

	return articles, total, nil
}

func (r *articleRepository) IncrementViewCount(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE articles SET view_count = view_count + 1 WHERE id = ?`, id)
	return err
}

// FindRefsByFeaturedImage returns the articles whose featured image exactly
// matches the given public URL.
func (r *articleRepository) FindRefsByFeaturedImage(ctx context.Context, imageURL string) ([]model.ArticleRef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slug FROM articles WHERE featured_image = ?`, imageURL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []model.ArticleRef
	for rows.Next() {
		var ref model.ArticleRef
		if err := rows.Scan(&ref.ID, &ref.Slug); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Statistics aggregates corpus-wide counters plus the five most viewed
// published articles and the five most recently created ones.
func (r *articleRepository) Statistics(ctx context.Context) (model.ArticleStatistics, error) {
	var stats model.ArticleStatistics
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'published' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'draft' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'archived' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(view_count), 0)
		FROM articles
	`).Scan(&stats.Total, &stats.Published, &stats.Draft, &stats.Archived, &stats.TotalViews)
	if err != nil {
		return model.ArticleStatistics{}, err
	}

	stats.TopArticles, err = r.statEntries(ctx, `
		SELECT id, title, slug, status, view_count, created_at
		FROM articles WHERE status = 'published'
		ORDER BY view_count DESC, created_at DESC LIMIT 5
	`)
	if err != nil {
		return model.ArticleStatistics{}, err
	}

	stats.RecentArticles, err = r.statEntries(ctx, `
		SELECT id, title, slug, status, view_count, created_at
		FROM articles ORDER BY created_at DESC LIMIT 5
	`)
	if err != nil {
		return model.ArticleStatistics{}, err
	}
	return stats, nil
}

func (r *articleRepository) statEntries(ctx context.Context, query string) ([]model.ArticleStatEntry, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.ArticleStatEntry
	for rows.Next() {
		var (
			entry     model.ArticleStatEntry
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.Title, &entry.Slug, &entry.Status,
			&entry.ViewCount, &createdAt); err != nil {
			return nil, err
		}
		entry.CreatedAt, _ = parseTime(createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *articleRepository) scanOne(ctx context.Context, condition string, arg interface{}) (model.Article, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, slug, content, excerpt, featured_image, author_id, status, published_at, view_count, created_at, updated_at
		FROM articles `+condition, arg)

	article, err := scanArticle(row)
	if err != nil {
		return model.Article{}, err
	}

	ids, err := r.categoryIDs(ctx, r.db, article.ID)
	if err != nil {
		return model.Article{}, err
	}
	article.CategoryIDs = ids
	return article, nil
}

func (r *articleRepository) categoryIDs(ctx context.Context, q dbtx, articleID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT category_id FROM article_categories WHERE article_id = ? ORDER BY category_id`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// linkCategories inserts links and applies the +1 count delta in the caller's
// transaction.
func (r *articleRepository) linkCategories(ctx context.Context, tx *sql.Tx, articleID int64, categoryIDs []int64) error {
	for _, categoryID := range categoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO article_categories (article_id, category_id) VALUES (?, ?)`, articleID, categoryID); err != nil {
			return fmt.Errorf("link category %d: %w", categoryID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET article_count = article_count + 1 WHERE id = ?`, categoryID); err != nil {
			return fmt.Errorf("increment category %d count: %w", categoryID, err)
		}
	}
	return nil
}

// unlinkCategories removes links and applies the -1 count delta in the
// caller's transaction.
func (r *articleRepository) unlinkCategories(ctx context.Context, tx *sql.Tx, articleID int64, categoryIDs []int64) error {
	for _, categoryID := range categoryIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM article_categories WHERE article_id = ? AND category_id = ?`, articleID, categoryID); err != nil {
			return fmt.Errorf("unlink category %d: %w", categoryID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET article_count = article_count - 1 WHERE id = ?`, categoryID); err != nil {
			return fmt.Errorf("decrement category %d count: %w", categoryID, err)
		}
	}
	return nil
}

func scanArticle(row rowScanner) (model.Article, error) {
	var (
		article                 model.Article
		excerpt, featuredImage  sql.NullString
		publishedAt             sql.NullString
		createdAt, updatedAt    string
	)
	if err := row.Scan(&article.ID, &article.Title, &article.Slug, &article.Content,
		&excerpt, &featuredImage, &article.AuthorID, &article.Status,
		&publishedAt, &article.ViewCount, &createdAt, &updatedAt); err != nil {
		return model.Article{}, err
	}
	article.Excerpt = stringPtr(excerpt)
	article.FeaturedImage = stringPtr(featuredImage)
	article.PublishedAt = timePtr(publishedAt)
	article.CreatedAt, _ = parseTime(createdAt)
	article.UpdatedAt, _ = parseTime(updatedAt)
	return article, nil
}

func diffIDs(desired, existing []int64) (added, removed []int64) {
	desiredSet := make(map[int64]bool, len(desired))
	for _, id := range desired {
		desiredSet[id] = true
	}
	existingSet := make(map[int64]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}

	for _, id := range desired {
		if !existingSet[id] {
			added = append(added, id)
		}
	}
	for _, id := range existing {
		if !desiredSet[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}
