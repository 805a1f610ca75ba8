package model

import "time"

type Category struct {
	ID           int64
	Name         string
	Slug         string
	Description  *string
	ArticleCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CategoryStatistics summarizes category usage for the admin dashboard.
type CategoryStatistics struct {
	Total           int
	WithArticles    int
	WithoutArticles int
	// TopCategories are the categories holding the most articles.
	TopCategories []CategoryStatEntry
}

// CategoryStatEntry is the trimmed category shape used in statistics listings.
type CategoryStatEntry struct {
	ID           int64
	Name         string
	Slug         string
	ArticleCount int
}
