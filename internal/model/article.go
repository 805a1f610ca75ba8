package model

import "time"

const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
	ArticleStatusArchived  = "archived"
)

type Article struct {
	ID            int64
	Title         string
	Slug          string
	Content       string
	Excerpt       *string
	FeaturedImage *string
	AuthorID      int64
	CategoryIDs   []int64
	Status        string
	PublishedAt   *time.Time
	ViewCount     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ArticleRef identifies an article holding a reference to an asset.
type ArticleRef struct {
	ID   int64
	Slug string
}

// ArticleStatistics summarizes the article corpus for the admin dashboard.
type ArticleStatistics struct {
	Total      int
	Published  int
	Draft      int
	Archived   int
	TotalViews int64
	// TopArticles are the most viewed published articles.
	TopArticles []ArticleStatEntry
	// RecentArticles are the latest created articles regardless of status.
	RecentArticles []ArticleStatEntry
}

// ArticleStatEntry is the trimmed article shape used in statistics listings.
type ArticleStatEntry struct {
	ID        int64
	Title     string
	Slug      string
	Status    string
	ViewCount int64
	CreatedAt time.Time
}
