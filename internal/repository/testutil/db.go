package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"unicms/backend/internal/db"
	"unicms/backend/internal/model"
	"unicms/backend/pkg/snowflake"

	_ "modernc.org/sqlite"
)

var snowflakeOnce sync.Once

// NewTestDB creates an in-memory SQLite database with all migrations applied.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	snowflakeOnce.Do(func() {
		if err := snowflake.Init(0); err != nil {
			panic("failed to initialize snowflake: " + err.Error())
		}
	})

	// Shared-cache mode so concurrent connections see the same memory database;
	// unique names keep parallel tests isolated.
	dbName := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name(), time.Now().UnixNano())
	database, err := sql.Open("sqlite", dbName)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Migrate(database); err != nil {
		database.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database
}

func ptrVal[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// SeedUser inserts a user and returns its ID.
func SeedUser(t *testing.T, db *sql.DB, username, role string) int64 {
	t.Helper()

	id := snowflake.NextID()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := db.ExecContext(
		context.Background(),
		`INSERT INTO users (id, username, email, password_hash, role, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		id, username, username+"@example.com", "$2a$10$placeholderhashplaceholderhash", role, now, now,
	)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	return id
}

// SeedCategory inserts a category and returns its ID.
func SeedCategory(t *testing.T, db *sql.DB, name, slug string) int64 {
	t.Helper()

	id := snowflake.NextID()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := db.ExecContext(
		context.Background(),
		`INSERT INTO categories (id, name, slug, article_count, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		id, name, slug, now, now,
	)
	if err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}

	return id
}

// SeedArticle inserts an article (without category links) and returns its ID.
func SeedArticle(t *testing.T, db *sql.DB, article model.Article) int64 {
	t.Helper()

	if article.ID == 0 {
		article.ID = snowflake.NextID()
	}
	if article.Status == "" {
		article.Status = model.ArticleStatusDraft
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := db.ExecContext(
		context.Background(),
		`INSERT INTO articles (id, title, slug, content, excerpt, featured_image, author_id, status, view_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.ID, article.Title, article.Slug, article.Content, ptrVal(article.Excerpt),
		ptrVal(article.FeaturedImage), article.AuthorID, article.Status, article.ViewCount, now, now,
	)
	if err != nil {
		t.Fatalf("failed to seed article: %v", err)
	}

	return article.ID
}

// SeedRegistration inserts a student registration and returns its ID.
func SeedRegistration(t *testing.T, db *sql.DB, registration model.Registration) int64 {
	t.Helper()

	if registration.ID == 0 {
		registration.ID = snowflake.NextID()
	}
	if registration.Status == "" {
		registration.Status = model.RegistrationStatusNew
	}
	if registration.IPAddress == "" {
		registration.IPAddress = "192.0.2.1"
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := db.ExecContext(
		context.Background(),
		`INSERT INTO student_registrations (id, name, email, facebook, phone, major, status, ip_address, user_agent, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		registration.ID, registration.Name, registration.Email, ptrVal(registration.Facebook),
		registration.Phone, registration.Major, registration.Status, registration.IPAddress,
		ptrVal(registration.UserAgent), now, now,
	)
	if err != nil {
		t.Fatalf("failed to seed registration: %v", err)
	}

	return registration.ID
}
