package db_test

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"unicms/backend/internal/db"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	name := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name(), time.Now().UnixNano())
	database, err := sql.Open("sqlite", name)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestMigrate_AddsStatusToLegacyRegistrations(t *testing.T) {
	database := openMemoryDB(t)

	// Simulate a database created before the contact workflow existed.
	_, err := database.Exec(`
		CREATE TABLE student_registrations (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			facebook TEXT,
			phone TEXT NOT NULL,
			major TEXT NOT NULL,
			ip_address TEXT NOT NULL,
			user_agent TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	require.NoError(t, err)

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = database.Exec(
		`INSERT INTO student_registrations (id, name, email, phone, major, ip_address, created_at, updated_at)
		 VALUES (1, 'Nguyen Van A', 'a@example.com', '0912345678', 'CS', '10.0.0.1', ?, ?)`,
		now, now,
	)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(database))

	var status string
	err = database.QueryRow(`SELECT status FROM student_registrations WHERE id = 1`).Scan(&status)
	require.NoError(t, err)
	require.Equal(t, "new", status)
}

func TestMigrate_BackfillsCategoryCounts(t *testing.T) {
	database := openMemoryDB(t)
	require.NoError(t, db.Migrate(database))

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := database.Exec(
		`INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		 VALUES (1, 'admin', 'admin@example.com', 'x', 'admin', ?, ?)`, now, now)
	require.NoError(t, err)
	_, err = database.Exec(
		`INSERT INTO categories (id, name, slug, article_count, created_at, updated_at)
		 VALUES (10, 'News', 'news', 99, ?, ?)`, now, now)
	require.NoError(t, err)
	_, err = database.Exec(
		`INSERT INTO articles (id, title, slug, content, author_id, created_at, updated_at)
		 VALUES (20, 'Title', 'title', 'content body', 1, ?, ?)`, now, now)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO article_categories (article_id, category_id) VALUES (20, 10)`)
	require.NoError(t, err)

	// Re-running migrations resets the drifted denormalized count.
	require.NoError(t, db.Migrate(database))

	var count int
	err = database.QueryRow(`SELECT article_count FROM categories WHERE id = 10`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
