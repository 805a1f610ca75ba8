package db

import (
	"database/sql"
	"fmt"
)

// Base schema - uses Snowflake IDs (no AUTOINCREMENT)
const baseSchema = `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT,
  last_name TEXT,
  role TEXT NOT NULL DEFAULT 'student',
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

CREATE TABLE IF NOT EXISTS categories (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  article_count INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS articles (
  id INTEGER PRIMARY KEY,
  title TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  content TEXT NOT NULL,
  excerpt TEXT,
  featured_image TEXT,
  author_id INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  published_at TEXT,
  view_count INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  FOREIGN KEY (author_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status);
CREATE INDEX IF NOT EXISTS idx_articles_featured_image ON articles(featured_image);

CREATE TABLE IF NOT EXISTS article_categories (
  article_id INTEGER NOT NULL,
  category_id INTEGER NOT NULL,
  PRIMARY KEY (article_id, category_id),
  FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE,
  FOREIGN KEY (category_id) REFERENCES categories(id)
);

CREATE INDEX IF NOT EXISTS idx_article_categories_category ON article_categories(category_id);

CREATE TABLE IF NOT EXISTS student_registrations (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  facebook TEXT,
  phone TEXT NOT NULL,
  major TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'new',
  ip_address TEXT NOT NULL,
  user_agent TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_student_registrations_email ON student_registrations(email);
CREATE INDEX IF NOT EXISTS idx_student_registrations_ip ON student_registrations(ip_address);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(baseSchema); err != nil {
		return fmt.Errorf("migrate base schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func runMigrations(db *sql.DB) error {
	// Migration 1: Add status column to student_registrations if not exists
	// (the table predates the contact workflow).
	exists, err := hasColumn(db, "student_registrations", "status")
	if err != nil {
		return fmt.Errorf("check status column: %w", err)
	}
	if !exists {
		if _, err := db.Exec(`ALTER TABLE student_registrations ADD COLUMN status TEXT NOT NULL DEFAULT 'new'`); err != nil {
			return fmt.Errorf("add status column: %w", err)
		}
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_student_registrations_status ON student_registrations(status)`); err != nil {
		return fmt.Errorf("create idx_student_registrations_status: %w", err)
	}

	// Migration 2: Add meta columns to articles for search snippets
	exists, err = hasColumn(db, "articles", "meta_title")
	if err != nil {
		return fmt.Errorf("check meta_title column: %w", err)
	}
	if !exists {
		if _, err := db.Exec(`ALTER TABLE articles ADD COLUMN meta_title TEXT`); err != nil {
			return fmt.Errorf("add meta_title column: %w", err)
		}
		if _, err := db.Exec(`ALTER TABLE articles ADD COLUMN meta_description TEXT`); err != nil {
			return fmt.Errorf("add meta_description column: %w", err)
		}
	}

	// Migration 3: Backfill category article counts that drifted before counts
	// moved into the link transaction.
	if _, err := db.Exec(`
		UPDATE categories SET article_count = (
			SELECT COUNT(*) FROM article_categories WHERE category_id = categories.id
		)
	`); err != nil {
		return fmt.Errorf("backfill category counts: %w", err)
	}

	return nil
}

func hasColumn(db *sql.DB, table string, column string) (bool, error) {
	var count int
	if err := db.QueryRow(
		fmt.Sprintf(`SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name = ?`, table),
		column,
	).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
