// database/schema.go
package database

import (
	"context"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id CHAR(36) NOT NULL PRIMARY KEY,
		email VARCHAR(255) NULL,
		full_name VARCHAR(255) NULL,
		avatar_url TEXT NULL,
		phone_number VARCHAR(32) NULL,
		created_at DATETIME(6) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS items (
		id CHAR(36) NOT NULL PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		user_email VARCHAR(255) NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		type VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'active',
		image_url TEXT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_items_status_created (status, created_at),
		INDEX idx_items_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS contact_attempts (
		id CHAR(36) NOT NULL PRIMARY KEY,
		contacted_by CHAR(36) NOT NULL,
		posted_user_id CHAR(36) NOT NULL,
		item_id CHAR(36) NULL,
		contact_method VARCHAR(16) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_attempts_contacted_by (contacted_by),
		INDEX idx_attempts_posted_user (posted_user_id),
		INDEX idx_attempts_item (item_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id CHAR(36) NOT NULL PRIMARY KEY,
		item_id CHAR(36) NOT NULL,
		user_id CHAR(36) NULL,
		helper_name VARCHAR(255) NOT NULL DEFAULT '',
		rating TINYINT NOT NULL,
		experience TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_feedback_item (item_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT NOT NULL PRIMARY KEY,
		email TEXT NULL,
		full_name TEXT NULL,
		avatar_url TEXT NULL,
		phone_number TEXT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL,
		user_email TEXT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		image_url TEXT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_status_created ON items (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS contact_attempts (
		id TEXT NOT NULL PRIMARY KEY,
		contacted_by TEXT NOT NULL,
		posted_user_id TEXT NOT NULL,
		item_id TEXT NULL,
		contact_method TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_contacted_by ON contact_attempts (contacted_by)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_posted_user ON contact_attempts (posted_user_id)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id TEXT NOT NULL PRIMARY KEY,
		item_id TEXT NOT NULL,
		user_id TEXT NULL,
		helper_name TEXT NOT NULL DEFAULT '',
		rating INTEGER NOT NULL,
		experience TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_item ON feedback (item_id)`,
}

// Migrate создает таблицы, если их еще нет
func (s *Store) Migrate(ctx context.Context) error {
	statements := mysqlSchema
	if s.driver == DriverSQLite {
		statements = sqliteSchema
	}

	for i, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ошибка миграции (шаг %d): %w", i+1, err)
		}
	}

	s.log.Info("✅ Схема базы данных актуальна")
	return nil
}
