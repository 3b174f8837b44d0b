// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package database

import (
	"context"
	"fmt"
)

// schemaStatements create the relational schema. Posts carry the
// denormalized ranking inputs (counts, media flag, author verification,
// virality) so sourcing needs no further joins; post_categories holds
// the fractional post-to-category association; user_relationships
// covers both block and mute lists.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		post_id         VARCHAR PRIMARY KEY,
		author_id       VARCHAR NOT NULL,
		content         VARCHAR,
		created_at      TIMESTAMP NOT NULL,
		like_count      BIGINT NOT NULL DEFAULT 0,
		view_count      BIGINT NOT NULL DEFAULT 0,
		has_media       BOOLEAN NOT NULL DEFAULT false,
		author_verified BOOLEAN NOT NULL DEFAULT false,
		virality        DOUBLE NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS post_categories (
		post_id     VARCHAR NOT NULL,
		category_id BIGINT NOT NULL,
		percentage  DOUBLE NOT NULL,
		PRIMARY KEY (post_id, category_id)
	)`,

	`CREATE TABLE IF NOT EXISTS user_interests (
		user_id     VARCHAR NOT NULL,
		category_id BIGINT NOT NULL,
		score       DOUBLE NOT NULL,
		PRIMARY KEY (user_id, category_id)
	)`,

	`CREATE TABLE IF NOT EXISTS user_relationships (
		user_id   VARCHAR NOT NULL,
		target_id VARCHAR NOT NULL,
		relation  VARCHAR NOT NULL CHECK (relation IN ('block', 'mute')),
		PRIMARY KEY (user_id, target_id, relation)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_author ON posts (author_id)`,
	`CREATE INDEX IF NOT EXISTS idx_post_categories_category ON post_categories (category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_interests_user ON user_interests (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_relationships_user ON user_relationships (user_id)`,
}

// initSchema applies the schema statements. All statements are
// idempotent, so reopening an existing database is safe.
func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
