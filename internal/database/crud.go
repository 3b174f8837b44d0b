// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package database

import (
	"context"
	"fmt"
	"time"
)

// Relationship kinds. Both exclude the target's posts from the
// requester's feed.
const (
	RelationBlock = "block"
	RelationMute  = "mute"
)

// Post is a stored post record.
type Post struct {
	PostID         string
	AuthorID       string
	Content        string
	CreatedAt      time.Time
	LikeCount      int64
	ViewCount      int64
	HasMedia       bool
	AuthorVerified bool
	Virality       float64
}

// InsertPost stores a post.
func (db *DB) InsertPost(ctx context.Context, p Post) error {
	query := `
		INSERT INTO posts (
			post_id, author_id, content, created_at,
			like_count, view_count, has_media, author_verified, virality
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		p.PostID, p.AuthorID, p.Content, p.CreatedAt,
		p.LikeCount, p.ViewCount, p.HasMedia, p.AuthorVerified, p.Virality)
	if err != nil {
		return fmt.Errorf("insert post %s: %w", p.PostID, err)
	}
	return nil
}

// AddPostCategory associates a post with a category at the given
// fractional percentage (0-100).
func (db *DB) AddPostCategory(ctx context.Context, postID string, categoryID int64, percentage float64) error {
	query := `INSERT INTO post_categories (post_id, category_id, percentage) VALUES (?, ?, ?)`

	if _, err := db.conn.ExecContext(ctx, query, postID, categoryID, percentage); err != nil {
		return fmt.Errorf("associate post %s with category %d: %w", postID, categoryID, err)
	}
	return nil
}

// SetUserInterest upserts a user's affinity score for a category.
func (db *DB) SetUserInterest(ctx context.Context, userID string, categoryID int64, score float64) error {
	query := `
		INSERT INTO user_interests (user_id, category_id, score)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, category_id) DO UPDATE SET score = EXCLUDED.score
	`

	if _, err := db.conn.ExecContext(ctx, query, userID, categoryID, score); err != nil {
		return fmt.Errorf("set interest for user %s: %w", userID, err)
	}
	return nil
}

// AddRelationship records a block or mute from userID toward targetID.
func (db *DB) AddRelationship(ctx context.Context, userID, targetID, relation string) error {
	if relation != RelationBlock && relation != RelationMute {
		return fmt.Errorf("unknown relationship %q", relation)
	}

	query := `INSERT OR IGNORE INTO user_relationships (user_id, target_id, relation) VALUES (?, ?, ?)`

	if _, err := db.conn.ExecContext(ctx, query, userID, targetID, relation); err != nil {
		return fmt.Errorf("add %s from user %s: %w", relation, userID, err)
	}
	return nil
}
