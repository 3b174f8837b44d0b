// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/feedforge/feedforge/internal/feed"
)

// GetUserInterests returns the user's interest records ordered by
// affinity score descending.
func (db *DB) GetUserInterests(ctx context.Context, userID string) ([]feed.Interest, error) {
	query := `
		SELECT category_id, score
		FROM user_interests
		WHERE user_id = ?
		ORDER BY score DESC
	`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query interests: %w", err)
	}
	defer rows.Close()

	var interests []feed.Interest
	for rows.Next() {
		var in feed.Interest
		if err := rows.Scan(&in.CategoryID, &in.Score); err != nil {
			return nil, fmt.Errorf("scan interest: %w", err)
		}
		interests = append(interests, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interests: %w", err)
	}

	return interests, nil
}

// GetCategoryPosts returns fresh posts associated with a category,
// ordered by recency descending, carrying the association percentage.
// The requesting user's own posts, posts by blocked or muted accounts,
// and explicitly excluded IDs are filtered out.
func (db *DB) GetCategoryPosts(ctx context.Context, q feed.CategoryPostsQuery) ([]feed.PostRow, error) {
	exclusion, exclusionArgs := excludeClause(q.Exclude)

	query := fmt.Sprintf(`
		SELECT
			p.post_id,
			p.author_id,
			p.created_at,
			pc.percentage,
			p.like_count,
			p.view_count,
			p.has_media,
			p.author_verified,
			p.virality
		FROM posts p
		JOIN post_categories pc ON pc.post_id = p.post_id
		WHERE pc.category_id = ?
		  AND p.created_at >= ?
		  AND p.author_id <> ?
		  AND p.author_id NOT IN (
			SELECT target_id FROM user_relationships WHERE user_id = ?
		  )
		  %s
		ORDER BY p.created_at DESC
		LIMIT ?
	`, exclusion)

	args := []any{q.CategoryID, q.Since, q.UserID, q.UserID}
	args = append(args, exclusionArgs...)
	args = append(args, q.Limit)

	return db.queryPostRows(ctx, query, args, true)
}

// GetEngagementPosts returns fresh posts from the broader pool ordered
// by a composite of like and view counts descending, then recency.
// Same exclusion semantics as GetCategoryPosts.
func (db *DB) GetEngagementPosts(ctx context.Context, q feed.PoolQuery) ([]feed.PostRow, error) {
	return db.queryPool(ctx, q, "ORDER BY (p.like_count * 2 + p.view_count) DESC, p.created_at DESC")
}

// GetRandomFreshPosts returns fresh posts in random order, for users
// with no interest signal.
func (db *DB) GetRandomFreshPosts(ctx context.Context, q feed.PoolQuery) ([]feed.PostRow, error) {
	return db.queryPool(ctx, q, "ORDER BY random()")
}

// queryPool runs the category-agnostic pool query with the given
// ordering clause.
func (db *DB) queryPool(ctx context.Context, q feed.PoolQuery, orderBy string) ([]feed.PostRow, error) {
	exclusion, exclusionArgs := excludeClause(q.Exclude)

	query := fmt.Sprintf(`
		SELECT
			p.post_id,
			p.author_id,
			p.created_at,
			p.like_count,
			p.view_count,
			p.has_media,
			p.author_verified,
			p.virality
		FROM posts p
		WHERE p.created_at >= ?
		  AND p.author_id <> ?
		  AND p.author_id NOT IN (
			SELECT target_id FROM user_relationships WHERE user_id = ?
		  )
		  %s
		%s
		LIMIT ?
	`, exclusion, orderBy)

	args := []any{q.Since, q.UserID, q.UserID}
	args = append(args, exclusionArgs...)
	args = append(args, q.Limit)

	return db.queryPostRows(ctx, query, args, false)
}

// queryPostRows executes a post query and scans the shared row shape.
// withPercentage selects the category association column.
func (db *DB) queryPostRows(ctx context.Context, query string, args []any, withPercentage bool) ([]feed.PostRow, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var result []feed.PostRow
	for rows.Next() {
		row, err := scanPostRow(rows, withPercentage)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return result, nil
}

func scanPostRow(rows *sql.Rows, withPercentage bool) (feed.PostRow, error) {
	var (
		row       feed.PostRow
		createdAt time.Time
	)

	dest := []any{&row.PostID, &row.AuthorID, &createdAt}
	if withPercentage {
		dest = append(dest, &row.Percentage)
	}
	dest = append(dest, &row.LikeCount, &row.ViewCount, &row.HasMedia, &row.AuthorVerified, &row.Virality)

	if err := rows.Scan(dest...); err != nil {
		return feed.PostRow{}, fmt.Errorf("scan post row: %w", err)
	}

	row.CreatedAt = createdAt.UTC()
	return row, nil
}

// excludeClause builds the post-ID exclusion fragment and its
// arguments. Empty exclusion sets produce no clause at all.
func excludeClause(exclude map[string]struct{}) (string, []any) {
	if len(exclude) == 0 {
		return "", nil
	}

	args := make([]any, 0, len(exclude))
	for id := range exclude {
		args = append(args, id)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(exclude)), ",")
	return fmt.Sprintf("AND p.post_id NOT IN (%s)", placeholders), args
}
