// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feedforge/feedforge/internal/logging"
)

// seedNamespace makes seeded identifiers deterministic across runs:
// the same logical entity always maps to the same UUID.
var seedNamespace = uuid.MustParse("6f1c24b8-3e2a-4c0d-9b5f-8d7a1e4c2f90")

func seedID(name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(name)).String()
}

// Seed categories: index is the category ID used in associations.
var seedCategories = []string{
	"technology", "music", "sports", "cooking", "travel", "gaming",
}

// SeedMockData populates a deterministic development corpus: a handful
// of users with interest profiles, posts spread across the last six
// days with category associations, and a few block/mute relationships.
// Post IDs are stable, so reseeding an existing database fails on the
// primary key; call only against a fresh database.
func (db *DB) SeedMockData(ctx context.Context) error {
	now := time.Now().UTC()

	userCount := 8
	users := make([]string, userCount)
	for i := range users {
		users[i] = seedID(fmt.Sprintf("user-%d", i))
	}

	// Interest profiles: each user leans toward two categories with
	// distinct affinity weights; user 7 stays interest-free to exercise
	// the random-fresh path.
	for i := 0; i < userCount-1; i++ {
		primary := int64(i % len(seedCategories))
		secondary := int64((i + 2) % len(seedCategories))
		if err := db.SetUserInterest(ctx, users[i], primary+1, 10); err != nil {
			return err
		}
		if err := db.SetUserInterest(ctx, users[i], secondary+1, 5); err != nil {
			return err
		}
	}

	// Posts: 120 posts spread across authors, categories, and the last
	// six days, with varied engagement and media attributes.
	for i := 0; i < 120; i++ {
		author := users[i%userCount]
		post := Post{
			PostID:         seedID(fmt.Sprintf("post-%d", i)),
			AuthorID:       author,
			Content:        fmt.Sprintf("seed post %d about %s", i, seedCategories[i%len(seedCategories)]),
			CreatedAt:      now.Add(-time.Duration(i) * 70 * time.Minute),
			LikeCount:      int64((i * 7) % 250),
			ViewCount:      int64((i * 31) % 2000),
			HasMedia:       i%3 == 0,
			AuthorVerified: i%8 < 2,
			Virality:       float64(i%10) / 10,
		}
		if err := db.InsertPost(ctx, post); err != nil {
			return err
		}

		// Primary association plus a fractional secondary one for
		// every other post.
		primary := int64(i%len(seedCategories)) + 1
		if err := db.AddPostCategory(ctx, post.PostID, primary, 80); err != nil {
			return err
		}
		if i%2 == 0 {
			secondary := int64((i+1)%len(seedCategories)) + 1
			if err := db.AddPostCategory(ctx, post.PostID, secondary, 20); err != nil {
				return err
			}
		}
	}

	// A block and a mute so exclusion filtering is visible in seeded
	// feeds.
	if err := db.AddRelationship(ctx, users[0], users[3], RelationBlock); err != nil {
		return err
	}
	if err := db.AddRelationship(ctx, users[1], users[4], RelationMute); err != nil {
		return err
	}

	logging.Info().
		Int("users", userCount).
		Int("posts", 120).
		Int("categories", len(seedCategories)).
		Msg("mock data seeded")

	return nil
}
