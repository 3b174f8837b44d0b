// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package feed

import (
	"errors"
	"testing"
)

func TestCursorRoundTrip(t *testing.T) {
	token := encodeCursor("user-1", 40)

	offset, err := decodeCursor("user-1", token)
	if err != nil {
		t.Fatalf("decodeCursor failed: %v", err)
	}
	if offset != 40 {
		t.Errorf("offset = %d, want 40", offset)
	}
}

func TestCursorEmptyTokenMeansStart(t *testing.T) {
	offset, err := decodeCursor("user-1", "")
	if err != nil {
		t.Fatalf("decodeCursor failed: %v", err)
	}
	if offset != 0 {
		t.Errorf("offset = %d, want 0", offset)
	}
}

func TestCursorRejectsOtherUsersToken(t *testing.T) {
	token := encodeCursor("user-1", 20)

	if _, err := decodeCursor("user-2", token); !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("decodeCursor with foreign token = %v, want ErrInvalidCursor", err)
	}
}

func TestCursorRejectsMalformedTokens(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"base64 of garbage", "bm90LWpzb24"},
		{"negative offset", encodeCursor("user-1", -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeCursor("user-1", tt.token); !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("decodeCursor(%q) = %v, want ErrInvalidCursor", tt.token, err)
			}
		})
	}
}
