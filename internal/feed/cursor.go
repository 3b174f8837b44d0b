// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package feed

import (
	"encoding/base64"
	"errors"

	"github.com/goccy/go-json"
)

// ErrInvalidCursor is returned when a continuation token is malformed
// or was issued for a different user.
var ErrInvalidCursor = errors.New("invalid feed cursor")

// cursorToken is the decoded form of the opaque continuation token.
// The user binding prevents a token issued for one user from paging
// another user's queue.
type cursorToken struct {
	Offset int    `json:"o"`
	UserID string `json:"u"`
}

// encodeCursor builds the opaque continuation token for an offset.
func encodeCursor(userID string, offset int) string {
	data, err := json.Marshal(cursorToken{Offset: offset, UserID: userID})
	if err != nil {
		// cursorToken has no unmarshalable fields; unreachable.
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// decodeCursor resolves a continuation token to a queue offset. An
// empty token means the start of the queue.
func decodeCursor(userID, token string) (int, error) {
	if token == "" {
		return 0, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	var cur cursorToken
	if err := json.Unmarshal(data, &cur); err != nil {
		return 0, ErrInvalidCursor
	}
	if cur.UserID != userID || cur.Offset < 0 {
		return 0, ErrInvalidCursor
	}

	return cur.Offset, nil
}
