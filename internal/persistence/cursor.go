// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"encoding/base64"
	"fmt"
	"strings"

	"example.com/schedule/internal/domain"
	"example.com/schedule/internal/schedule"
)

// EncodeCursor serialises the cursor to a string token.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw := fmt.Sprintf("%s|%s|%s", c.Day, c.Start, c.ID)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses the encoded cursor token.
func DecodeCursor(token string) (*domain.Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(decoded), "|", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid cursor format")
	}
	day := schedule.Weekday(parts[0])
	if !day.Valid() {
		return nil, fmt.Errorf("invalid cursor day %q", parts[0])
	}
	if _, err := schedule.ParseClock(parts[1]); err != nil {
		return nil, fmt.Errorf("invalid cursor start: %w", err)
	}
	return &domain.Cursor{Day: day, Start: parts[1], ID: parts[2]}, nil
}
