package cache

import (
	"context"
	"time"
)

// CaptionTTL is how long cleaned caption lines stay cached.
const CaptionTTL = time.Hour

func captionKey(contentID string) string {
	return "captions:" + contentID
}

// GetCaptions returns cached lines and whether they were found.
func (c *Cache) GetCaptions(ctx context.Context, contentID string) ([]string, bool, error) {
	var lines []string
	ok, err := c.getJSON(ctx, captionKey(contentID), &lines)
	return lines, ok, err
}

// SetCaptions caches lines. Unavailable captions (nil) are not cached.
func (c *Cache) SetCaptions(ctx context.Context, contentID string, lines []string) error {
	if lines == nil {
		return nil
	}
	return c.setJSON(ctx, captionKey(contentID), lines, CaptionTTL)
}
