package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"EchoCanvas/model"
)

// SearchTTL is how long a search page stays cached.
const SearchTTL = 10 * time.Minute

func searchKey(source, query, token string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(query)) + "\x00" + token))
	return "search:" + source + ":" + hex.EncodeToString(sum[:])
}

// GetSearchPage returns a cached page, or nil on a miss.
func (c *Cache) GetSearchPage(ctx context.Context, source, query, token string) (*model.SearchPage, error) {
	var page model.SearchPage
	ok, err := c.getJSON(ctx, searchKey(source, query, token), &page)
	if err != nil || !ok {
		return nil, err
	}
	return &page, nil
}

func (c *Cache) SetSearchPage(ctx context.Context, source, query, token string, page *model.SearchPage) error {
	return c.setJSON(ctx, searchKey(source, query, token), page, SearchTTL)
}
