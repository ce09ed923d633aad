package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"EchoCanvas/logger"
	"EchoCanvas/model"
)

// MaxResults caps the number of results per page.
const MaxResults = 10

// Source is the provider name used in search pages and likes.
const Source = model.SongSourceYouTube

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
		Thumbnails   struct {
			Default *struct {
				URL string `json:"url"`
			} `json:"default"`
			Medium *struct {
				URL string `json:"url"`
			} `json:"medium"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

type searchResponse struct {
	Items         []searchItem `json:"items"`
	NextPageToken string       `json:"nextPageToken"`
	Continuation  string       `json:"continuation"`
}

// WatchURL returns the playable URL of a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

func mapItem(item searchItem) (model.SearchResult, bool) {
	if item.ID.VideoID == "" {
		return model.SearchResult{}, false
	}
	res := model.SearchResult{
		ID:          item.ID.VideoID,
		Title:       item.Snippet.Title,
		Attribution: item.Snippet.ChannelTitle,
		PlayableURL: WatchURL(item.ID.VideoID),
	}
	if res.Title == "" {
		res.Title = "Unknown Title"
	}
	if res.Attribution == "" {
		res.Attribution = model.DefaultArtist
	}
	switch {
	case item.Snippet.Thumbnails.Medium != nil && item.Snippet.Thumbnails.Medium.URL != "":
		res.ThumbnailURL = item.Snippet.Thumbnails.Medium.URL
	case item.Snippet.Thumbnails.Default != nil:
		res.ThumbnailURL = item.Snippet.Thumbnails.Default.URL
	}
	return res, true
}

func mockSearchPage() *model.SearchPage {
	return &model.SearchPage{
		Source: Source,
		Results: []model.SearchResult{
			{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up (Mock)", Attribution: "Rick Astley (Mock)",
				ThumbnailURL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg", PlayableURL: WatchURL("dQw4w9WgXcQ")},
			{ID: "fJ9rUzIMcZQ", Title: "Bohemian Rhapsody (Mock)", Attribution: "Queen (Mock)",
				ThumbnailURL: "https://i.ytimg.com/vi/fJ9rUzIMcZQ/mqdefault.jpg", PlayableURL: WatchURL("fJ9rUzIMcZQ")},
		},
	}
}

// Search queries the RapidAPI search host. Without credentials it returns a
// fixed page of two mock results.
func (c *Client) Search(ctx context.Context, query, continuationToken string) (*model.SearchPage, error) {
	if !c.searchConfigured() {
		logger.Warn("[YouTube] RapidAPI key or host not configured, returning mock results")
		return mockSearchPage(), nil
	}

	params := url.Values{}
	params.Set("query", query)
	if continuationToken != "" {
		params.Set("token", continuationToken)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchBaseURL()+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.config.RapidAPIKey)
	req.Header.Set("X-RapidAPI-Host", c.config.RapidAPIHost)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: search returned status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode search response: %v", ErrUpstream, err)
	}

	page := &model.SearchPage{Source: Source, Results: make([]model.SearchResult, 0, MaxResults)}
	for _, item := range data.Items {
		if len(page.Results) == MaxResults {
			break
		}
		if res, ok := mapItem(item); ok {
			page.Results = append(page.Results, res)
		}
	}
	page.NextContinuationToken = data.NextPageToken
	if page.NextContinuationToken == "" {
		page.NextContinuationToken = data.Continuation
	}

	logger.Info("[YouTube] search completed",
		logger.String("query", query),
		logger.Int("results", len(page.Results)))
	return page, nil
}
