package model

// SearchResult is one playable item from a search provider.
type SearchResult struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Attribution  string `json:"attribution"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	PlayableURL  string `json:"playableUrl"`
}

// SearchPage is one page of results. An empty NextContinuationToken means
// there are no more pages.
type SearchPage struct {
	Source                string         `json:"source"`
	Results               []SearchResult `json:"results"`
	NextContinuationToken string         `json:"nextContinuationToken,omitempty"`
}

// CaptionsResponse is returned by GET /api/captions/{contentId}.
type CaptionsResponse struct {
	ContentID string   `json:"contentId"`
	Lines     []string `json:"lines"`
}
