package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"EchoCanvas/logger"
)

var mockCaptionLines = []string{
	"This is a mock lyric line one,",
	"From our placeholder system, have some fun.",
	"If you see this, your API key might be undone,",
	"Or captions for this video are none.",
	"(Music playing...)",
	"Yeah, this is how we mock the flow,",
	"Line by line, watch the lyrics grow.",
}

type captionTrack struct {
	ID      string `json:"id"`
	Snippet struct {
		Language  string `json:"language"`
		TrackKind string `json:"trackKind"`
	} `json:"snippet"`
}

type captionListResponse struct {
	Items []captionTrack `json:"items"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func (e apiError) reason() string {
	if len(e.Error.Errors) == 0 {
		return ""
	}
	return e.Error.Errors[0].Reason
}

// pickTrack prefers an English track and falls back to the first one.
func pickTrack(tracks []captionTrack) *captionTrack {
	if len(tracks) == 0 {
		return nil
	}
	for i := range tracks {
		lang := strings.ToLower(tracks[i].Snippet.Language)
		if lang == "en" || strings.HasPrefix(lang, "en-") {
			return &tracks[i]
		}
	}
	return &tracks[0]
}

// Captions returns the cleaned caption lines of a video. A nil slice with a
// nil error means the video has no usable captions. Without an API key it
// returns mock lines.
func (c *Client) Captions(ctx context.Context, videoID string) ([]string, error) {
	if !c.captionsConfigured() {
		logger.Warn("[YouTube] Data API key not configured, returning mock captions")
		return append([]string(nil), mockCaptionLines...), nil
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("videoId", videoID)
	params.Set("key", c.config.DataAPIKey)

	listResp, err := c.get(ctx, c.dataAPIBaseURL()+"/captions?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer listResp.Body.Close()

	if listResp.StatusCode != http.StatusOK {
		var apiErr apiError
		json.NewDecoder(io.LimitReader(listResp.Body, 8192)).Decode(&apiErr)
		switch {
		case listResp.StatusCode == http.StatusNotFound:
			logger.Info("[YouTube] no caption tracks", logger.String("videoId", videoID))
			return nil, nil
		case listResp.StatusCode == http.StatusForbidden && apiErr.reason() == "captionsDisabled":
			logger.Info("[YouTube] captions disabled", logger.String("videoId", videoID))
			return nil, nil
		default:
			return nil, fmt.Errorf("%w: caption list returned status %d: %s", ErrUpstream, listResp.StatusCode, apiErr.Error.Message)
		}
	}

	var list captionListResponse
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: failed to decode caption list: %v", ErrUpstream, err)
	}
	track := pickTrack(list.Items)
	if track == nil {
		return nil, nil
	}

	dl := url.Values{}
	dl.Set("key", c.config.DataAPIKey)
	dl.Set("tfmt", "vtt")
	trackResp, err := c.get(ctx, c.dataAPIBaseURL()+"/captions/"+url.PathEscape(track.ID)+"?"+dl.Encode())
	if err != nil {
		return nil, err
	}
	defer trackResp.Body.Close()

	if trackResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(trackResp.Body, 2048))
		return nil, fmt.Errorf("%w: caption download returned status %d: %s", ErrUpstream, trackResp.StatusCode, string(body))
	}
	raw, err := io.ReadAll(trackResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read caption track: %v", ErrUpstream, err)
	}

	lines := CleanCaptions(string(raw))
	if len(lines) == 0 {
		return nil, nil
	}
	return lines, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return resp, nil
}
