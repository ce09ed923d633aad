package youtube

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"EchoCanvas/config"
)

// ErrUpstream wraps failures reported by the remote APIs.
var ErrUpstream = errors.New("youtube upstream error")

const defaultDataAPIBase = "https://www.googleapis.com/youtube/v3"

// Config holds the credentials and endpoints for search and captions.
type Config struct {
	RapidAPIKey  string
	RapidAPIHost string
	// SearchBaseURL overrides https://<RapidAPIHost>.
	SearchBaseURL string

	DataAPIKey     string
	DataAPIBaseURL string
}

// ConfigFromApp derives the client configuration from the application config.
func ConfigFromApp(cfg *config.Config) *Config {
	return &Config{
		RapidAPIKey:  cfg.RapidAPIKey,
		RapidAPIHost: cfg.RapidAPIHost,
		DataAPIKey:   cfg.YouTubeAPIKey,
	}
}

// Client searches videos and downloads caption tracks.
type Client struct {
	config     *Config
	httpClient *http.Client
}

func NewClient(cfg *Config) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) searchConfigured() bool {
	return !config.IsPlaceholder(c.config.RapidAPIKey) && !config.IsPlaceholder(c.config.RapidAPIHost)
}

func (c *Client) captionsConfigured() bool {
	return !config.IsPlaceholder(c.config.DataAPIKey)
}

func (c *Client) searchBaseURL() string {
	if c.config.SearchBaseURL != "" {
		return strings.TrimRight(c.config.SearchBaseURL, "/")
	}
	return "https://" + c.config.RapidAPIHost
}

func (c *Client) dataAPIBaseURL() string {
	if c.config.DataAPIBaseURL != "" {
		return strings.TrimRight(c.config.DataAPIBaseURL, "/")
	}
	return defaultDataAPIBase
}
