// Package spotify wraps the Spotify Web API calls used by the top tracks
// export: reading a user's long-term favourites and saving them as a playlist.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"EchoCanvas/logger"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const (
	// TopTracksLimit is how many long-term favourites are fetched.
	TopTracksLimit = 20
	// MaxPlaylistTracks is the most URIs one playlist request accepts.
	MaxPlaylistTracks = 100
	// PlaylistName is the name of the exported playlist.
	PlaylistName        = "My Echo Canvas Top Tracks"
	playlistDescription = "Your all-time top tracks, collected by Echo Canvas."
	trackURIPrefix      = "spotify:track:"
)

var (
	// ErrNoTracks is returned when a playlist request carries no URIs.
	ErrNoTracks = errors.New("no track URIs provided")
	// ErrTooManyTracks is returned for more than MaxPlaylistTracks URIs.
	ErrTooManyTracks = fmt.Errorf("at most %d track URIs are allowed", MaxPlaylistTracks)
	// ErrInvalidURI is returned for URIs that are not spotify:track:<id>.
	ErrInvalidURI = errors.New("invalid spotify track URI")
)

// Track is the trimmed view of a Spotify track returned to clients.
type Track struct {
	ID       string   `json:"id"`
	URI      string   `json:"uri"`
	Name     string   `json:"name"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album"`
	ImageURL string   `json:"imageUrl,omitempty"`
	URL      string   `json:"url,omitempty"`
}

// Playlist describes a created playlist.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	TracksAdded int    `json:"tracksAdded"`
}

// Client wraps an authenticated Spotify API client.
type Client struct {
	api *spotify.Client
}

// New creates a client acting with the user's bearer token.
func New(ctx context.Context, accessToken string, opts ...spotify.ClientOption) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return &Client{api: spotify.New(oauth2.NewClient(ctx, ts), opts...)}
}

func convertTrack(t spotify.FullTrack) Track {
	track := Track{
		ID:    t.ID.String(),
		URI:   string(t.URI),
		Name:  t.Name,
		Album: t.Album.Name,
		URL:   t.ExternalURLs["spotify"],
	}
	for _, a := range t.Artists {
		track.Artists = append(track.Artists, a.Name)
	}
	if len(t.Album.Images) > 0 {
		track.ImageURL = t.Album.Images[0].URL
	}
	return track
}

// TopTracks returns the user's long-term top tracks.
func (c *Client) TopTracks(ctx context.Context) ([]Track, error) {
	page, err := c.api.CurrentUsersTopTracks(ctx,
		spotify.Timerange(spotify.LongTermRange),
		spotify.Limit(TopTracksLimit))
	if err != nil {
		return nil, fmt.Errorf("getting top tracks: %w", err)
	}

	tracks := make([]Track, 0, len(page.Tracks))
	for _, t := range page.Tracks {
		tracks = append(tracks, convertTrack(t))
	}
	logger.Info("[Spotify] fetched top tracks", logger.Int("count", len(tracks)))
	return tracks, nil
}

// ValidateTrackURIs checks the URI count and format and returns the track IDs.
func ValidateTrackURIs(uris []string) ([]spotify.ID, error) {
	if len(uris) == 0 {
		return nil, ErrNoTracks
	}
	if len(uris) > MaxPlaylistTracks {
		return nil, ErrTooManyTracks
	}
	ids := make([]spotify.ID, 0, len(uris))
	for _, uri := range uris {
		id := strings.TrimPrefix(uri, trackURIPrefix)
		if id == uri || id == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidURI, uri)
		}
		ids = append(ids, spotify.ID(id))
	}
	return ids, nil
}

// CreateTopTracksPlaylist creates a private playlist for the current user
// and adds the given track URIs to it.
func (c *Client) CreateTopTracksPlaylist(ctx context.Context, uris []string) (*Playlist, error) {
	ids, err := ValidateTrackURIs(uris)
	if err != nil {
		return nil, err
	}

	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}

	playlist, err := c.api.CreatePlaylistForUser(ctx, user.ID, PlaylistName, playlistDescription, false, false)
	if err != nil {
		return nil, fmt.Errorf("creating playlist: %w", err)
	}

	if _, err := c.api.AddTracksToPlaylist(ctx, playlist.ID, ids...); err != nil {
		return nil, fmt.Errorf("adding tracks to playlist %s: %w", playlist.ID, err)
	}

	logger.Info("[Spotify] created playlist",
		logger.String("playlistId", playlist.ID.String()),
		logger.Int("tracks", len(ids)))
	return &Playlist{
		ID:          playlist.ID.String(),
		Name:        playlist.Name,
		URL:         playlist.ExternalURLs["spotify"],
		TracksAdded: len(ids),
	}, nil
}
