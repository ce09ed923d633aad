package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"EchoCanvas/core/spotify"
	"EchoCanvas/logger"
)

const spotifyTokenHeader = "X-Spotify-Token"

type spotifyClient interface {
	TopTracks(ctx context.Context) ([]spotify.Track, error)
	CreateTopTracksPlaylist(ctx context.Context, uris []string) (*spotify.Playlist, error)
}

// spotifyFactory builds a client acting with the caller's Spotify token.
type spotifyFactory func(ctx context.Context, accessToken string) spotifyClient

func defaultSpotifyFactory(ctx context.Context, accessToken string) spotifyClient {
	return spotify.New(ctx, accessToken)
}

type createPlaylistRequest struct {
	TrackURIs []string `json:"trackUris"`
}

func spotifyToken(r *http.Request) string {
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get(spotifyTokenHeader), "Bearer "))
}

// SpotifyTopTracksHandler handles GET /api/spotify/top-tracks.
func (h *APIHandler) SpotifyTopTracksHandler(w http.ResponseWriter, r *http.Request) {
	token := spotifyToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Missing "+spotifyTokenHeader+" header")
		return
	}
	tracks, err := h.spotify(r.Context(), token).TopTracks(r.Context())
	if err != nil {
		logger.Warn("[Spotify] 获取热门歌曲失败", logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "Failed to fetch top tracks from Spotify")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})
}

// SpotifyCreatePlaylistHandler handles POST /api/spotify/playlist.
func (h *APIHandler) SpotifyCreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	token := spotifyToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Missing "+spotifyTokenHeader+" header")
		return
	}
	var req createPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := spotify.ValidateTrackURIs(req.TrackURIs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	playlist, err := h.spotify(r.Context(), token).CreateTopTracksPlaylist(r.Context(), req.TrackURIs)
	if err != nil {
		if errors.Is(err, spotify.ErrNoTracks) || errors.Is(err, spotify.ErrTooManyTracks) || errors.Is(err, spotify.ErrInvalidURI) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Warn("[Spotify] 创建歌单失败", logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "Failed to create Spotify playlist")
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}
