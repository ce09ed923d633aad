package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"EchoCanvas/config"
	"EchoCanvas/core/ai"
	"EchoCanvas/core/audio"
	"EchoCanvas/core/plugin"
	"EchoCanvas/logger"
	"EchoCanvas/repository"
)

// audioUploader stores uploaded audio files. PutAudio returns (objectKey, url).
type audioUploader interface {
	PutAudio(ctx context.Context, userID int64, filename string, r io.Reader, size int64) (string, string, error)
	DeleteAudio(ctx context.Context, key string) error
}

// APIHandler 处理所有API请求
type APIHandler struct {
	userRepo       repository.UserRepository
	likeRepo       repository.LikedSongRepository
	songRepo       repository.UploadedSongRepository
	search         *plugin.SearchPluginManager
	aiService      *ai.Service
	audioStore     audioUploader
	audioProcessor audio.Processor
	spotify        spotifyFactory
	cfg            *config.Config
}

// Deps groups the collaborators of APIHandler. Nil optional members
// disable the endpoints that need them.
type Deps struct {
	UserRepo       repository.UserRepository
	LikeRepo       repository.LikedSongRepository
	SongRepo       repository.UploadedSongRepository
	Search         *plugin.SearchPluginManager
	AI             *ai.Service
	AudioStore     audioUploader
	AudioProcessor audio.Processor
	Spotify        spotifyFactory
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(deps Deps, cfg *config.Config) *APIHandler {
	spotify := deps.Spotify
	if spotify == nil {
		spotify = defaultSpotifyFactory
	}
	return &APIHandler{
		userRepo:       deps.UserRepo,
		likeRepo:       deps.LikeRepo,
		songRepo:       deps.SongRepo,
		search:         deps.Search,
		aiService:      deps.AI,
		audioStore:     deps.AudioStore,
		audioProcessor: deps.AudioProcessor,
		spotify:        spotify,
		cfg:            cfg,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("写入响应失败", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a JSON body, rejecting oversized or malformed input.
func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
