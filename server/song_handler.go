package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"EchoCanvas/core/audio"
	"EchoCanvas/logger"
	"EchoCanvas/model"
	"EchoCanvas/repository"
	"EchoCanvas/storage"
)

const maxUploadSize = 50 << 20

// ToggleLikeHandler handles POST /api/likes/toggle.
func (h *APIHandler) ToggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req model.ToggleLikeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.likeRepo.ToggleLike(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidLike) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("[Likes] 切换收藏失败",
			logger.Int64("userId", userID),
			logger.String("songId", req.SongID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update like")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListLikesHandler handles GET /api/likes.
func (h *APIHandler) ListLikesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	songs, err := h.likeRepo.ListLiked(r.Context(), userID)
	if err != nil {
		logger.Error("[Likes] 获取收藏列表失败", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to list likes")
		return
	}
	if songs == nil {
		songs = []*model.LikedSong{}
	}
	writeJSON(w, http.StatusOK, songs)
}

// LikedIDsHandler handles GET /api/likes/ids?source=youtube|uploaded|all.
func (h *APIHandler) LikedIDsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	source := r.URL.Query().Get("source")
	if source != "" && source != "all" && !model.ValidSongSource(source) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown source %q", source))
		return
	}
	ids, err := h.likeRepo.LikedIDs(r.Context(), userID, source)
	if err != nil {
		logger.Error("[Likes] 获取收藏ID失败", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to list liked ids")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"songIds": ids})
}

// CheckLikeHandler handles GET /api/likes/check?songId=&source=.
func (h *APIHandler) CheckLikeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	songID := r.URL.Query().Get("songId")
	source := r.URL.Query().Get("source")
	if songID == "" || !model.ValidSongSource(source) {
		writeError(w, http.StatusBadRequest, "songId and a valid source are required")
		return
	}
	liked, err := h.likeRepo.IsLiked(r.Context(), userID, songID, source)
	if err != nil {
		logger.Error("[Likes] 检查收藏失败", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to check like")
		return
	}
	writeJSON(w, http.StatusOK, model.ToggleLikeResult{Liked: liked, SongID: songID})
}

// ListSongsHandler handles GET /api/songs.
func (h *APIHandler) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	songs, err := h.songRepo.ListByUser(r.Context(), userID)
	if err != nil {
		logger.Error("[Songs] 获取上传列表失败", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to list songs")
		return
	}
	if songs == nil {
		songs = []*model.UploadedSong{}
	}
	writeJSON(w, http.StatusOK, songs)
}

// SaveSongHandler handles POST /api/songs for audio already stored elsewhere.
func (h *APIHandler) SaveSongHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req model.SaveSongRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	song, err := repository.PrepareUploadedSong(userID, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.createSong(w, r, song)
}

// createSong stores the record and writes the response. It reports whether
// the record was saved.
func (h *APIHandler) createSong(w http.ResponseWriter, r *http.Request, song *model.UploadedSong) bool {
	if err := h.songRepo.Create(r.Context(), song); err != nil {
		logger.Error("[Songs] 保存歌曲失败", logger.String("title", song.Title), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to save song")
		return false
	}
	logger.Info("[Songs] 歌曲已保存",
		logger.String("id", song.ID),
		logger.Int64("userId", song.UserID),
		logger.String("title", song.Title))
	writeJSON(w, http.StatusCreated, song)
	return true
}

// UploadSongHandler handles POST /api/songs/upload.
// Expected multipart form fields:
// - file: the audio file
// - title: song title (defaults to the file name)
// - artist: optional
func (h *APIHandler) UploadSongHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if h.audioStore == nil {
		writeError(w, http.StatusServiceUnavailable, "Audio storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing 'file' in form")
		return
	}
	defer file.Close()

	if ct := storage.AudioContentType(header.Filename); ct == "application/octet-stream" {
		writeError(w, http.StatusBadRequest, "Unsupported audio format")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	// spool locally so the duration can be probed before upload
	tmpPath, err := audio.SpoolFile(h.cfg.UploadDir, "upload-", header.Filename, file)
	if err != nil {
		logger.Error("[Songs] 暂存上传文件失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer os.Remove(tmpPath)

	var duration float32
	if h.audioProcessor != nil {
		if d, err := h.audioProcessor.GetAudioDuration(r.Context(), tmpPath); err != nil {
			logger.Warn("[Songs] 获取音频时长失败", logger.String("file", header.Filename), logger.ErrorField(err))
		} else {
			duration = d
		}
	}

	tmp, err := os.Open(tmpPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer tmp.Close()
	info, err := tmp.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	key, audioURL, err := h.audioStore.PutAudio(r.Context(), userID, header.Filename, tmp, info.Size())
	if err != nil {
		logger.Error("[Songs] 上传到对象存储失败", logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "Failed to upload audio")
		return
	}

	song, err := repository.PrepareUploadedSong(userID, &model.SaveSongRequest{
		Title:    title,
		Artist:   r.FormValue("artist"),
		AudioURL: audioURL,
		Duration: duration,
	})
	if err != nil {
		h.discardAudio(r.Context(), key)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	song.ObjectKey = key
	if !h.createSong(w, r, song) {
		h.discardAudio(r.Context(), key)
	}
}

// discardAudio removes an object whose song record could not be saved.
func (h *APIHandler) discardAudio(ctx context.Context, key string) {
	if err := h.audioStore.DeleteAudio(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("[Songs] 清理未保存歌曲的音频失败", logger.String("key", key), logger.ErrorField(err))
	}
}
