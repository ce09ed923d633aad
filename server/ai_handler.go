package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"EchoCanvas/core/ai"
	"EchoCanvas/logger"
	"EchoCanvas/model"
)

// audio clips arrive base64 encoded inside the JSON body
const maxAudioBody = 16 << 20

// respondAI maps flow errors: bad input is 400, anything from the model
// side is reported as an upstream failure.
func respondAI(w http.ResponseWriter, flow string, out interface{}, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, out)
	case errors.Is(err, ai.ErrInvalidInput), errors.Is(err, ai.ErrInvalidDataURI):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		logger.Info("[AI] 请求已取消", logger.String("flow", flow))
	default:
		logger.Error("[AI] 调用失败", logger.String("flow", flow), logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "AI service unavailable")
	}
}

// GeneratePlaylistHandler handles POST /api/ai/playlist.
func (h *APIHandler) GeneratePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req model.PlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	out, err := h.aiService.GenerateInitialPlaylist(r.Context(), req)
	respondAI(w, "playlist", out, err)
}

// NextSongHandler handles POST /api/ai/next-song.
func (h *APIHandler) NextSongHandler(w http.ResponseWriter, r *http.Request) {
	var req model.NextSongRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	out, err := h.aiService.SuggestNextSong(r.Context(), req)
	respondAI(w, "next-song", out, err)
}

// RemixHandler handles POST /api/ai/remix.
func (h *APIHandler) RemixHandler(w http.ResponseWriter, r *http.Request) {
	var req model.RemixRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	out, err := h.aiService.SuggestRemixStyle(r.Context(), req)
	respondAI(w, "remix", out, err)
}

// AnalyzeAudioHandler handles POST /api/ai/analyze-audio.
func (h *APIHandler) AnalyzeAudioHandler(w http.ResponseWriter, r *http.Request) {
	var req model.AudioSearchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxAudioBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	out, err := h.aiService.AnalyzeAudioForSearch(r.Context(), req)
	respondAI(w, "analyze-audio", out, err)
}
