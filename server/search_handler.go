package server

import (
	"errors"
	"net/http"
	"strings"

	"EchoCanvas/core/plugin"
	"EchoCanvas/core/youtube"
	"EchoCanvas/logger"
	"EchoCanvas/model"

	"github.com/gorilla/mux"
)

// SearchHandler handles GET /api/search?q=&token=&source=.
func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing search query")
		return
	}
	source := r.URL.Query().Get("source")
	token := r.URL.Query().Get("token")

	page, err := h.search.Search(r.Context(), source, query, token)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, page)
	case errors.Is(err, plugin.ErrUnknownSource):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, youtube.ErrUpstream):
		logger.Warn("[Search] 上游搜索失败", logger.String("query", query), logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "Search provider unavailable")
	default:
		logger.Error("[Search] 搜索失败", logger.String("query", query), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Search failed")
	}
}

// CaptionsHandler handles GET /api/captions/{contentId}. Missing captions
// are a 404, not an upstream failure.
func (h *APIHandler) CaptionsHandler(w http.ResponseWriter, r *http.Request) {
	contentID := mux.Vars(r)["contentId"]
	source := r.URL.Query().Get("source")

	lines, err := h.search.Captions(r.Context(), source, contentID)
	switch {
	case errors.Is(err, plugin.ErrUnknownSource):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		logger.Warn("[Captions] 获取字幕失败", logger.String("contentId", contentID), logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "Caption provider unavailable")
	case lines == nil:
		writeError(w, http.StatusNotFound, "captions unavailable")
	default:
		writeJSON(w, http.StatusOK, model.CaptionsResponse{ContentID: contentID, Lines: lines})
	}
}
