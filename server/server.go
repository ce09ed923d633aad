package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EchoCanvas/cache"
	"EchoCanvas/config"
	"EchoCanvas/core/ai"
	"EchoCanvas/core/audio"
	"EchoCanvas/core/auth"
	"EchoCanvas/core/mixer"
	"EchoCanvas/core/plugin"
	"EchoCanvas/core/youtube"
	"EchoCanvas/db"
	"EchoCanvas/logger"
	"EchoCanvas/repository"
	"EchoCanvas/storage"

	"github.com/gorilla/mux"
)

// corsMiddleware 添加 CORS 头
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+spotifyTokenHeader)
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter registers every route. mixerHandler may be nil.
func NewRouter(apiHandler *APIHandler, mixerHandler *MixerHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/healthz", apiHandler.HealthHandler).Methods(http.MethodGet)

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost, http.MethodOptions)

	// 搜索与字幕
	router.HandleFunc("/api/search", apiHandler.SearchHandler).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/captions/{contentId}", apiHandler.CaptionsHandler).Methods(http.MethodGet, http.MethodOptions)

	// 收藏
	router.HandleFunc("/api/likes/toggle", apiHandler.AuthMiddleware(apiHandler.ToggleLikeHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/likes", apiHandler.AuthMiddleware(apiHandler.ListLikesHandler)).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/likes/ids", apiHandler.AuthMiddleware(apiHandler.LikedIDsHandler)).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/likes/check", apiHandler.AuthMiddleware(apiHandler.CheckLikeHandler)).Methods(http.MethodGet, http.MethodOptions)

	// 上传歌曲
	router.HandleFunc("/api/songs", apiHandler.AuthMiddleware(apiHandler.ListSongsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/songs", apiHandler.AuthMiddleware(apiHandler.SaveSongHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/songs/upload", apiHandler.AuthMiddleware(apiHandler.UploadSongHandler)).Methods(http.MethodPost, http.MethodOptions)

	// AI
	router.HandleFunc("/api/ai/playlist", apiHandler.GeneratePlaylistHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/ai/next-song", apiHandler.NextSongHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/ai/remix", apiHandler.RemixHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/ai/analyze-audio", apiHandler.AnalyzeAudioHandler).Methods(http.MethodPost, http.MethodOptions)

	// Spotify
	router.HandleFunc("/api/spotify/top-tracks", apiHandler.SpotifyTopTracksHandler).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/spotify/playlist", apiHandler.SpotifyCreatePlaylistHandler).Methods(http.MethodPost, http.MethodOptions)

	if mixerHandler != nil {
		router.HandleFunc("/api/mixer/ws", mixerHandler.WebSocketMixerHandler).Methods(http.MethodGet)
	}
	return router
}

// Start connects the stores, wires the handlers and serves until SIGINT or
// SIGTERM.
func Start(cfg *config.Config) error {
	auth.SetSecret(cfg.JWTSecret)

	if err := db.ConnectDB(cfg); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.CloseDB()
	if err := db.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		return fmt.Errorf("failed to connect GORM: %w", err)
	}
	defer db.CloseGormDB()
	if err := db.MigrateSongTables(); err != nil {
		return fmt.Errorf("failed to migrate song tables: %w", err)
	}

	// Redis 和 MinIO 不可用时降级运行
	searchCache := cache.New(nil)
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis 不可用，搜索缓存已禁用", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		searchCache = cache.New(db.RedisClient)
	}

	var audioStore audioUploader
	if err := storage.InitMinio(cfg); err != nil {
		logger.Warn("MinIO 不可用，歌曲上传已禁用", logger.ErrorField(err))
	} else if store := storage.NewAudioStore(); store != nil {
		audioStore = store
	}

	processor := audio.NewFFmpegProcessor(cfg.FFmpegPath)

	search := plugin.NewSearchPluginManager(searchCache)
	search.Register(plugin.NewYouTubePlugin(youtube.NewClient(youtube.ConfigFromApp(cfg))))

	apiHandler := NewAPIHandler(Deps{
		UserRepo:       repository.NewMySQLUserRepository(db.DB),
		LikeRepo:       repository.NewGormLikedSongRepository(db.GormDB),
		SongRepo:       repository.NewGormUploadedSongRepository(db.GormDB),
		Search:         search,
		AI:             ai.NewService(ai.NewClient(ai.ConfigFromApp(cfg))),
		AudioStore:     audioStore,
		AudioProcessor: processor,
	}, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	library := mixer.NewLibrary(cfg.MixerSamplesDir)
	go func() {
		if err := library.Watch(ctx); err != nil {
			logger.Warn("[Mixer] sample watcher stopped", logger.ErrorField(err))
		}
	}()
	mixerHandler := NewMixerHandler(mixer.NewFFmpegLoader(processor), library, cfg.MixerBPM, cfg.UploadDir)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     NewRouter(apiHandler, mixerHandler),
		ReadTimeout: 30 * time.Second,
		// WriteTimeout is left unset so mixer sockets are not cut off.
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
