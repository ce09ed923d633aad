package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"EchoCanvas/core/auth"
	"EchoCanvas/logger"
	"EchoCanvas/model"
	"EchoCanvas/repository"
)

type contextKey string

const (
	userIDKey   contextKey = "userID"
	usernameKey contextKey = "username"
)

// LoginHandler handles user login requests
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.Error("[Login] 解析请求体失败", logger.ErrorField(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username/Email and password are required")
		return
	}

	// 查询用户 - 支持用户名或邮箱登录
	var user *model.User
	var err error
	if strings.Contains(req.Identifier, "@") {
		user, err = h.userRepo.GetUserByEmail(r.Context(), req.Identifier)
	} else {
		user, err = h.userRepo.GetUserByUsername(r.Context(), req.Identifier)
	}
	if err != nil {
		logger.Error("[Login] 查询用户失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn("[Login] 用户名或密码错误", logger.String("identifier", req.Identifier))
		writeError(w, http.StatusUnauthorized, "Invalid username/email or password")
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		logger.Error("[Login] 生成Token失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("[Login] 登录成功", logger.String("username", user.Username))
	writeJSON(w, http.StatusOK, model.AuthResponse{Token: token, User: user})
}

// RegisterHandler handles user registration requests
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Password == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Username, password and email are required")
		return
	}
	if strings.Contains(req.Username, "@") {
		writeError(w, http.StatusBadRequest, "Username must not contain '@'")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("[Register] 密码加密失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
	}
	userID, err := h.userRepo.CreateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			logger.Warn("[Register] 用户名或邮箱已存在",
				logger.String("username", req.Username),
				logger.String("email", req.Email))
			writeError(w, http.StatusConflict, "Username or email already exists")
			return
		}
		logger.Error("[Register] 创建用户失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	user.ID = userID

	token, err := auth.GenerateToken(userID, user.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	logger.Info("[Register] 注册成功", logger.String("username", user.Username))
	writeJSON(w, http.StatusCreated, model.AuthResponse{Token: token, User: user})
}

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), claims)))
	}
}

func withUser(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, userIDKey, claims.UserID)
	return context.WithValue(ctx, usernameKey, claims.Username)
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userIDKey).(int64)
	if !ok {
		return 0, errors.New("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(usernameKey).(string)
	if !ok {
		return "", errors.New("username not found in context")
	}
	return username, nil
}
