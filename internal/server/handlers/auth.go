package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/labsync/internal/crypto"
	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/server/jwt"
	"github.com/iudanet/labsync/internal/server/storage"
	"github.com/iudanet/labsync/internal/validation"
	"github.com/iudanet/labsync/pkg/api"
)

// cursorPalette цвета, которые назначаются пользователям без явного выбора
var cursorPalette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#008080",
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger       *slog.Logger
	userStorage  storage.UserStorage
	tokenStorage storage.TokenStorage
	tokens       *jwt.Service
	now          func() time.Time
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, userStorage storage.UserStorage, tokenStorage storage.TokenStorage, tokens *jwt.Service) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		userStorage:  userStorage,
		tokenStorage: tokenStorage,
		tokens:       tokens,
		now:          time.Now,
	}
}

// Register обрабатывает POST /api/v1/auth/register
// Регистрация нового пользователя
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode register request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		h.logger.WarnContext(ctx, "invalid username", slog.String("username", req.Username), slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateDisplayName(req.DisplayName); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateColor(req.Color); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	// Проверка обязательных полей
	if req.AuthKeyHash == "" {
		sendError(h.logger, w, "auth_key_hash is required", http.StatusBadRequest)
		return
	}
	if req.PublicSalt == "" {
		sendError(h.logger, w, "public_salt is required", http.StatusBadRequest)
		return
	}

	id := uuid.New()
	userID := id.String()

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}
	color := req.Color
	if color == "" {
		color = cursorPalette[int(id[0])%len(cursorPalette)]
	}

	user := &models.User{
		ID:          userID,
		Username:    req.Username,
		DisplayName: displayName,
		Color:       color,
		AuthKeyHash: req.AuthKeyHash, // SHA256 хеш auth_key от клиента
		PublicSalt:  req.PublicSalt,
		CreatedAt:   h.now(),
	}

	if err := h.userStorage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "user already exists", slog.String("username", req.Username))
			sendError(h.logger, w, "username already taken", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("username", req.Username),
		slog.String("user_id", userID))

	sendJSON(h.logger, w, api.RegisterResponse{
		UserID:  userID,
		Message: "User registered successfully",
	}, http.StatusCreated)
}

// GetSalt обрабатывает GET /api/v1/auth/salt/{username}
// Получение public_salt пользователя
func (h *AuthHandler) GetSalt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := r.PathValue("username")
	if err := validation.ValidateUsername(username); err != nil {
		h.logger.WarnContext(ctx, "invalid username", slog.String("username", username), slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.userStorage.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "user not found", slog.String("username", username))
			sendError(h.logger, w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.SaltResponse{PublicSalt: user.PublicSalt}, http.StatusOK)
}

// Login обрабатывает POST /api/v1/auth/login
// Аутентификация пользователя
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode login request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.AuthKeyHash == "" {
		sendError(h.logger, w, "auth_key_hash is required", http.StatusBadRequest)
		return
	}

	user, err := h.userStorage.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found", slog.String("username", req.Username))
			sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !crypto.HashesEqual(user.AuthKeyHash, req.AuthKeyHash) {
		h.logger.WarnContext(ctx, "login failed: invalid auth key", slog.String("username", req.Username))
		sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	resp, err := h.issueTokens(r, user, req.DeviceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue tokens", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.userStorage.UpdateLastLogin(ctx, user.ID, h.now()); err != nil {
		// Не критичная ошибка, логируем но не прерываем
		h.logger.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	h.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("username", req.Username),
		slog.String("user_id", user.ID),
		slog.String("device_id", req.DeviceID))

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Refresh обрабатывает POST /api/v1/auth/refresh
// Обновление access token с помощью refresh token из заголовка Authorization
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refreshToken, ok := bearerToken(r)
	if !ok {
		sendError(h.logger, w, "refresh token is required", http.StatusUnauthorized)
		return
	}

	storedToken, err := h.tokenStorage.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			h.logger.WarnContext(ctx, "refresh token not found")
			sendError(h.logger, w, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get refresh token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	if storedToken.IsExpired(h.now()) {
		h.logger.WarnContext(ctx, "refresh token expired", slog.String("user_id", storedToken.UserID))
		_ = h.tokenStorage.DeleteRefreshToken(ctx, refreshToken)
		sendError(h.logger, w, "refresh token expired", http.StatusUnauthorized)
		return
	}

	user, err := h.userStorage.GetUserByID(ctx, storedToken.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Ротация: старый refresh token больше не действителен
	if err := h.tokenStorage.DeleteRefreshToken(ctx, refreshToken); err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
		h.logger.WarnContext(ctx, "failed to delete old refresh token", slog.Any("error", err))
	}

	resp, err := h.issueTokens(r, user, storedToken.DeviceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue tokens", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "tokens refreshed successfully", slog.String("user_id", user.ID))

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout
// Удаляет refresh tokens текущего устройства, а с ?all=true - всех устройств пользователя.
// Требует AuthMiddleware.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := GetClaims(ctx)
	if !ok {
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	deviceID := claims.DeviceID
	if r.URL.Query().Get("all") == "true" {
		deviceID = ""
	}

	deleted, err := h.tokenStorage.DeleteDeviceTokens(ctx, claims.UserID, deviceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to delete user tokens", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged out successfully",
		slog.String("user_id", claims.UserID),
		slog.String("device_id", deviceID),
		slog.Int("tokens_deleted", deleted))

	w.WriteHeader(http.StatusNoContent)
}

// issueTokens создает пару access/refresh и сохраняет refresh token
func (h *AuthHandler) issueTokens(r *http.Request, user *models.User, deviceID string) (*api.TokenResponse, error) {
	accessToken, expiresIn, err := h.tokens.GenerateAccessToken(jwt.Subject{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Color:       user.Color,
		DeviceID:    deviceID,
	})
	if err != nil {
		return nil, err
	}

	refreshToken, expiresAt, err := h.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := h.tokenStorage.SaveRefreshToken(r.Context(), &models.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		DeviceID:  deviceID,
		ExpiresAt: expiresAt,
		CreatedAt: h.now(),
	}); err != nil {
		return nil, err
	}

	return &api.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		ExpiresIn:    expiresIn,
	}, nil
}
