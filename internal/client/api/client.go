package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iudanet/labsync/internal/syncerr"
	"github.com/iudanet/labsync/pkg/api"
)

// DefaultTimeout таймаут HTTP запросов по умолчанию
const DefaultTimeout = 30 * time.Second

// ErrUnauthorized сервер отклонил токен (HTTP 401)
var ErrUnauthorized = errors.New("unauthorized")

// StatusError ответ сервера с кодом вне 2xx
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Is сопоставляет 401 с ErrUnauthorized
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// Option настраивает Client
type Option func(*Client)

// WithTimeout задает таймаут запросов
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient подменяет HTTP клиент (для тестов)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger задает логгер запросов
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL возвращает адрес сервера
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", "", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// GetSalt получает public_salt пользователя
func (c *Client) GetSalt(ctx context.Context, username string) (*api.SaltResponse, error) {
	var resp api.SaltResponse
	path := "/api/v1/auth/salt/" + url.PathEscape(username)
	if err := c.doRequest(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("get salt request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Refresh обменивает refresh token на новую пару токенов
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", refreshToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Logout отзывает refresh tokens устройства, а с all - всех устройств пользователя
func (c *Client) Logout(ctx context.Context, accessToken string, all bool) error {
	path := "/api/v1/auth/logout"
	if all {
		path += "?all=true"
	}
	if err := c.doRequest(ctx, http.MethodPost, path, accessToken, nil, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// Push отправляет пакет локальных изменений
func (c *Client) Push(ctx context.Context, accessToken string, req api.PushRequest) (*api.PushResponse, error) {
	var resp api.PushResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync/push", accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	return &resp, nil
}

// Pull получает серверные изменения после курсора
func (c *Client) Pull(ctx context.Context, accessToken string, req api.PullRequest) (*api.PullResponse, error) {
	var resp api.PullResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync/pull", accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}
	return &resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// DocumentsURL адрес WebSocket канала присутствия
func (c *Client) DocumentsURL(accessToken string) (string, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/documents/ws")
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// doRequest выполняет HTTP запрос.
// Транспортные ошибки, 429 и 5xx классифицируются как сетевые (повторяемые).
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return syncerr.Unreachable(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.logger.DebugContext(ctx, "api request",
		slog.String("method", method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return syncerr.Network(fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && (errResp.Message != "" || errResp.Error != "") {
			statusErr.Message = errResp.Message
			if statusErr.Message == "" {
				statusErr.Message = errResp.Error
			}
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return syncerr.Network(statusErr)
		}
		return statusErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
