package realtime

import (
	"context"
	"log/slog"

	"github.com/iudanet/labsync/pkg/api"
)

// TokenSource выдает access token для подключения
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// URLBuilder строит адрес канала с токеном
type URLBuilder func(accessToken string) (string, error)

// Watcher подключается к комнате документа и передает события присутствия
type Watcher struct {
	tokens TokenSource
	url    URLBuilder
	logger *slog.Logger
}

// NewWatcher creates a new Watcher
func NewWatcher(logger *slog.Logger, tokens TokenSource, url URLBuilder) *Watcher {
	return &Watcher{tokens: tokens, url: url, logger: logger}
}

// Watch присоединяется к документу и вызывает fn для каждого события до отмены контекста
func (w *Watcher) Watch(ctx context.Context, entityType, entityID string, fn func(api.PresenceMessage) error) error {
	token, err := w.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	url, err := w.url(token)
	if err != nil {
		return err
	}

	s, err := Dial(ctx, w.logger, url, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			w.logger.Debug("presence channel close", slog.Any("error", err))
		}
	}()

	if err := s.Join(ctx, entityType, entityID); err != nil {
		return err
	}
	w.logger.Info("watching document",
		slog.String("entity_type", entityType),
		slog.String("entity_id", entityID))
	return s.Watch(ctx, fn)
}
