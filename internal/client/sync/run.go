package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iudanet/labsync/internal/syncerr"
)

// DefaultTickInterval период фоновой синхронизации
const DefaultTickInterval = 30 * time.Second

// SetTickInterval меняет период фоновой синхронизации; применяется со следующего тика
func (s *Service) SetTickInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultTickInterval
	}
	s.interval.Store(int64(d))
}

// TickInterval текущий период фоновой синхронизации
func (s *Service) TickInterval() time.Duration {
	d := time.Duration(s.interval.Load())
	if d <= 0 {
		return DefaultTickInterval
	}
	return d
}

// Run запускает фоновую синхронизацию до отмены контекста
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	s.SetTickInterval(interval)
	s.logger.InfoContext(ctx, "background sync started", slog.Duration("interval", s.TickInterval()))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(context.WithoutCancel(ctx), "background sync stopped")
			return nil
		case <-timer.C:
			if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "background sync tick failed", slog.Any("error", err))
			}
			timer.Reset(s.TickInterval())
		}
	}
}

// Tick выполняет цикл синхронизации. Pull без локальных изменений выполняется тоже:
// сервер мог получить правки других устройств. В offline тик только проверяет
// доступность сервера и при успехе возвращает устройство в онлайн.
func (s *Service) Tick(ctx context.Context) error {
	state, err := s.State(ctx)
	if err != nil {
		return err
	}
	if state.AuthRequired {
		return nil
	}
	if !state.IsOnline {
		if _, err := s.api.Health(ctx); err != nil {
			s.logger.DebugContext(ctx, "server still unreachable", slog.Any("error", err))
			return nil
		}
		if err := s.SetOnline(ctx, true); err != nil {
			return err
		}
	}

	_, err = s.TriggerSync(ctx)
	if errors.Is(err, syncerr.ErrOffline) {
		return nil
	}
	return err
}
