package sync

import (
	"context"
	"errors"
	"log/slog"

	"github.com/iudanet/labsync/internal/client/storage"
	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/selective"
	"github.com/iudanet/labsync/pkg/api"
)

// maxPullPages ограничивает число страниц за один цикл
const maxPullPages = 1000

func (s *Service) pull(ctx context.Context, token *string, result *SyncResult) error {
	cfg, err := s.store.GetSelectiveConfig(ctx)
	if err != nil {
		return errCycle("load selective config", err)
	}
	state, err := s.store.GetSyncState(ctx)
	if err != nil {
		return errCycle("load sync state", err)
	}

	cursor := state.PullCursor
	filter := models.FilterToAPI(cfg)

	for page := 0; page < maxPullPages; page++ {
		req := api.PullRequest{Filter: filter, Since: cursor, Limit: s.opts.PullLimit}

		var resp *api.PullResponse
		err := s.withToken(ctx, token, func(token string) error {
			var err error
			resp, err = s.api.Pull(ctx, token, req)
			return err
		})
		if err != nil {
			return errCycle("pull", err)
		}

		if err := s.applyPullPage(ctx, cfg, resp.Changes, result); err != nil {
			return errCycle("apply pull page", err)
		}

		progressed := resp.Cursor > cursor
		if progressed {
			cursor = resp.Cursor
		}
		if err := s.updateState(ctx, func(st *models.SyncState) {
			st.PullCursor = cursor
			st.Progress = &models.SyncProgress{Phase: models.PhasePull, Current: result.Pulled, Total: result.Pulled}
		}); err != nil {
			return errCycle("save pull cursor", err)
		}

		if !resp.HasMore || !progressed {
			break
		}
	}

	now := s.now().UTC()
	return s.updateState(ctx, func(st *models.SyncState) {
		st.LastPullAt = &now
	})
}

// applyPullPage применяет страницу серверных изменений.
// Серверная копия сущности с локальными неотправленными правками не применяется:
// вместо этого открывается (или обновляется) конфликт. В PullConflicts считаются только новые конфликты.
func (s *Service) applyPullPage(ctx context.Context, cfg *models.SelectiveSyncConfig, changes []api.RecordDTO, result *SyncResult) error {
	return s.store.Update(ctx, func(tx storage.Tx) error {
		for _, dto := range changes {
			rec := models.RecordFromAPI(dto)

			if !selective.IsEligible(cfg, rec.EntityType, rec.Metadata) {
				continue
			}

			local, err := tx.GetRecord(rec.EntityType, rec.EntityID)
			switch {
			case err == nil:
				if rec.Version <= local.Version {
					continue
				}
			case !errors.Is(err, storage.ErrRecordNotFound):
				return err
			}

			queued, err := tx.PendingForEntity(rec.EntityType, rec.EntityID)
			if err != nil {
				return err
			}
			if len(queued) > 0 {
				head := queued[0]
				conflict, created, err := s.openConflict(tx, head, rec, models.ConflictFromPull)
				if err != nil {
					return err
				}
				head.ConflictID = conflict.ID
				if err := tx.PutPending(head); err != nil {
					return err
				}
				if !created {
					// Конфликт уже открыт (например, push этого цикла): обновлена только серверная сторона
					continue
				}
				result.PullConflicts++
				s.logger.InfoContext(ctx, "pull conflict",
					slog.String("conflict_id", conflict.ID),
					slog.String("change_id", head.ID),
					slog.String("entity", rec.EntityKey()),
					slog.Int64("server_version", rec.Version))
				continue
			}

			if err := tx.PutRecord(rec); err != nil {
				return err
			}
			result.Pulled++
		}
		return nil
	})
}
