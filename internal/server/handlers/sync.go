package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/payload"
	"github.com/iudanet/labsync/internal/server/storage"
	"github.com/iudanet/labsync/internal/syncerr"
	"github.com/iudanet/labsync/internal/validation"
	"github.com/iudanet/labsync/pkg/api"
)

// MaxPushBatch максимальное количество изменений в одном push
const MaxPushBatch = 500

// SyncHandler handles synchronization requests
type SyncHandler struct {
	logger  *slog.Logger
	storage storage.RecordStorage
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, storage storage.RecordStorage) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		storage: storage,
	}
}

// HandlePush обрабатывает POST /api/v1/sync/push.
// Каждое изменение проверяется и применяется независимо: ошибка одного не прерывает пакет.
func (h *SyncHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode push request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Changes) > MaxPushBatch {
		sendError(h.logger, w, fmt.Sprintf("too many changes in one push (max %d)", MaxPushBatch), http.StatusRequestEntityTooLarge)
		return
	}

	actor := storage.Actor{UserID: userID, DeviceID: req.DeviceID}
	if claims, ok := GetClaims(ctx); ok && claims.DeviceID != "" {
		actor.DeviceID = claims.DeviceID
	}

	resp := api.PushResponse{
		Applied:   make([]api.AppliedChange, 0, len(req.Changes)),
		Conflicts: []api.ConflictInfo{},
		Rejected:  []api.RejectedChange{},
	}

	for _, in := range req.Changes {
		change := models.ChangeFromAPI(in)

		if err := h.validate(in, change); err != nil {
			h.logger.WarnContext(ctx, "change rejected",
				slog.String("change_id", in.ID),
				slog.Any("error", err))
			resp.Rejected = append(resp.Rejected, api.RejectedChange{
				ChangeID: in.ID,
				Error:    string(syncerr.KindValidation),
				Message:  err.Error(),
			})
			continue
		}

		result, err := h.storage.ApplyChange(ctx, actor, change)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to apply change",
				slog.String("change_id", change.ID),
				slog.String("entity", change.EntityKey()),
				slog.Any("error", err))
			resp.Rejected = append(resp.Rejected, api.RejectedChange{
				ChangeID: change.ID,
				Error:    string(syncerr.KindInternal),
				Message:  "failed to apply change",
			})
			continue
		}

		if result.Outcome == models.OutcomeConflict {
			current := result.Record
			h.logger.InfoContext(ctx, "version conflict",
				slog.String("change_id", change.ID),
				slog.String("entity", change.EntityKey()),
				slog.Int64("claimed_version", change.ClaimedVersion()),
				slog.Int64("server_version", current.Version))
			resp.Conflicts = append(resp.Conflicts, api.ConflictInfo{
				ServerUpdatedAt: current.UpdatedAt,
				ServerData:      current.Payload,
				ServerMetadata:  models.MetadataToAPI(current.Metadata),
				ChangeID:        change.ID,
				EntityType:      change.EntityType,
				EntityID:        change.EntityID,
				FieldConflicts:  models.FieldConflictsToAPI(payload.Diff(change.Payload, current.Payload)),
				ServerVersion:   current.Version,
				ServerDeleted:   current.Deleted,
			})
			continue
		}

		resp.Applied = append(resp.Applied, api.AppliedChange{
			UpdatedAt:  result.Record.UpdatedAt,
			ChangeID:   change.ID,
			EntityType: change.EntityType,
			EntityID:   change.EntityID,
			Outcome:    api.Outcome(result.Outcome),
			Version:    result.Record.Version,
		})
	}

	h.logger.InfoContext(ctx, "push processed",
		slog.String("user_id", userID),
		slog.String("device_id", actor.DeviceID),
		slog.Int("applied", len(resp.Applied)),
		slog.Int("conflicts", len(resp.Conflicts)),
		slog.Int("rejected", len(resp.Rejected)))

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// validate проверяет форму изменения и согласованность заявленной версии
func (h *SyncHandler) validate(in api.Change, change *models.PendingChange) error {
	if err := validation.ValidateChange(change); err != nil {
		return err
	}
	if in.Version != 0 && in.Version != change.ClaimedVersion() {
		return syncerr.Validation(change.ID, "version %d does not match base_version %d", in.Version, in.BaseVersion)
	}
	return nil
}

// HandlePull обрабатывает POST /api/v1/sync/pull.
// Возвращает сущности, измененные после курсора, с учетом фильтра устройства.
func (h *SyncHandler) HandlePull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode pull request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Since < 0 {
		sendError(h.logger, w, "since must not be negative", http.StatusBadRequest)
		return
	}

	page, err := h.storage.ListChanges(ctx, req.Since, models.FilterFromAPI(req.Filter), req.Limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list changes", slog.Any("error", err), slog.String("user_id", userID))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.PullResponse{
		Changes: make([]api.RecordDTO, 0, len(page.Records)),
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	}
	for _, rec := range page.Records {
		resp.Changes = append(resp.Changes, models.RecordToAPI(rec))
	}

	h.logger.InfoContext(ctx, "pull processed",
		slog.String("user_id", userID),
		slog.Int64("since", req.Since),
		slog.Int64("cursor", page.Cursor),
		slog.Int("changes", len(resp.Changes)))

	sendJSON(h.logger, w, resp, http.StatusOK)
}
