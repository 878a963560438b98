// Package quota сообщает, сколько места занимает локальное хранилище устройства.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/iudanet/labsync/internal/client/storage"
)

// DefaultWarnRatio доля лимита, после которой выдается предупреждение
const DefaultWarnRatio = 0.9

// Level уровень заполнения
type Level string

const (
	LevelUnlimited Level = "unlimited"
	LevelOK        Level = "ok"
	LevelWarning   Level = "warning"
	LevelExceeded  Level = "exceeded"
)

// ProjectUsage объем вложений одного проекта
type ProjectUsage struct {
	Project string `json:"project"`
	Bytes   int64  `json:"bytes"`
}

// Report сводка занятости хранилища
type Report struct {
	Buckets         []storage.BucketUsage `json:"buckets"`
	Projects        []ProjectUsage        `json:"projects"`
	Level           Level                 `json:"level"`
	UsedBytes       int64                 `json:"used_bytes"`
	DataBytes       int64                 `json:"data_bytes"`
	AttachmentBytes int64                 `json:"attachment_bytes"`
	LimitBytes      int64                 `json:"limit_bytes"`
	Ratio           float64               `json:"ratio"`
}

// Tracker считает занятость хранилища относительно лимита. Только чтение.
type Tracker struct {
	usage     storage.UsageStorage
	logger    *slog.Logger
	limit     int64
	warnRatio float64
}

// NewTracker создает Tracker. limit 0 - без ограничения.
func NewTracker(logger *slog.Logger, usage storage.UsageStorage, limit int64, warnRatio float64) *Tracker {
	if warnRatio <= 0 || warnRatio > 1 {
		warnRatio = DefaultWarnRatio
	}
	return &Tracker{
		usage:     usage,
		logger:    logger,
		limit:     limit,
		warnRatio: warnRatio,
	}
}

// Report собирает текущую сводку
func (t *Tracker) Report(ctx context.Context) (*Report, error) {
	u, err := t.usage.Usage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage usage: %w", err)
	}

	r := &Report{
		Buckets:    u.Buckets,
		Projects:   make([]ProjectUsage, 0, len(u.AttachmentBytes)),
		UsedBytes:  u.FileBytes,
		DataBytes:  u.DataBytes,
		LimitBytes: t.limit,
	}
	for project, n := range u.AttachmentBytes {
		r.Projects = append(r.Projects, ProjectUsage{Project: project, Bytes: n})
		r.AttachmentBytes += n
	}
	sort.Slice(r.Projects, func(i, j int) bool {
		if r.Projects[i].Bytes != r.Projects[j].Bytes {
			return r.Projects[i].Bytes > r.Projects[j].Bytes
		}
		return r.Projects[i].Project < r.Projects[j].Project
	})

	r.Level = t.level(r)
	if r.Level == LevelWarning || r.Level == LevelExceeded {
		t.logger.WarnContext(ctx, "local storage quota",
			slog.String("level", string(r.Level)),
			slog.Int64("used_bytes", r.UsedBytes),
			slog.Int64("limit_bytes", r.LimitBytes))
	}
	return r, nil
}

func (t *Tracker) level(r *Report) Level {
	if t.limit <= 0 {
		return LevelUnlimited
	}
	r.Ratio = float64(r.UsedBytes) / float64(t.limit)
	switch {
	case r.UsedBytes >= t.limit:
		return LevelExceeded
	case r.Ratio >= t.warnRatio:
		return LevelWarning
	default:
		return LevelOK
	}
}
