package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/labsync/internal/models"
)

const (
	keyDeviceID        = "device_id"
	keySyncState       = "sync_state"
	keySelectiveConfig = "selective_config"
)

// DeviceID возвращает идентификатор устройства, создавая его при первом обращении
func (s *Storage) DeviceID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var id string
	err := s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if v := bucket.Get([]byte(keyDeviceID)); v != nil {
			id = string(v)
			return nil
		}
		id = uuid.NewString()
		return bucket.Put([]byte(keyDeviceID), []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("failed to get device id: %w", err)
	}

	return id, nil
}

// GetSyncState возвращает сохраненное состояние синхронизации
func (s *Storage) GetSyncState(ctx context.Context) (*models.SyncState, error) {
	state := &models.SyncState{Status: models.StatusIdle, IsOnline: true, Errors: []models.SyncError{}}
	found, err := s.getJSON(ctx, keySyncState, state)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	if !found {
		return state, nil
	}
	if state.Errors == nil {
		state.Errors = []models.SyncError{}
	}
	return state, nil
}

// SaveSyncState сохраняет состояние синхронизации
func (s *Storage) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if err := s.putJSON(ctx, keySyncState, state); err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

// GetSelectiveConfig возвращает конфигурацию селективной синхронизации
func (s *Storage) GetSelectiveConfig(ctx context.Context) (*models.SelectiveSyncConfig, error) {
	cfg := &models.SelectiveSyncConfig{}
	if _, err := s.getJSON(ctx, keySelectiveConfig, cfg); err != nil {
		return nil, fmt.Errorf("failed to get selective sync config: %w", err)
	}
	return cfg, nil
}

// SaveSelectiveConfig сохраняет конфигурацию селективной синхронизации
func (s *Storage) SaveSelectiveConfig(ctx context.Context, cfg *models.SelectiveSyncConfig) error {
	if err := s.putJSON(ctx, keySelectiveConfig, cfg); err != nil {
		return fmt.Errorf("failed to save selective sync config: %w", err)
	}
	return nil
}

func (s *Storage) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var found bool
	err := s.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMetadata).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, dst)
	})
	return found, err
}

func (s *Storage) putJSON(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMetadata).Put([]byte(key), data)
	})
}
