package boltdb

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/labsync/internal/client/storage"
	"github.com/iudanet/labsync/internal/models"
)

// boltTx реализует storage.Tx поверх транзакции BoltDB.
// pending хранится по ID изменения, records по ключу сущности, conflicts по ID конфликта.
type boltTx struct {
	tx *bbolt.Tx
}

func (t *boltTx) GetPending(id string) (*models.PendingChange, error) {
	data := t.tx.Bucket(bucketPending).Get([]byte(id))
	if data == nil {
		return nil, storage.ErrChangeNotFound
	}
	var c models.PendingChange
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending change %s: %w", id, err)
	}
	return &c, nil
}

func (t *boltTx) ListPending() ([]*models.PendingChange, error) {
	changes, err := t.allPending()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(changes, func(i, j int) bool {
		ri, rj := changes[i].Priority.Rank(), changes[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return changes[i].Seq < changes[j].Seq
	})
	return changes, nil
}

func (t *boltTx) PendingForEntity(entityType, entityID string) ([]*models.PendingChange, error) {
	all, err := t.allPending()
	if err != nil {
		return nil, err
	}
	out := make([]*models.PendingChange, 0, 1)
	for _, c := range all {
		if c.EntityType == entityType && c.EntityID == entityID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (t *boltTx) allPending() ([]*models.PendingChange, error) {
	var out []*models.PendingChange
	err := t.tx.Bucket(bucketPending).ForEach(func(k, v []byte) error {
		var c models.PendingChange
		if err := json.Unmarshal(v, &c); err != nil {
			return fmt.Errorf("failed to unmarshal pending change %s: %w", k, err)
		}
		out = append(out, &c)
		return nil
	})
	return out, err
}

func (t *boltTx) PutPending(change *models.PendingChange) error {
	bucket := t.tx.Bucket(bucketPending)
	if change.Seq == 0 {
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate queue sequence: %w", err)
		}
		change.Seq = seq
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal pending change: %w", err)
	}
	if err := bucket.Put([]byte(change.ID), data); err != nil {
		return fmt.Errorf("failed to save pending change: %w", err)
	}
	return nil
}

func (t *boltTx) DeletePending(id string) error {
	bucket := t.tx.Bucket(bucketPending)
	if bucket.Get([]byte(id)) == nil {
		return storage.ErrChangeNotFound
	}
	return bucket.Delete([]byte(id))
}

func (t *boltTx) GetRecord(entityType, entityID string) (*models.Record, error) {
	data := t.tx.Bucket(bucketRecords).Get([]byte(models.EntityKey(entityType, entityID)))
	if data == nil {
		return nil, storage.ErrRecordNotFound
	}
	var r models.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &r, nil
}

func (t *boltTx) ListRecords() ([]*models.Record, error) {
	var out []*models.Record
	err := t.tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
		var r models.Record
		if err := json.Unmarshal(v, &r); err != nil {
			return fmt.Errorf("failed to unmarshal record %s: %w", k, err)
		}
		out = append(out, &r)
		return nil
	})
	return out, err
}

func (t *boltTx) PutRecord(record *models.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return t.tx.Bucket(bucketRecords).Put([]byte(record.EntityKey()), data)
}

func (t *boltTx) GetConflict(id string) (*models.SyncConflict, error) {
	data := t.tx.Bucket(bucketConflicts).Get([]byte(id))
	if data == nil {
		return nil, storage.ErrConflictNotFound
	}
	var c models.SyncConflict
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conflict %s: %w", id, err)
	}
	return &c, nil
}

func (t *boltTx) OpenConflictForEntity(entityType, entityID string) (*models.SyncConflict, error) {
	open, err := t.ListConflicts(true)
	if err != nil {
		return nil, err
	}
	for _, c := range open {
		if c.EntityType == entityType && c.EntityID == entityID {
			return c, nil
		}
	}
	return nil, storage.ErrConflictNotFound
}

func (t *boltTx) ListConflicts(openOnly bool) ([]*models.SyncConflict, error) {
	var out []*models.SyncConflict
	err := t.tx.Bucket(bucketConflicts).ForEach(func(k, v []byte) error {
		var c models.SyncConflict
		if err := json.Unmarshal(v, &c); err != nil {
			return fmt.Errorf("failed to unmarshal conflict %s: %w", k, err)
		}
		if openOnly && !c.IsOpen() {
			return nil
		}
		out = append(out, &c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DetectedAt.Before(out[j].DetectedAt) })
	return out, nil
}

func (t *boltTx) PutConflict(conflict *models.SyncConflict) error {
	data, err := json.Marshal(conflict)
	if err != nil {
		return fmt.Errorf("failed to marshal conflict: %w", err)
	}
	return t.tx.Bucket(bucketConflicts).Put([]byte(conflict.ID), data)
}
