package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/labsync/internal/client/storage"
	"github.com/iudanet/labsync/internal/models"
)

// Usage считает занятость хранилища по bucket'ам и объем вложений по проектам
func (s *Storage) Usage(ctx context.Context) (*storage.Usage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u := &storage.Usage{AttachmentBytes: map[string]int64{}}
	err := s.view(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			bu := storage.BucketUsage{Name: string(name)}
			err := tx.Bucket(name).ForEach(func(k, v []byte) error {
				bu.Keys++
				bu.Bytes += int64(len(k) + len(v))
				return nil
			})
			if err != nil {
				return err
			}
			u.Buckets = append(u.Buckets, bu)
			u.DataBytes += bu.Bytes
		}

		// Вложения считаем по последней известной версии: серверная копия, поверх нее очередь
		sizes := map[string]models.EntityMetadata{}
		err := tx.Bucket(bucketRecords).ForEach(func(_, v []byte) error {
			var r models.Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if !r.Deleted {
				sizes[r.EntityKey()] = r.Metadata
			}
			return nil
		})
		if err != nil {
			return err
		}
		pending, err := (&boltTx{tx: tx}).allPending()
		if err != nil {
			return err
		}
		sort.Slice(pending, func(i, j int) bool { return pending[i].Seq < pending[j].Seq })
		for _, c := range pending {
			if c.Operation == models.OpDelete {
				delete(sizes, c.EntityKey())
			} else {
				sizes[c.EntityKey()] = c.Metadata
			}
		}
		for _, m := range sizes {
			if m.AttachmentSize > 0 {
				u.AttachmentBytes[m.Project] += m.AttachmentSize
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute storage usage: %w", err)
	}

	if info, err := os.Stat(s.db.Path()); err == nil {
		u.FileBytes = info.Size()
	}

	return u, nil
}
