package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/labsync/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketAuth      = []byte("auth")
	bucketMetadata  = []byte("metadata")
	bucketPending   = []byte("pending")
	bucketConflicts = []byte("conflicts")
	bucketRecords   = []byte("records")

	allBuckets = [][]byte{bucketAuth, bucketMetadata, bucketPending, bucketConflicts, bucketRecords}
)

// openTimeout ожидание файловой блокировки, если БД уже открыта другим процессом (например, daemon)
const openTimeout = 2 * time.Second

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB
}

var _ storage.SyncStorage = (*Storage)(nil)
var _ storage.AuthStorage = (*Storage)(nil)
var _ storage.UsageStorage = (*Storage)(nil)

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Файл содержит токены сессии, поэтому доступен только владельцу
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path возвращает путь к файлу БД
func (s *Storage) Path() string {
	return s.db.Path()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// Update выполняет fn в транзакции записи
func (s *Storage) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// View выполняет fn в транзакции чтения
func (s *Storage) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.view(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (s *Storage) update(fn func(tx *bbolt.Tx) error) error {
	err := s.db.Update(fn)
	if err == bbolt.ErrDatabaseNotOpen {
		return storage.ErrStorageClosed
	}
	return err
}

func (s *Storage) view(fn func(tx *bbolt.Tx) error) error {
	err := s.db.View(fn)
	if err == bbolt.ErrDatabaseNotOpen {
		return storage.ErrStorageClosed
	}
	return err
}
