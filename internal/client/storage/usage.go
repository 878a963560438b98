package storage

import "context"

// BucketUsage занятость одной области хранилища
type BucketUsage struct {
	Name  string `json:"name"`
	Keys  int    `json:"keys"`
	Bytes int64  `json:"bytes"` // суммарный размер ключей и значений
}

// Usage сводка занятости локального хранилища
type Usage struct {
	Buckets         []BucketUsage    `json:"buckets"`
	AttachmentBytes map[string]int64 `json:"attachment_bytes"` // по проектам, по метаданным известных записей
	FileBytes       int64            `json:"file_bytes"`       // размер файла БД на диске
	DataBytes       int64            `json:"data_bytes"`       // сумма Bytes по всем областям
}

//go:generate moq -out usage_mock.go . UsageStorage

// UsageStorage источник данных для учета квоты
type UsageStorage interface {
	Usage(ctx context.Context) (*Usage, error)
}
