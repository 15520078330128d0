package domain

import (
	"context"
	"time"
)

// CatalogFetcher downloads the raw catalog document
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) ([]byte, error)
}

// CatalogStore reads and writes the local catalog copy
type CatalogStore interface {
	Exists(path string) (bool, error)
	Load(path string) (*CatalogSnapshot, error)
	Decode(path string, raw []byte) (*CatalogSnapshot, error)
	WriteRaw(path string, raw []byte) error
	Save(path string, snapshot *CatalogSnapshot) error
}

// SnapshotCache holds parsed snapshots in process, keyed by catalog path
type SnapshotCache interface {
	Get(ctx context.Context, key string) (*CatalogSnapshot, error)
	Set(ctx context.Context, key string, snapshot *CatalogSnapshot, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
}
