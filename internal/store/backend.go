package store

import (
	"context"
	"errors"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

var (
	ErrDuplicateID = errors.New("record id already exists")
	ErrClosed      = errors.New("store is closed")
)

// Backend is the storage contract the retriever and the decay engine work
// against. Get returns (nil, nil) for an unknown ID. Update, Delete and
// IncrementAccess report false when the record no longer exists.
//
// Implementations must serialize mutations of a single record so concurrent
// IncrementAccess and Update calls never lose writes.
type Backend interface {
	Add(ctx context.Context, r *models.Record) error
	Get(ctx context.Context, id string) (*models.Record, error)
	Update(ctx context.Context, id string, p models.Patch) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetAll(ctx context.Context) ([]*models.Record, error)
	IncrementAccess(ctx context.Context, id string) (bool, error)
	FindByContentHash(ctx context.Context, hash string) (*models.Record, error)
	Count(ctx context.Context) (int, error)
	Name() string
	Close() error
}
