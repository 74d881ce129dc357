// Package store persists group configs as opaque blobs. The core never
// patches a stored config; it is replaced wholesale on every edit.
package store

import (
	"context"
	"errors"

	"github.com/hevlin/MediaGroup/internal/domain"
)

var ErrNotFound = errors.New("group config not found")

// ConfigStore is the host's generic config-entry store.
type ConfigStore interface {
	Save(ctx context.Context, cfg *domain.GroupConfig) error
	Load(ctx context.Context, id domain.GroupID) (*domain.GroupConfig, error)
	Delete(ctx context.Context, id domain.GroupID) error
	List(ctx context.Context) ([]*domain.GroupConfig, error)
}
