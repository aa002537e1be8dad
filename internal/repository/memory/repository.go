// Package memory keeps ledger snapshots in process memory. It backs the
// memory storage driver and tests.
package memory

import (
	"context"
	"sync"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
)

// Repository is a key/value snapshot store held in memory.
type Repository struct {
	mu        sync.RWMutex
	providers []models.ProviderStock
	settings  models.Settings
	saves     int
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{}
}

// LoadProviders returns a copy of the last saved provider tree.
func (r *Repository) LoadProviders(ctx context.Context) ([]models.ProviderStock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.providers), nil
}

// SaveProviders replaces the stored provider tree with a copy of providers.
func (r *Repository) SaveProviders(ctx context.Context, providers []models.ProviderStock) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = clone(providers)
	r.saves++
	return nil
}

func (r *Repository) LoadSettings(ctx context.Context) (models.Settings, error) {
	if err := ctx.Err(); err != nil {
		return models.Settings{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings, nil
}

func (r *Repository) SaveSettings(ctx context.Context, settings models.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = settings
	return nil
}

// Saves reports how many provider snapshots were written.
func (r *Repository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

func clone(providers []models.ProviderStock) []models.ProviderStock {
	out := make([]models.ProviderStock, len(providers))
	for i := range providers {
		out[i] = providers[i].Clone()
	}
	return out
}
