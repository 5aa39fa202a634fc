package port

import (
	"context"

	"goldroom/internal/domain"
)

// StateRepository is the persistence gateway for the coordinator state.
type StateRepository interface {
	// LoadState returns the stored state, or an empty state if nothing was saved yet.
	LoadState(ctx context.Context) (*domain.PersistedState, error)

	// SaveState writes every key of the record as one batch.
	SaveState(ctx context.Context, st *domain.PersistedState) error

	Close() error
}
