package coordinator

import (
	"context"

	"goldroom/internal/application/port"
	"goldroom/internal/domain"
)

type noopRepo struct{}

func NewNoopRepo() port.StateRepository { return &noopRepo{} }

func (n *noopRepo) LoadState(ctx context.Context) (*domain.PersistedState, error) {
	return &domain.PersistedState{}, nil
}

func (n *noopRepo) SaveState(ctx context.Context, st *domain.PersistedState) error {
	return nil
}

func (n *noopRepo) Close() error { return nil }
