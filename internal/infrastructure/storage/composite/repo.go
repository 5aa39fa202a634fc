package composite

import (
	"context"
	"fmt"

	"goldroom/internal/application/port"
	"goldroom/internal/domain"
)

type Repo struct {
	repos []port.StateRepository
}

func New(repos ...port.StateRepository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.StateRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) Len() int { return len(r.repos) }

// LoadState returns the state of the first backend that has any. A backend
// failing before any state was found is an error: starting empty would let the
// next save overwrite the history it could not read.
func (r *Repo) LoadState(ctx context.Context) (*domain.PersistedState, error) {
	for i, repo := range r.repos {
		st, err := repo.LoadState(ctx)
		if err != nil {
			return nil, fmt.Errorf("backend %d: %w", i, err)
		}
		if !st.Empty() {
			return st, nil
		}
	}
	return &domain.PersistedState{}, nil
}

func (r *Repo) SaveState(ctx context.Context, st *domain.PersistedState) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveState(ctx, st); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes backends in reverse order.
func (r *Repo) Close() error {
	var firstErr error
	for i := len(r.repos) - 1; i >= 0; i-- {
		if err := r.repos[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.StateRepository = (*Repo)(nil)
