package memory

import (
	"context"
	"maps"
	"sync"

	"goldroom/internal/application/port"
	"goldroom/internal/domain"
	"goldroom/internal/infrastructure/storage"
)

// Repo keeps the encoded record in process memory. Used when no backend is
// configured, and in tests.
type Repo struct {
	mu sync.RWMutex
	kv map[string]string
}

func New() *Repo {
	return &Repo{kv: make(map[string]string)}
}

func (r *Repo) LoadState(ctx context.Context) (*domain.PersistedState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return storage.Decode(r.kv)
}

func (r *Repo) SaveState(ctx context.Context, st *domain.PersistedState) error {
	kv, err := storage.Encode(st)
	if err != nil {
		return err
	}
	r.mu.Lock()
	maps.Copy(r.kv, kv)
	r.mu.Unlock()
	return nil
}

func (r *Repo) Close() error { return nil }

var _ port.StateRepository = (*Repo)(nil)
