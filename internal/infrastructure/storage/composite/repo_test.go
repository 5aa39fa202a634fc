package composite

import (
	"context"
	"errors"
	"testing"

	"goldroom/internal/domain"
	"goldroom/internal/infrastructure/storage/memory"
)

type failingRepo struct{ err error }

func (f failingRepo) LoadState(ctx context.Context) (*domain.PersistedState, error) {
	return nil, f.err
}

func (f failingRepo) SaveState(ctx context.Context, st *domain.PersistedState) error { return f.err }

func (f failingRepo) Close() error { return nil }

func TestCompositeSaveFansOut(t *testing.T) {
	a, b := memory.New(), memory.New()
	boom := errors.New("down")
	r := New(a, nil, failingRepo{err: boom}, b)
	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}

	limit := 5
	err := r.SaveState(context.Background(), &domain.PersistedState{LimitBulan: &limit})
	if !errors.Is(err, boom) {
		t.Fatalf("expected first error, got %v", err)
	}
	for i, repo := range []*memory.Repo{a, b} {
		st, _ := repo.LoadState(context.Background())
		if st.LimitBulan == nil || *st.LimitBulan != 5 {
			t.Errorf("backend %d not written", i)
		}
	}
}

func TestCompositeLoadFirstNonEmpty(t *testing.T) {
	empty, full, later := memory.New(), memory.New(), memory.New()
	limit, other := 7, 9
	_ = full.SaveState(context.Background(), &domain.PersistedState{LimitBulan: &limit})
	_ = later.SaveState(context.Background(), &domain.PersistedState{LimitBulan: &other})

	r := New(empty, full, later)
	st, err := r.LoadState(context.Background())
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if st.LimitBulan == nil || *st.LimitBulan != 7 {
		t.Errorf("expected state from second backend, got %+v", st)
	}

	// a failure after state was found does not matter
	r = New(full, failingRepo{err: errors.New("down")})
	if _, err := r.LoadState(context.Background()); err != nil {
		t.Errorf("LoadState after found state: %v", err)
	}
}

func TestCompositeLoadFailureBeforeStateIsError(t *testing.T) {
	boom := errors.New("transient")
	empty := memory.New()

	for name, r := range map[string]*Repo{
		"failing then empty": New(failingRepo{err: boom}, empty),
		"empty then failing": New(empty, failingRepo{err: boom}),
		"only failing":       New(failingRepo{err: boom}),
	} {
		st, err := r.LoadState(context.Background())
		if !errors.Is(err, boom) {
			t.Errorf("%s: expected load error, got st=%+v err=%v", name, st, err)
		}
	}
}
