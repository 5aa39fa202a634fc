package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"goldroom/internal/application/port"
	"goldroom/internal/domain"
	"goldroom/internal/infrastructure/storage"

	"github.com/redis/go-redis/v9"
)

type Repo struct {
	rdb        *redis.Client
	prefix     string
	ttl        time.Duration
	keyState   string // prefix + ":state"
	notifyChan string
}

// StateNotice is published after every save.
type StateNotice struct {
	TsMs    int64 `json:"ts_ms"`
	History int   `json:"history"`
	Usd     int   `json:"usd"`
	Limit   int   `json:"limit"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, notifyChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "goldroom"
	}
	if strings.TrimSpace(notifyChan) == "" {
		notifyChan = prefix + ":state:pub"
	}
	return &Repo{
		rdb:        rdb,
		prefix:     prefix,
		ttl:        ttl,
		keyState:   prefix + ":state",
		notifyChan: notifyChan,
	}
}

func (r *Repo) LoadState(ctx context.Context) (*domain.PersistedState, error) {
	kv, err := r.rdb.HGetAll(ctx, r.keyState).Result()
	if err != nil {
		return nil, err
	}
	return storage.Decode(kv)
}

// SaveState writes the whole record as one hash in a single pipeline, then
// publishes a StateNotice.
func (r *Repo) SaveState(ctx context.Context, st *domain.PersistedState) error {
	kv, err := storage.Encode(st)
	if err != nil {
		return err
	}

	values := make([]any, 0, len(kv)*2)
	for _, k := range storage.Keys {
		values = append(values, k, kv[k])
	}

	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyState, values...)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyState, r.ttl)
	}
	pipe.Publish(ctx, r.notifyChan, noticeFor(st, time.Now()))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) Close() error { return nil }

func noticeFor(st *domain.PersistedState, now time.Time) string {
	n := StateNotice{TsMs: now.UnixMilli()}
	if st != nil {
		n.History = len(st.History)
		n.Usd = len(st.UsdHistory)
		if st.LimitBulan != nil {
			n.Limit = *st.LimitBulan
		}
	}
	b, _ := json.Marshal(n)
	return string(b)
}

var _ port.StateRepository = (*Repo)(nil)
