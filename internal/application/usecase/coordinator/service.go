package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"goldroom/internal/domain"
)

// ErrStopped is returned by request methods once Run has exited.
var ErrStopped = errors.New("coordinator stopped")

const (
	DefaultInterval       = 3 * time.Second
	DefaultPullEvery      = 3 * time.Second
	DefaultHeartbeatEvery = 15 * time.Second
	DefaultPullTimeout    = 10 * time.Second
	DefaultInboxSize      = 256
)

type ServiceDeps struct {
	PushFeed PushFeed // optional
	PullFeed PullFeed // optional
	Repo     Repository
	Recorder Recorder

	Limits       domain.Limits
	DefaultLimit int

	Interval       time.Duration
	PullEvery      time.Duration
	HeartbeatEvery time.Duration
	PullTimeout    time.Duration
	InboxSize      int

	Now func() time.Time
}

// Service 是唯一的协调者：它独占 Store、快照缓存和订阅表，
// 其余组件只能通过 inbox 与之通信。
type Service struct {
	deps  ServiceDeps
	store *domain.Store
	cache *SnapshotCache
	reg   *Registry

	inbox chan event
	done  chan struct{}

	lastPull time.Time
	lastBeat time.Time
	pulling  bool
}

func NewService(deps ServiceDeps) *Service {
	if deps.Repo == nil {
		deps.Repo = NewNoopRepo()
	}
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}
	if deps.DefaultLimit <= 0 {
		deps.DefaultLimit = domain.DefaultMonthlyLimit
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.PullEvery <= 0 {
		deps.PullEvery = DefaultPullEvery
	}
	if deps.HeartbeatEvery <= 0 {
		deps.HeartbeatEvery = DefaultHeartbeatEvery
	}
	if deps.PullTimeout <= 0 {
		deps.PullTimeout = DefaultPullTimeout
	}
	if deps.InboxSize <= 0 {
		deps.InboxSize = DefaultInboxSize
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	store := domain.NewStore(deps.Limits, deps.DefaultLimit)
	return &Service{
		deps:  deps,
		store: store,
		cache: NewSnapshotCache(store, NewFormatter()),
		reg:   NewRegistry(),
		inbox: make(chan event, deps.InboxSize),
		done:  make(chan struct{}),
	}
}

// Run loads persisted state, then drives the loop until ctx is cancelled.
// Events posted before Run starts wait in the inbox.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.done)

	st, err := s.deps.Repo.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !st.Empty() {
		s.store.Restore(*st)
		log.Info().
			Int("history", len(s.store.History())).
			Int("usd", len(s.store.UsdHistory())).
			Int("seen", s.store.SeenLen()).
			Int("limit", s.store.MonthlyLimit()).
			Msg("state restored")
	}

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	s.fire(ctx)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-ticker.C:
			s.fire(ctx)
		case ev := <-s.inbox:
			s.handle(ctx, ev)
		}
	}
}

func (s *Service) shutdown() {
	s.reg.CloseAll()
	s.deps.Recorder.Subscribers(0)
	if s.deps.PushFeed != nil {
		if err := s.deps.PushFeed.Close(); err != nil {
			log.Debug().Err(err).Msg("push feed close")
		}
	}
	log.Info().Msg("coordinator stopped")
}

// fire is one firing of the driver loop.
func (s *Service) fire(ctx context.Context) {
	if s.deps.PushFeed != nil {
		s.deps.PushFeed.Ensure(ctx, s.HandleQuote)
	}

	now := s.deps.Now()
	if s.deps.PullFeed != nil && !s.pulling && now.Sub(s.lastPull) >= s.deps.PullEvery {
		s.pulling = true
		s.lastPull = now
		go s.pull(ctx)
	}

	if s.reg.Len() > 0 && now.Sub(s.lastBeat) >= s.deps.HeartbeatEvery {
		s.lastBeat = now
		s.broadcast(heartbeatMsg)
	}
}

func (s *Service) pull(ctx context.Context) {
	fctx, cancel := context.WithTimeout(ctx, s.deps.PullTimeout)
	price, err := s.deps.PullFeed.Fetch(fctx)
	cancel()
	s.post(secondaryEvent{price: price, err: err})
}

func (s *Service) handle(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case primaryEvent:
		s.onPrimary(ctx, e)
	case secondaryEvent:
		s.onSecondary(ctx, e)
	case joinEvent:
		e.reply <- s.onJoin(ctx, e.sub)
	case leaveEvent:
		if s.reg.Remove(e.sub) {
			_ = e.sub.Close()
			s.deps.Recorder.Subscribers(s.reg.Len())
			log.Debug().Str("subscriber", e.sub.ID()).Int("subscribers", s.reg.Len()).Msg("subscriber left")
		}
	case snapshotRequest:
		snap, err := s.cache.Get()
		e.reply <- snapshotReply{snap: snap, err: err}
	case setLimitRequest:
		s.store.SetMonthlyLimit(e.value)
		err := s.commit(ctx)
		if err != nil {
			log.Error().Err(err).Int("limit", e.value).Msg("persist monthly limit failed")
		}
		e.reply <- limitReply{value: s.store.MonthlyLimit(), err: err}
	default:
		log.Warn().Str("type", fmt.Sprintf("%T", ev)).Msg("unknown event")
	}
}

func (s *Service) onPrimary(ctx context.Context, e primaryEvent) {
	entry, err := s.store.AppendPrimary(e.quote)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		s.deps.Recorder.PrimaryResult("duplicate")
		return
	case errors.Is(err, domain.ErrIncomplete):
		s.deps.Recorder.PrimaryResult("incomplete")
		log.Debug().Msg("primary quote incomplete, dropped")
		return
	case err != nil:
		s.deps.Recorder.PrimaryResult("unparseable")
		log.Debug().Err(err).Msg("primary quote dropped")
		return
	}

	s.deps.Recorder.PrimaryResult("accepted")
	log.Debug().
		Int64("buy", entry.BuyingRate).
		Int64("sell", entry.SellingRate).
		Int64("diff", entry.Diff).
		Str("at", entry.CreatedAt).
		Msg("primary quote")

	if err := s.commit(ctx); err != nil {
		log.Warn().Err(err).Msg("persist after primary quote failed")
	}
}

func (s *Service) onSecondary(ctx context.Context, e secondaryEvent) {
	s.pulling = false
	if e.err != nil {
		s.deps.Recorder.SecondaryResult("error")
		log.Debug().Err(e.err).Msg("usd fetch failed")
		return
	}
	price := strings.TrimSpace(e.price)
	if price == "" {
		s.deps.Recorder.SecondaryResult("error")
		return
	}

	if _, ok := s.store.AppendSecondary(price, s.deps.Now()); !ok {
		s.deps.Recorder.SecondaryResult("unchanged")
		return
	}
	s.deps.Recorder.SecondaryResult("accepted")

	if err := s.commit(ctx); err != nil {
		log.Warn().Err(err).Msg("persist after usd rate failed")
	}
}

func (s *Service) onJoin(ctx context.Context, sub Subscriber) error {
	snap, err := s.cache.Get()
	if err != nil {
		return err
	}
	if err := sub.Send(snap.Body); err != nil {
		_ = sub.Close()
		return fmt.Errorf("send initial snapshot: %w", err)
	}
	s.reg.Add(sub)
	s.deps.Recorder.Subscribers(s.reg.Len())
	log.Debug().Str("subscriber", sub.ID()).Int("subscribers", s.reg.Len()).Msg("subscriber joined")

	if s.deps.PushFeed != nil {
		s.deps.PushFeed.Ensure(ctx, s.HandleQuote)
	}
	return nil
}

// commit publishes an applied mutation: invalidate, broadcast, then persist.
func (s *Service) commit(ctx context.Context) error {
	s.cache.Invalidate()

	if s.reg.Len() > 0 {
		snap, err := s.cache.Get()
		if err != nil {
			log.Error().Err(err).Msg("build snapshot")
		} else {
			s.broadcast(snap.Body)
		}
	}

	st := s.store.Export()
	if err := s.deps.Repo.SaveState(ctx, &st); err != nil {
		s.deps.Recorder.PersistError()
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *Service) broadcast(msg []byte) {
	pruned := s.reg.Broadcast(msg)
	s.deps.Recorder.Broadcast(pruned)
	if pruned > 0 {
		s.deps.Recorder.Subscribers(s.reg.Len())
	}
}

// post enqueues ev unless the loop has exited.
func (s *Service) post(ev event) bool {
	select {
	case s.inbox <- ev:
		return true
	case <-s.done:
		return false
	}
}

// HandleQuote is the push feed's QuoteHandler.
func (s *Service) HandleQuote(q domain.RawQuote) {
	s.post(primaryEvent{quote: q})
}

// Join registers sub and sends it the current snapshot.
func (s *Service) Join(ctx context.Context, sub Subscriber) error {
	reply := make(chan error, 1)
	if err := s.request(ctx, joinEvent{sub: sub, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
}

func (s *Service) Leave(sub Subscriber) {
	s.post(leaveEvent{sub: sub})
}

func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	reply := make(chan snapshotReply, 1)
	if err := s.request(ctx, snapshotRequest{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.snap, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrStopped
	}
}

// SetLimit stores the monthly limit. The in-memory value is applied even when
// persisting it fails; the error is returned either way.
func (s *Service) SetLimit(ctx context.Context, n int) (int, error) {
	reply := make(chan limitReply, 1)
	if err := s.request(ctx, setLimitRequest{value: n, reply: reply}); err != nil {
		return 0, err
	}
	select {
	case r := <-reply:
		return r.value, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.done:
		return 0, ErrStopped
	}
}

func (s *Service) request(ctx context.Context, ev event) error {
	select {
	case s.inbox <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
}
