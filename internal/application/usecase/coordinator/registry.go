package coordinator

import (
	"github.com/rs/zerolog/log"

	"goldroom/internal/application/port"
)

// Registry is the set of live subscribers. Owned by the coordinator goroutine.
type Registry struct {
	subs map[string]port.Subscriber
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]port.Subscriber)}
}

func (r *Registry) Add(sub port.Subscriber) {
	r.subs[sub.ID()] = sub
}

// Remove drops sub and reports whether it was registered.
func (r *Registry) Remove(sub port.Subscriber) bool {
	if _, ok := r.subs[sub.ID()]; !ok {
		return false
	}
	delete(r.subs, sub.ID())
	return true
}

func (r *Registry) Len() int { return len(r.subs) }

// Broadcast sends msg to every subscriber; those whose Send fails are closed
// and removed. Returns the number pruned.
func (r *Registry) Broadcast(msg []byte) int {
	pruned := 0
	for id, sub := range r.subs {
		if err := sub.Send(msg); err != nil {
			delete(r.subs, id)
			_ = sub.Close()
			pruned++
			log.Debug().Str("subscriber", id).Err(err).Msg("subscriber pruned")
		}
	}
	return pruned
}

func (r *Registry) CloseAll() {
	for id, sub := range r.subs {
		_ = sub.Close()
		delete(r.subs, id)
	}
}
