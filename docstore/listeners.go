package docstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// DocumentListener receives document snapshots.
type DocumentListener func(snap *Snapshot) error

// QueryListener receives the complete results of a query.
type QueryListener func(snaps []*Snapshot) error

// Subscription is a handle to a registered listener.
type Subscription struct {
	key     string
	reg     *registry
	deliver func(ctx context.Context) error
	active  atomic.Bool
	once    sync.Once
}

// Unsubscribe stops delivery to the listener.
//
// It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.active.Store(false)
		s.reg.remove(s)
	})
}

// Active returns true until Unsubscribe is called.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// registry holds the subscriptions for each document and query key in registration order.
type registry struct {
	mu     sync.Mutex
	logger zerolog.Logger
	subs   map[string][]*Subscription
}

func newRegistry(logger zerolog.Logger) *registry {
	return &registry{
		logger: logger,
		subs:   make(map[string][]*Subscription),
	}
}

func documentKey(path string) string {
	return "doc:" + path
}

func queryKey(path string) string {
	return "query:" + path
}

// subscribe registers deliver under key and invokes it once with the current state.
func (r *registry) subscribe(key string, deliver func(ctx context.Context) error) *Subscription {
	sub := &Subscription{
		key:     key,
		reg:     r,
		deliver: deliver,
	}
	sub.active.Store(true)

	r.mu.Lock()
	r.subs[key] = append(r.subs[key], sub)
	r.mu.Unlock()

	r.invoke(context.Background(), sub)
	return sub
}

func (r *registry) remove(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := slices.DeleteFunc(slices.Clone(r.subs[sub.key]), func(s *Subscription) bool {
		return s == sub
	})
	if len(subs) == 0 {
		delete(r.subs, sub.key)
	} else {
		r.subs[sub.key] = subs
	}
}

// notify invokes every active subscription under key in registration order.
//
// Must be called after the mutation is committed and without holding storage locks.
func (r *registry) notify(ctx context.Context, key string) {
	r.mu.Lock()
	subs := r.subs[key]
	r.mu.Unlock()

	for _, sub := range subs {
		if !sub.Active() {
			continue
		}
		r.invoke(ctx, sub)
	}
}

// invoke delivers to a single subscription, logging any error or panic.
func (r *registry) invoke(ctx context.Context, sub *Subscription) {
	if err := safeDeliver(ctx, sub); err != nil {
		r.logger.Error().Err(err).Str("key", sub.key).Msg("listener failed")
	}
}

func safeDeliver(ctx context.Context, sub *Subscription) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("listener panic: %v", recovered)
		}
	}()
	return sub.deliver(ctx)
}

// count returns the number of active subscriptions under key.
func (r *registry) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.subs[key])
}
