package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sendit/internal/common"
)

type pending struct {
	done     chan struct{}
	identity *Identity
	err      error
	expires  time.Time
	resolved bool
}

// Registry tracks sign-ins that were started but not completed yet, keyed by
// the OAuth state parameter.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*pending
	ttl     time.Duration
	now     func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{pending: make(map[string]*pending), ttl: ttl, now: time.Now}
}

// Begin opens a new sign-in and returns its state.
func (r *Registry) Begin() (string, error) {
	state, err := common.MakeRandHexString(16)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	r.pending[state] = &pending{done: make(chan struct{}), expires: r.now().Add(r.ttl)}
	return state, nil
}

// Resolve completes the sign-in for state with either an identity or an error.
// Unknown, expired and already resolved states yield common.ErrorNotFound.
func (r *Registry) Resolve(state string, id *Identity, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[state]
	if !ok || p.resolved || r.now().After(p.expires) {
		return common.ErrorNotFound
	}

	p.identity, p.err, p.resolved = id, err, true
	close(p.done)
	return nil
}

// Wait blocks until state is resolved, expires or ctx ends. The entry is
// removed once a result has been handed out.
func (r *Registry) Wait(ctx context.Context, state string) (*Identity, error) {
	r.mu.Lock()
	p, ok := r.pending[state]
	r.mu.Unlock()
	if !ok {
		return nil, common.ErrorNotFound
	}

	timer := time.NewTimer(p.expires.Sub(r.now()))
	defer timer.Stop()

	select {
	case <-p.done:
		r.remove(state)
		return p.identity, p.err
	case <-timer.C:
		r.remove(state)
		return nil, common.ErrSignInExpired
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) remove(state string) {
	r.mu.Lock()
	delete(r.pending, state)
	r.mu.Unlock()
}

// Len reports the number of open sign-ins.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Registry) sweepLocked() {
	now := r.now()
	for state, p := range r.pending {
		if now.After(p.expires) {
			delete(r.pending, state)
		}
	}
}
