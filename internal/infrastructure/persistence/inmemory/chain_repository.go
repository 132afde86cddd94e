package inmemory

import (
	"sort"
	"sync"
	"time"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/chain"
)

type ChainRepository struct {
	mu     sync.RWMutex
	chains map[string]*chain.Chain
	now    func() time.Time
}

func NewChainRepository() *ChainRepository {
	return &ChainRepository{
		chains: make(map[string]*chain.Chain),
		now:    time.Now,
	}
}

func (r *ChainRepository) Save(c *chain.Chain) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *c
	r.chains[c.ID] = &cp
	return nil
}

func (r *ChainRepository) FindByID(id string) (*chain.Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.chains[id]
	if !ok {
		return nil, chain.ErrChainNotFound
	}

	cp := *c
	return &cp, nil
}

func (r *ChainRepository) UpdateCheckout(id, checkoutID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chains[id]
	if !ok {
		return chain.ErrChainNotFound
	}

	c.CheckoutID = checkoutID
	c.Resubmissions++
	return nil
}

func (r *ChainRepository) Finish(id string, state chain.State, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chains[id]
	if !ok {
		return chain.ErrChainNotFound
	}

	c.State = state
	c.Reason = reason
	c.FinishedAt = r.now()
	return nil
}

// List returns copies of all chains, newest first.
func (r *ChainRepository) List() []*chain.Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*chain.Chain, 0, len(r.chains))
	for _, c := range r.chains {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}
