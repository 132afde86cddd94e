package chain

import "github.com/pkg/errors"

var ErrChainNotFound = errors.New("chain not found")

type Repository interface {
	Save(*Chain) error
	FindByID(id string) (*Chain, error)
	UpdateCheckout(id, checkoutID string) error
	Finish(id string, state State, reason string) error
	List() []*Chain
}
