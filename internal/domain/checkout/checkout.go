package checkout

import (
	"context"
	"time"
)

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusCancelRequested Status = "CANCEL_REQUESTED"
	StatusCanceled        Status = "CANCELED"
	StatusCompleted       Status = "COMPLETED"
)

type Checkout struct {
	ID        string
	Amount    int64
	Currency  string
	DeviceID  string
	Status    Status
	CreatedAt time.Time
}

// CreateRequest describes a single terminal charge. IdempotencyKey must be
// fresh for every attempt, including resubmissions of the same amount.
type CreateRequest struct {
	IdempotencyKey    string
	Amount            int64
	Currency          string
	DeviceID          string
	SkipReceiptScreen bool
}

type Gateway interface {
	CreateCheckout(ctx context.Context, req CreateRequest) (*Checkout, error)
	GetCheckout(ctx context.Context, id string) (*Checkout, error)
	CancelCheckout(ctx context.Context, id string) error
}
