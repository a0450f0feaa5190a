package relay

import (
	"context"

	"github.com/iudanet/pagecollab/pkg/api"
)

// Envelope is a collaboration message relayed between server instances
type Envelope struct {
	Message  api.Message `json:"message"`
	Instance string      `json:"instance"` // Instance отправитель, свои сообщения игнорируются
	PageID   string      `json:"page_id"`
}

// Broker fans messages out to the other server instances.
// A nil Broker means a single instance deployment.
type Broker interface {
	// Publish sends env to every other instance
	Publish(ctx context.Context, env Envelope) error

	// Subscribe delivers envelopes published by other instances to fn
	// until ctx is done or the broker is closed
	Subscribe(ctx context.Context, fn func(Envelope)) error

	Close() error
}
