package session

import (
	"context"

	"github.com/iudanet/pagecollab/internal/client/provider"
	"github.com/iudanet/pagecollab/internal/crdt"
	"github.com/iudanet/pagecollab/internal/models"
	"github.com/iudanet/pagecollab/pkg/api"
)

//go:generate moq -out provider_mock.go . Provider

// Provider is the network side of a collaborative session.
// It applies remote updates to the document with crdt.OriginRemote and
// sends replicated local updates itself.
type Provider interface {
	// Connect starts connecting in the background
	Connect(ctx context.Context) error

	// Subscribe registers fn for provider events
	Subscribe(fn func(provider.Event)) func()

	// Connection returns the connection state
	Connection() models.ConnectionStatus

	// Sync returns the synchronization state and the pending counter
	Sync() models.SyncStatus

	// SetCursor publishes the local selection
	SetCursor(anchor, head crdt.ID)

	// Peers returns remote participants
	Peers() []api.Awareness

	// Close releases the connection
	Close() error
}

// ProviderFactory creates the provider for a freshly instantiated document
type ProviderFactory func(doc *crdt.Doc) Provider

// SaveFunc persists the serialized document to the backend.
// It is invoked by autosave and manual save; its error is never propagated.
type SaveFunc func(ctx context.Context, content []byte) error
