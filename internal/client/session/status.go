package session

import (
	"fmt"

	"github.com/iudanet/pagecollab/internal/models"
)

// Status labels
const (
	LabelOfflineSaved  = "Offline, saved locally"
	LabelOfflineSaving = "Offline, saving locally"
	LabelSaving        = "Saving…"
	LabelUnsaved       = "Unsaved changes"
	LabelConnecting    = "Connecting…"
	LabelDisconnected  = "Offline"
	LabelSynced        = "Synced"
	LabelSaved         = "Saved"
)

// Status is the combined state of a session as seen by the UI layer
type Status struct {
	Connection    models.ConnectionStatus
	Save          models.SaveState
	Label         string
	Sync          models.SyncStatus
	Collaborative bool
	Online        bool // состояние сети, сообщаемое хостом (SetOnline)
	CacheSynced   bool // все обновления записаны в локальный кэш
	Dirty         bool
}

// ProjectLabel combines the status fields into one human-readable label.
//
// Precedence:
//  1. offline: "saved locally" or "saving locally" depending on the cache;
//  2. a saving/unsaved save state, unless the provider is actively syncing;
//  3. the collaboration connection label;
//  4. "Saved" for sessions without collaboration.
func ProjectLabel(st Status) string {
	if !st.Online {
		if st.CacheSynced {
			return LabelOfflineSaved
		}
		return LabelOfflineSaving
	}

	activelySyncing := st.Collaborative &&
		st.Connection == models.ConnectionConnected &&
		st.Sync.Syncing()

	if !activelySyncing {
		switch st.Save {
		case models.SaveStateSaving:
			return LabelSaving
		case models.SaveStateUnsaved:
			return LabelUnsaved
		}
	}

	if !st.Collaborative {
		return LabelSaved
	}

	switch st.Connection {
	case models.ConnectionConnecting:
		return LabelConnecting
	case models.ConnectionConnected:
		if st.Sync.Syncing() {
			return fmt.Sprintf("Syncing (%d)…", st.Sync.Pending)
		}
		return LabelSynced
	default:
		return LabelDisconnected
	}
}
