package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/pagecollab/internal/models"
)

func TestProjectLabel(t *testing.T) {
	synced := models.SyncStatus{Synced: true}
	syncing := models.SyncStatus{Pending: 3}

	tests := []struct {
		name     string
		status   Status
		expected string
	}{
		{
			name:     "offline with cache written",
			status:   Status{Online: false, CacheSynced: true, Save: models.SaveStateUnsaved, Collaborative: true},
			expected: LabelOfflineSaved,
		},
		{
			name:     "offline while cache is writing",
			status:   Status{Online: false, CacheSynced: false, Save: models.SaveStateSaving},
			expected: LabelOfflineSaving,
		},
		{
			name:     "saving without collaboration",
			status:   Status{Online: true, Save: models.SaveStateSaving},
			expected: LabelSaving,
		},
		{
			name:     "unsaved without collaboration",
			status:   Status{Online: true, Save: models.SaveStateUnsaved},
			expected: LabelUnsaved,
		},
		{
			name:     "saved without collaboration",
			status:   Status{Online: true, Save: models.SaveStateSaved},
			expected: LabelSaved,
		},
		{
			name: "unsaved while connected and synced",
			status: Status{Online: true, Save: models.SaveStateUnsaved, Collaborative: true,
				Connection: models.ConnectionConnected, Sync: synced},
			expected: LabelUnsaved,
		},
		{
			name: "syncing overrides save state",
			status: Status{Online: true, Save: models.SaveStateUnsaved, Collaborative: true,
				Connection: models.ConnectionConnected, Sync: syncing},
			expected: "Syncing (3)…",
		},
		{
			name: "saving while disconnected",
			status: Status{Online: true, Save: models.SaveStateSaving, Collaborative: true,
				Connection: models.ConnectionDisconnected},
			expected: LabelSaving,
		},
		{
			name:     "connecting",
			status:   Status{Online: true, Save: models.SaveStateSaved, Collaborative: true, Connection: models.ConnectionConnecting},
			expected: LabelConnecting,
		},
		{
			name:     "synced",
			status:   Status{Online: true, Save: models.SaveStateSaved, Collaborative: true, Connection: models.ConnectionConnected, Sync: synced},
			expected: LabelSynced,
		},
		{
			name:     "disconnected",
			status:   Status{Online: true, Save: models.SaveStateSaved, Collaborative: true, Connection: models.ConnectionDisconnected},
			expected: LabelDisconnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProjectLabel(tt.status))
		})
	}
}
