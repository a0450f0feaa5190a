package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePageID(t *testing.T) {
	tests := []struct {
		name    string
		pageID  string
		errMsg  string
		wantErr bool
	}{
		{
			name:   "valid - lowercase",
			pageID: "roadmap",
		},
		{
			name:   "valid - uuid",
			pageID: "b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5",
		},
		{
			name:   "valid - underscore and digits",
			pageID: "q3_release_2025",
		},
		{
			name:   "valid - single char",
			pageID: "a",
		},
		{
			name:   "valid - max length",
			pageID: strings.Repeat("p", MaxPageIDLen),
		},
		{
			name:    "invalid - empty",
			pageID:  "",
			wantErr: true,
			errMsg:  "page id cannot be empty",
		},
		{
			name:    "invalid - too long",
			pageID:  strings.Repeat("p", MaxPageIDLen+1),
			wantErr: true,
			errMsg:  "must not exceed 64 characters",
		},
		{
			name:    "invalid - slash",
			pageID:  "team/roadmap",
			wantErr: true,
			errMsg:  "page id can only contain",
		},
		{
			name:    "invalid - space",
			pageID:  "road map",
			wantErr: true,
			errMsg:  "page id can only contain",
		},
		{
			name:    "invalid - path traversal",
			pageID:  "..",
			wantErr: true,
			errMsg:  "page id can only contain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePageID(tt.pageID)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		wantErr     bool
	}{
		{name: "valid - ascii", displayName: "Alice"},
		{name: "valid - unicode", displayName: "Мария Иванова"},
		{name: "valid - max length in runes", displayName: strings.Repeat("я", MaxDisplayNameLen)},
		{name: "invalid - empty", displayName: "", wantErr: true},
		{name: "invalid - too long", displayName: strings.Repeat("я", MaxDisplayNameLen+1), wantErr: true},
		{name: "invalid - newline", displayName: "Alice\nBob", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDisplayName(tt.displayName)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
