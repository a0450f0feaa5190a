package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextDocument(t *testing.T) {
	doc := NewTextDocument("first\nsecond")

	require.Len(t, doc.Content, 2)
	assert.Equal(t, NodeDoc, doc.Type)
	assert.Equal(t, NodeParagraph, doc.Content[0].Type)
	assert.Equal(t, "first\nsecond", doc.PlainText())

	assert.True(t, NewTextDocument("").IsEmpty())
}

func TestNode_PlainText(t *testing.T) {
	doc := NewDocument(
		Heading(1, "Title"),
		Node{Type: NodeParagraph, Content: []Node{Text("bold", Mark{Type: MarkBold}), Text(" plain")}},
		Node{Type: NodeBulletList, Content: []Node{
			{Type: NodeListItem, Content: []Node{Paragraph("item")}},
		}},
		Paragraph(""),
	)

	assert.Equal(t, "Title\nbold plain\nitem\n", doc.PlainText())
}

func TestUnmarshalDocument(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantErr  bool
		wantText string
	}{
		{
			name:     "valid document",
			data:     `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hi"}]}]}`,
			wantText: "hi",
		},
		{
			name:     "missing root type",
			data:     `{"content":[{"type":"paragraph","content":[{"type":"text","text":"hi"}]}]}`,
			wantText: "hi",
		},
		{
			name:    "foreign root",
			data:    `{"type":"paragraph"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			data:    `doc`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := UnmarshalDocument([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, NodeDoc, doc.Type)
			assert.Equal(t, tt.wantText, doc.PlainText())
		})
	}
}

func TestMarshalDocument_Heading(t *testing.T) {
	data, err := MarshalDocument(NewDocument(Heading(2, "Plan")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"doc","content":[{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Plan"}]}]}`, string(data))
}

func TestContentDigest(t *testing.T) {
	a := ContentDigest([]byte(`{"type":"doc"}`))
	b := ContentDigest([]byte(`{"type":"doc"}`))
	c := ContentDigest([]byte(`{"type":"doc","content":[]}`))

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSyncStatus_Syncing(t *testing.T) {
	assert.False(t, SyncStatus{Synced: true}.Syncing())
	assert.True(t, SyncStatus{Pending: 2}.Syncing())
}
