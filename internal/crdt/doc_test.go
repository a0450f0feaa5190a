package crdt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/pagecollab/internal/models"
)

// recordUpdates собирает обновления документа вместе с их origin
func recordUpdates(doc *Doc) *[]Update {
	updates := &[]Update{}
	doc.Observe(func(u Update, origin Origin) {
		*updates = append(*updates, u)
	})
	return updates
}

func insert(t *testing.T, doc *Doc, index int, text string) {
	t.Helper()
	require.NoError(t, doc.Transact(OriginLocal, func(tx *Txn) error {
		return tx.Insert(index, text)
	}))
}

func TestDoc_InsertDelete(t *testing.T) {
	doc := NewDoc("a")

	insert(t, doc, 0, "Hello")
	insert(t, doc, 5, " world")
	assert.Equal(t, "Hello world", doc.Text())
	assert.Equal(t, 11, doc.Len())

	require.NoError(t, doc.Transact(OriginLocal, func(tx *Txn) error {
		return tx.Delete(0, 6)
	}))
	assert.Equal(t, "world", doc.Text())
	assert.Equal(t, 5, doc.Len())

	err := doc.Transact(OriginLocal, func(tx *Txn) error {
		return tx.Insert(42, "x")
	})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDoc_ObserverReceivesOrigin(t *testing.T) {
	source := NewDoc("a")
	target := NewDoc("b")

	var origins []Origin
	var updates []Update
	target.Observe(func(u Update, origin Origin) {
		origins = append(origins, origin)
	})
	source.Observe(func(u Update, origin Origin) {
		updates = append(updates, u)
	})

	insert(t, source, 0, "hi")
	require.Len(t, updates, 1)

	require.NoError(t, target.Transact(OriginLocal, func(tx *Txn) error {
		return tx.Insert(0, "x")
	}))
	_, err := target.Apply(updates[0], OriginRemote)
	require.NoError(t, err)

	assert.Equal(t, []Origin{OriginLocal, OriginRemote}, origins)
}

func TestDoc_ApplyReverseOrderConverges(t *testing.T) {
	source := NewDoc("a")
	updates := recordUpdates(source)

	insert(t, source, 0, "ab")
	insert(t, source, 2, "c")
	require.NoError(t, source.Transact(OriginLocal, func(tx *Txn) error {
		return tx.Delete(0, 1)
	}))
	require.Len(t, *updates, 3)

	forward := NewDoc("b")
	for _, u := range *updates {
		_, err := forward.Apply(u, OriginRemote)
		require.NoError(t, err)
	}

	backward := NewDoc("c")
	for i := len(*updates) - 1; i >= 0; i-- {
		_, err := backward.Apply((*updates)[i], OriginRemote)
		require.NoError(t, err)
	}

	assert.Equal(t, "bc", source.Text())
	assert.Equal(t, source.Text(), forward.Text())
	assert.Equal(t, source.Text(), backward.Text())
	assert.Equal(t, 0, backward.PendingCount())
	assert.Equal(t, forward.StateVector(), backward.StateVector())
}

func TestDoc_ApplyBuffersMissingDependencies(t *testing.T) {
	source := NewDoc("a")
	updates := recordUpdates(source)

	insert(t, source, 0, "x")
	insert(t, source, 1, "y")

	target := NewDoc("b")
	applied, err := target.Apply((*updates)[1], OriginRemote)
	require.NoError(t, err)
	assert.True(t, applied.IsEmpty(), "Insert after an unknown element must wait")
	assert.Equal(t, 1, target.PendingCount())
	assert.Equal(t, (*updates)[1].Ops, target.Pending().Ops)
	assert.Equal(t, "", target.Text())

	applied, err = target.Apply((*updates)[0], OriginRemote)
	require.NoError(t, err)
	assert.Len(t, applied.Ops, 2, "Buffered operation is released with its dependency")
	assert.Equal(t, "xy", target.Text())
	assert.True(t, target.Pending().IsEmpty())
}

func TestDoc_ApplyIsIdempotent(t *testing.T) {
	source := NewDoc("a")
	updates := recordUpdates(source)
	insert(t, source, 0, "same")

	target := NewDoc("b")
	first, err := target.Apply((*updates)[0], OriginRemote)
	require.NoError(t, err)
	second, err := target.Apply((*updates)[0], OriginRemote)
	require.NoError(t, err)

	assert.Len(t, first.Ops, 4)
	assert.True(t, second.IsEmpty())
	assert.Equal(t, "same", target.Text())
}

func TestDoc_ConcurrentInsertsConverge(t *testing.T) {
	a := NewDoc("a")
	b := NewDoc("b")
	aUpdates := recordUpdates(a)
	bUpdates := recordUpdates(b)

	insert(t, a, 0, "x")
	_, err := b.Apply((*aUpdates)[0], OriginRemote)
	require.NoError(t, err)

	// Оба участника вставляют в одну и ту же позицию одновременно
	insert(t, a, 1, "11")
	insert(t, b, 1, "22")
	insert(t, b, 0, "<")

	for _, u := range (*aUpdates)[1:] {
		_, err := b.Apply(u, OriginRemote)
		require.NoError(t, err)
	}
	for _, u := range *bUpdates {
		_, err := a.Apply(u, OriginRemote)
		require.NoError(t, err)
	}

	assert.Equal(t, a.Text(), b.Text())
	assert.Len(t, []rune(a.Text()), 6)
	assert.Contains(t, a.Text(), "11")
	assert.Contains(t, a.Text(), "22")
	assert.Equal(t, '<', []rune(a.Text())[0])
}

func TestDoc_ConcurrentDeleteAndInsert(t *testing.T) {
	a := NewDoc("a")
	b := NewDoc("b")
	aUpdates := recordUpdates(a)
	bUpdates := recordUpdates(b)

	insert(t, a, 0, "ab")
	_, err := b.Apply((*aUpdates)[0], OriginRemote)
	require.NoError(t, err)

	require.NoError(t, a.Transact(OriginLocal, func(tx *Txn) error {
		return tx.Delete(1, 1)
	}))
	insert(t, b, 2, "c")

	_, err = a.Apply((*bUpdates)[0], OriginRemote)
	require.NoError(t, err)
	_, err = b.Apply((*aUpdates)[1], OriginRemote)
	require.NoError(t, err)

	assert.Equal(t, "ac", a.Text())
	assert.Equal(t, "ac", b.Text())
}

func TestDoc_ConcurrentFormatLastWriterWins(t *testing.T) {
	a := NewDoc("a")
	b := NewDoc("b")
	aUpdates := recordUpdates(a)
	bUpdates := recordUpdates(b)

	require.NoError(t, a.Transact(OriginLocal, func(tx *Txn) error {
		return tx.InsertBlock(0, "Title", map[string]string{AttrType: models.NodeParagraph})
	}))
	_, err := b.Apply((*aUpdates)[0], OriginRemote)
	require.NoError(t, err)

	require.NoError(t, a.Transact(OriginLocal, func(tx *Txn) error {
		return tx.SetBlock(0, map[string]string{AttrType: models.NodeHeading, AttrLevel: "1"})
	}))
	require.NoError(t, b.Transact(OriginLocal, func(tx *Txn) error {
		return tx.SetBlock(0, map[string]string{AttrType: models.NodeCodeBlock})
	}))

	_, err = a.Apply((*bUpdates)[0], OriginRemote)
	require.NoError(t, err)
	_, err = b.Apply((*aUpdates)[1], OriginRemote)
	require.NoError(t, err)

	assert.Equal(t, a.Document(), b.Document())
}

func TestDoc_StateVectorDiff(t *testing.T) {
	source := NewDoc("a")
	updates := recordUpdates(source)

	insert(t, source, 0, "one")
	target := NewDoc("b")
	_, err := target.Apply((*updates)[0], OriginRemote)
	require.NoError(t, err)

	insert(t, source, 3, "two")

	assert.Equal(t, StateVector{"a": 3}, target.StateVector())
	assert.Equal(t, StateVector{"a": 6}, source.StateVector())
	assert.True(t, source.StateVector().Covers(target.StateVector()))
	assert.False(t, target.StateVector().Covers(source.StateVector()))

	diff := source.Diff(target.StateVector())
	assert.Len(t, diff.Ops, 3)

	_, err = target.Apply(diff, OriginRemote)
	require.NoError(t, err)
	assert.Equal(t, "onetwo", target.Text())

	restored := NewDoc("c")
	_, err = restored.Apply(source.EncodeState(), OriginCache)
	require.NoError(t, err)
	assert.Equal(t, "onetwo", restored.Text())
}

func TestDoc_Seed(t *testing.T) {
	doc := NewDoc("a")

	seeded, err := doc.Seed(models.NewTextDocument("Hello"))
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, "Hello", doc.Text())

	seeded, err = doc.Seed(models.NewTextDocument("Other"))
	require.NoError(t, err)
	assert.False(t, seeded, "Non-empty document must not be seeded")
	assert.Equal(t, "Hello", doc.Text())
}

func TestDoc_SeedEmptyBlocks(t *testing.T) {
	remote := NewDoc("b")
	require.NoError(t, remote.Transact(OriginLocal, func(tx *Txn) error {
		if err := tx.InsertBlock(0, "", map[string]string{AttrType: models.NodeParagraph}); err != nil {
			return err
		}
		return tx.InsertBlock(1, "", map[string]string{AttrType: models.NodeParagraph})
	}))

	doc := NewDoc("a")
	_, err := doc.Apply(remote.EncodeState(), OriginRemote)
	require.NoError(t, err)
	require.Equal(t, 2, doc.Len())
	require.Empty(t, strings.TrimSpace(doc.Text()))

	seeded, err := doc.Seed(models.NewTextDocument("Hello"))
	require.NoError(t, err)
	assert.True(t, seeded, "Blocks without text count as an empty document")
	assert.Equal(t, "Hello", doc.Text())
	tree := doc.Document()
	require.Len(t, tree.Content, 1)
	assert.Equal(t, models.NodeParagraph, tree.Content[0].Type)

	// Реплика с пустыми блоками получает тот же результат
	_, err = remote.Apply(doc.Diff(remote.StateVector()), OriginRemote)
	require.NoError(t, err)
	assert.Equal(t, "Hello", remote.Text())
}

func TestDoc_SeedSkipsWhitespaceText(t *testing.T) {
	doc := NewDoc("a")
	require.NoError(t, doc.Transact(OriginRemote, func(tx *Txn) error {
		return tx.InsertBlock(0, " ", map[string]string{AttrType: models.NodeParagraph})
	}))

	seeded, err := doc.Seed(models.NewTextDocument("Hello"))
	require.NoError(t, err)
	assert.False(t, seeded, "Any typed rune is content")
}

func TestDoc_DocumentRoundTrip(t *testing.T) {
	input := models.NewDocument(
		models.Heading(2, "Release notes"),
		models.Node{Type: models.NodeParagraph, Content: []models.Node{
			models.Text("plain "),
			models.Text("bold", models.Mark{Type: models.MarkBold}),
			models.Text(" link", models.Mark{Type: models.MarkLink, Attrs: map[string]any{"href": "https://example.com"}}),
		}},
		models.Node{Type: models.NodeBulletList, Content: []models.Node{
			{Type: models.NodeListItem, Content: []models.Node{models.Paragraph("first")}},
			{Type: models.NodeListItem, Content: []models.Node{models.Paragraph("second")}},
		}},
		models.Node{
			Type:    models.NodeCodeBlock,
			Attrs:   map[string]any{"language": "go"},
			Content: []models.Node{models.Text("a := 1\nb := 2")},
		},
		models.Node{Type: models.NodeTable, Content: []models.Node{
			{Type: models.NodeTableRow, Content: []models.Node{
				{Type: models.NodeTableCell, Content: []models.Node{models.Paragraph("k")}},
				{Type: models.NodeTableCell, Content: []models.Node{models.Paragraph("v")}},
			}},
			{Type: models.NodeTableRow, Content: []models.Node{
				{Type: models.NodeTableCell, Content: []models.Node{models.Paragraph("1")}},
				{Type: models.NodeTableCell, Content: []models.Node{models.Paragraph("2")}},
			}},
		}},
		models.Paragraph(""),
	)

	doc := NewDoc("a")
	require.NoError(t, doc.Transact(OriginLocal, func(tx *Txn) error {
		return tx.InsertDocument(0, input)
	}))

	assert.Equal(t, input, doc.Document())

	replica := NewDoc("b")
	_, err := replica.Apply(doc.EncodeState(), OriginRemote)
	require.NoError(t, err)
	assert.Equal(t, input, replica.Document())
}

func TestDoc_RelativePositions(t *testing.T) {
	local := NewDoc("a")
	remote := NewDoc("b")
	localUpdates := recordUpdates(local)
	remoteUpdates := recordUpdates(remote)

	insert(t, local, 0, "hello")
	_, err := remote.Apply((*localUpdates)[0], OriginRemote)
	require.NoError(t, err)

	pos := local.PositionAt(2)
	assert.Equal(t, 2, local.IndexOf(pos))

	insert(t, remote, 0, "XX")
	_, err = local.Apply((*remoteUpdates)[0], OriginRemote)
	require.NoError(t, err)

	assert.Equal(t, 4, local.IndexOf(pos), "Position follows the text it was anchored to")
	assert.Equal(t, 0, local.IndexOf(RootID))
	assert.Equal(t, -1, local.IndexOf(ID{Replica: "zz", Seq: 9}))
}

func TestDoc_Destroy(t *testing.T) {
	doc := NewDoc("a")
	insert(t, doc, 0, "x")

	doc.Destroy()

	assert.True(t, doc.IsDestroyed())
	assert.ErrorIs(t, doc.Transact(OriginLocal, func(tx *Txn) error { return nil }), ErrDestroyed)
	_, err := doc.Apply(Update{}, OriginRemote)
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.Equal(t, 0, doc.Len())
}

func TestDoc_ApplyRejectsInvalidOps(t *testing.T) {
	doc := NewDoc("a")

	_, err := doc.Apply(Update{Ops: []Op{{Kind: "bogus", ID: ID{Replica: "x", Seq: 1}}}}, OriginRemote)
	assert.ErrorIs(t, err, ErrInvalidOp)

	_, err = doc.Apply(Update{Ops: []Op{{Kind: OpInsert, ID: ID{Replica: "x", Seq: 1}, Value: "ab"}}}, OriginRemote)
	assert.ErrorIs(t, err, ErrInvalidOp)
}

func TestUpdate_EncodeDecode(t *testing.T) {
	source := NewDoc("a")
	updates := recordUpdates(source)
	insert(t, source, 0, "é✓")

	data, err := (*updates)[0].Encode()
	require.NoError(t, err)

	decoded, err := DecodeUpdate(data)
	require.NoError(t, err)

	target := NewDoc("b")
	_, err = target.Apply(decoded, OriginRemote)
	require.NoError(t, err)
	assert.Equal(t, "é✓", target.Text())

	_, err = DecodeUpdate([]byte("{not json"))
	assert.Error(t, err)
}
