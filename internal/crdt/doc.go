package crdt

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

var (
	// ErrDestroyed is returned by mutations after Destroy.
	ErrDestroyed = errors.New("document destroyed")
	// ErrOutOfRange indicates a position outside the visible text.
	ErrOutOfRange = errors.New("position out of range")
	// ErrInvalidOp indicates a malformed operation in an update.
	ErrInvalidOp = errors.New("invalid operation")
)

// BlockSeparator terminates every block; its attributes describe the block.
const BlockSeparator = '\n'

// element is one rune of the sequence, possibly a tombstone.
type element struct {
	attrs   AttrSet
	id      ID
	stamp   int64
	value   rune
	deleted bool
}

// precedes reports whether e stays to the left of a concurrently inserted
// element with the given stamp. Ties are broken by replica.
func (e *element) precedes(stamp int64, replica string) bool {
	if e.stamp != stamp {
		return e.stamp > stamp
	}
	return e.id.Replica > replica
}

// Observer receives every committed update together with its origin.
type Observer func(u Update, origin Origin)

// Doc is a replicated rich-text sequence (RGA) with per-element LWW attributes.
// Remote operations may arrive in any order: operations whose dependencies
// are not yet known are buffered until they can be integrated.
type Doc struct {
	byID      map[ID]*element
	applied   map[ID]struct{}
	vector    StateVector
	observers map[int]Observer
	clock     *LamportClock
	elems     []*element
	log       []Op
	pending   []Op
	nextObs   int
	mu        sync.Mutex
	destroyed bool
}

// NewDoc creates an empty document for the given replica.
// An empty replica gets a random identifier.
func NewDoc(replica string) *Doc {
	clock := NewLamportClock()
	if replica != "" {
		clock = NewLamportClockWithNodeID(replica)
	}

	return &Doc{
		byID:      make(map[ID]*element),
		applied:   make(map[ID]struct{}),
		vector:    make(StateVector),
		observers: make(map[int]Observer),
		clock:     clock,
	}
}

// Replica returns the identifier used for local operations.
func (d *Doc) Replica() string {
	return d.clock.GetNodeID()
}

// Observe registers fn for every committed update. The returned function
// unregisters it. Observers run after the document lock is released, in the
// goroutine that committed the update.
func (d *Doc) Observe(fn Observer) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.observers, id)
	}
}

// Transact runs fn as one local transaction tagged with origin. Operations
// created by fn are applied immediately and delivered to observers as one
// update after fn returns, even if fn returns an error.
// fn must only use the Txn; calling Doc methods from fn deadlocks.
func (d *Doc) Transact(origin Origin, fn func(tx *Txn) error) error {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return ErrDestroyed
	}

	tx := &Txn{doc: d}
	err := fn(tx)
	update := Update{Ops: tx.ops}
	observers := d.observerList()
	d.mu.Unlock()

	if !update.IsEmpty() {
		notify(observers, update, origin)
	}
	return err
}

// Apply integrates a remote (or replayed) update. It returns the operations
// that were actually new; duplicates are ignored and operations with unknown
// dependencies stay buffered until a later update supplies them.
func (d *Doc) Apply(u Update, origin Origin) (Update, error) {
	for _, op := range u.Ops {
		if err := validateOp(op); err != nil {
			return Update{}, err
		}
	}

	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return Update{}, ErrDestroyed
	}

	var out []Op
	for _, op := range u.Ops {
		if d.known(op.ID) {
			continue
		}
		if !d.ready(op) {
			d.pending = append(d.pending, op)
			continue
		}
		d.integrate(op)
		out = append(out, op)
	}
	out = d.drainPending(out)

	applied := Update{Ops: out}
	observers := d.observerList()
	d.mu.Unlock()

	if !applied.IsEmpty() {
		notify(observers, applied, origin)
	}
	return applied, nil
}

// Len returns the number of visible runes, block separators included.
func (d *Doc) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.visibleLen()
}

// Text returns the visible text. Blocks are separated by newlines; the
// separator of the last block is omitted.
func (d *Doc) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.text()
}

// StateVector returns what this replica has integrated.
func (d *Doc) StateVector() StateVector {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.vector.Clone()
}

// Diff returns every integrated operation the holder of sv has not seen.
func (d *Doc) Diff(sv StateVector) Update {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ops []Op
	for _, op := range d.log {
		if op.ID.Seq > sv[op.ID.Replica] {
			ops = append(ops, op)
		}
	}
	return Update{Ops: ops}
}

// EncodeState returns one update that rebuilds the whole document.
func (d *Doc) EncodeState() Update {
	return d.Diff(nil)
}

// PendingCount returns the number of buffered operations waiting for dependencies.
func (d *Doc) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.pending)
}

// Pending returns a copy of the buffered operations.
func (d *Doc) Pending() Update {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Update{Ops: append([]Op(nil), d.pending...)}
}

// PositionAt converts a visible index into a relative position that stays
// attached to the same text under concurrent edits.
func (d *Doc) PositionAt(index int) ID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index <= 0 {
		return RootID
	}
	if el := d.visibleElem(index - 1); el != nil {
		return el.id
	}
	// За концом документа - привязываемся к последнему видимому элементу
	for i := len(d.elems) - 1; i >= 0; i-- {
		if !d.elems[i].deleted {
			return d.elems[i].id
		}
	}
	return RootID
}

// IndexOf resolves a relative position back to a visible index.
// Unknown positions resolve to -1.
func (d *Doc) IndexOf(pos ID) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pos.IsRoot() {
		return 0
	}
	if _, ok := d.byID[pos]; !ok {
		return -1
	}

	index := 0
	for _, el := range d.elems {
		if !el.deleted {
			index++
		}
		if el.id == pos {
			return index
		}
	}
	return -1
}

// Destroy releases the in-memory state. Further mutations fail with ErrDestroyed.
func (d *Doc) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.destroyed = true
	d.elems = nil
	d.byID = make(map[ID]*element)
	d.applied = make(map[ID]struct{})
	d.log = nil
	d.pending = nil
	d.observers = make(map[int]Observer)
}

// IsDestroyed reports whether Destroy was called.
func (d *Doc) IsDestroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.destroyed
}

func (d *Doc) observerList() []Observer {
	keys := make([]int, 0, len(d.observers))
	for key := range d.observers {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	list := make([]Observer, 0, len(keys))
	for _, key := range keys {
		list = append(list, d.observers[key])
	}
	return list
}

func notify(observers []Observer, u Update, origin Origin) {
	for _, fn := range observers {
		fn(u, origin)
	}
}

func validateOp(op Op) error {
	if op.ID.Replica == "" || op.ID.Seq == 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidOp)
	}
	switch op.Kind {
	case OpInsert:
		if utf8.RuneCountInString(op.Value) != 1 {
			return fmt.Errorf("%w: insert %s must carry one rune", ErrInvalidOp, op.ID)
		}
	case OpDelete:
		if op.Target.IsRoot() {
			return fmt.Errorf("%w: delete %s without target", ErrInvalidOp, op.ID)
		}
	case OpFormat:
		if op.Target.IsRoot() || op.Key == "" {
			return fmt.Errorf("%w: format %s without target or key", ErrInvalidOp, op.ID)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidOp, op.Kind)
	}
	return nil
}

func (d *Doc) known(id ID) bool {
	_, ok := d.applied[id]
	return ok
}

func (d *Doc) ready(op Op) bool {
	switch op.Kind {
	case OpInsert:
		return op.Parent.IsRoot() || d.byID[op.Parent] != nil
	default:
		return d.byID[op.Target] != nil
	}
}

func (d *Doc) drainPending(out []Op) []Op {
	for progress := true; progress && len(d.pending) > 0; {
		progress = false
		rest := d.pending[:0]
		for _, op := range d.pending {
			if d.known(op.ID) {
				continue
			}
			if d.ready(op) {
				d.integrate(op)
				out = append(out, op)
				progress = true
				continue
			}
			rest = append(rest, op)
		}
		d.pending = rest
	}
	return out
}

// integrate applies a ready operation. Caller holds d.mu.
func (d *Doc) integrate(op Op) {
	d.clock.Update(op.Stamp)
	d.clock.Observe(op.ID)

	switch op.Kind {
	case OpInsert:
		r, _ := utf8.DecodeRuneInString(op.Value)
		pos := 0
		if !op.Parent.IsRoot() {
			pos = d.position(op.Parent) + 1
		}
		// RGA: пропускаем элементы, вставленные позже (больший stamp)
		for pos < len(d.elems) && d.elems[pos].precedes(op.Stamp, op.ID.Replica) {
			pos++
		}
		el := &element{id: op.ID, stamp: op.Stamp, value: r}
		d.elems = slices.Insert(d.elems, pos, el)
		d.byID[op.ID] = el
	case OpDelete:
		d.byID[op.Target].deleted = true
	case OpFormat:
		d.byID[op.Target].attrs.Set(op.Key, Register{
			Value:   op.Value,
			Replica: op.ID.Replica,
			Stamp:   op.Stamp,
		})
	}

	d.applied[op.ID] = struct{}{}
	d.log = append(d.log, op)
	d.advance(op.ID.Replica)
}

func (d *Doc) advance(replica string) {
	for {
		next := ID{Replica: replica, Seq: d.vector[replica] + 1}
		if _, ok := d.applied[next]; !ok {
			return
		}
		d.vector[replica] = next.Seq
	}
}

func (d *Doc) position(id ID) int {
	for i, el := range d.elems {
		if el.id == id {
			return i
		}
	}
	return -1
}

func (d *Doc) visibleLen() int {
	n := 0
	for _, el := range d.elems {
		if !el.deleted {
			n++
		}
	}
	return n
}

// textLen считает видимые руны без разделителей блоков
func (d *Doc) textLen() int {
	n := 0
	for _, el := range d.elems {
		if !el.deleted && el.value != BlockSeparator {
			n++
		}
	}
	return n
}

func (d *Doc) visibleElem(index int) *element {
	if index < 0 {
		return nil
	}
	n := 0
	for _, el := range d.elems {
		if el.deleted {
			continue
		}
		if n == index {
			return el
		}
		n++
	}
	return nil
}

func (d *Doc) visibleRange(index, length int) ([]*element, error) {
	if index < 0 || length < 0 || index+length > d.visibleLen() {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrOutOfRange, index, index+length)
	}

	result := make([]*element, 0, length)
	n := 0
	for _, el := range d.elems {
		if el.deleted {
			continue
		}
		if n >= index && n < index+length {
			result = append(result, el)
		}
		n++
	}
	return result, nil
}

func (d *Doc) text() string {
	var b strings.Builder
	for _, el := range d.elems {
		if !el.deleted {
			b.WriteRune(el.value)
		}
	}
	return strings.TrimSuffix(b.String(), string(BlockSeparator))
}

// Txn is a local transaction. Positions are visible rune indexes and reflect
// the operations already issued in the same transaction.
type Txn struct {
	doc *Doc
	ops []Op
}

// Len returns the visible length inside the transaction.
func (tx *Txn) Len() int {
	return tx.doc.visibleLen()
}

// Text returns the visible text inside the transaction.
func (tx *Txn) Text() string {
	return tx.doc.text()
}

// Insert inserts text before the rune at index.
func (tx *Txn) Insert(index int, text string) error {
	d := tx.doc
	if index < 0 || index > d.visibleLen() {
		return fmt.Errorf("%w: insert at %d", ErrOutOfRange, index)
	}

	parent := RootID
	if index > 0 {
		parent = d.visibleElem(index - 1).id
	}

	for _, r := range text {
		id, stamp := d.clock.Next()
		op := Op{Kind: OpInsert, ID: id, Parent: parent, Value: string(r), Stamp: stamp}
		tx.apply(op)
		parent = id
	}
	return nil
}

// Delete removes length runes starting at index.
func (tx *Txn) Delete(index, length int) error {
	elems, err := tx.doc.visibleRange(index, length)
	if err != nil {
		return err
	}

	for _, el := range elems {
		id, stamp := tx.doc.clock.Next()
		tx.apply(Op{Kind: OpDelete, ID: id, Target: el.id, Stamp: stamp})
	}
	return nil
}

// Format sets (or, with an empty value, clears) an attribute on a range.
func (tx *Txn) Format(index, length int, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty attribute key", ErrInvalidOp)
	}
	elems, err := tx.doc.visibleRange(index, length)
	if err != nil {
		return err
	}

	for _, el := range elems {
		id, stamp := tx.doc.clock.Next()
		tx.apply(Op{Kind: OpFormat, ID: id, Target: el.id, Key: key, Value: value, Stamp: stamp})
	}
	return nil
}

// SetBlock writes attributes on the block containing index. A separator is
// appended when the last block has none.
func (tx *Txn) SetBlock(index int, attrs map[string]string) error {
	d := tx.doc
	length := d.visibleLen()
	if index < 0 || index > length {
		return fmt.Errorf("%w: block at %d", ErrOutOfRange, index)
	}

	sepIndex := -1
	for i := index; i < length; i++ {
		if d.visibleElem(i).value == BlockSeparator {
			sepIndex = i
			break
		}
	}
	if sepIndex < 0 {
		if err := tx.Insert(length, string(BlockSeparator)); err != nil {
			return err
		}
		sepIndex = length
	}

	for _, key := range sortedKeys(attrs) {
		if err := tx.Format(sepIndex, 1, key, attrs[key]); err != nil {
			return err
		}
	}
	return nil
}

// InsertBlock inserts text as a complete block at index.
func (tx *Txn) InsertBlock(index int, text string, attrs map[string]string) error {
	if err := tx.Insert(index, text+string(BlockSeparator)); err != nil {
		return err
	}
	sepIndex := index + utf8.RuneCountInString(text)
	for _, key := range sortedKeys(attrs) {
		if err := tx.Format(sepIndex, 1, key, attrs[key]); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Txn) apply(op Op) {
	tx.doc.integrate(op)
	tx.ops = append(tx.ops, op)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
