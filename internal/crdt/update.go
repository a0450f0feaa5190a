package crdt

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ID uniquely identifies an operation and, for inserts, the element it created.
// The zero ID is the document start.
type ID struct {
	Replica string `json:"r"`
	Seq     uint64 `json:"s"`
}

// RootID is the virtual element before the first character.
var RootID = ID{}

// IsRoot reports whether id points at the document start.
func (id ID) IsRoot() bool {
	return id.Replica == "" && id.Seq == 0
}

func (id ID) String() string {
	if id.IsRoot() {
		return "root"
	}
	return id.Replica + ":" + strconv.FormatUint(id.Seq, 10)
}

// OpKind defines the type of a document operation.
type OpKind string

const (
	OpInsert OpKind = "ins"
	OpDelete OpKind = "del"
	OpFormat OpKind = "fmt"
)

// Op is a single replicated mutation.
type Op struct {
	Kind   OpKind `json:"k"`
	ID     ID     `json:"id"`
	Parent ID     `json:"p,omitempty"` // insert: element to the left at creation time
	Target ID     `json:"o,omitempty"` // delete/format: element being changed
	Key    string `json:"a,omitempty"` // format: attribute name
	Value  string `json:"v,omitempty"` // insert: one rune; format: attribute value
	Stamp  int64  `json:"t"`
}

// Update is a batch of operations produced by one transaction or one sync step.
type Update struct {
	Ops []Op `json:"ops"`
}

// IsEmpty reports whether the update carries no operations.
func (u Update) IsEmpty() bool {
	return len(u.Ops) == 0
}

// Encode serializes the update for the wire and the local cache.
func (u Update) Encode() ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update: %w", err)
	}
	return data, nil
}

// DecodeUpdate parses an update produced by Encode.
func DecodeUpdate(data []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return Update{}, fmt.Errorf("failed to unmarshal update: %w", err)
	}
	return u, nil
}

// MergeUpdates concatenates updates; applying the result equals applying each in turn.
func MergeUpdates(updates ...Update) Update {
	total := 0
	for _, u := range updates {
		total += len(u.Ops)
	}

	merged := Update{Ops: make([]Op, 0, total)}
	for _, u := range updates {
		merged.Ops = append(merged.Ops, u.Ops...)
	}
	return merged
}

// StateVector maps a replica to the highest operation sequence number
// applied without gaps.
type StateVector map[string]uint64

// Clone returns a copy of the vector.
func (sv StateVector) Clone() StateVector {
	result := make(StateVector, len(sv))
	for replica, seq := range sv {
		result[replica] = seq
	}
	return result
}

// Covers reports whether every operation known to other is known to sv.
func (sv StateVector) Covers(other StateVector) bool {
	for replica, seq := range other {
		if sv[replica] < seq {
			return false
		}
	}
	return true
}

// Origin is the provenance marker attached to every transaction.
type Origin string

const (
	// OriginLocal marks edits made by the user of this replica.
	OriginLocal Origin = "local"
	// OriginRemote marks operations received from other participants.
	OriginRemote Origin = "remote"
	// OriginCache marks operations replayed from the on-device cache.
	OriginCache Origin = "cache"
	// OriginSeed marks the one-time seeding from a host snapshot.
	OriginSeed Origin = "seed"
)

// IsLocal reports whether the origin is a user edit on this replica.
// Only such edits make a document dirty.
func (o Origin) IsLocal() bool {
	return o == OriginLocal
}

// Replicated reports whether operations with this origin were created on
// this replica and must be sent to other participants.
func (o Origin) Replicated() bool {
	return o == OriginLocal || o == OriginSeed
}
