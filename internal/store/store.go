package store

import (
	"context"
	"encoding/json"
	"errors"
)

// The workspace's shared document is modelled as two container kinds: an
// ordered sequence of records and a key-value map. Every collection in the
// system (request ledger, catalog, audit log, capacities, reveals, settings)
// lives in one of the two. Convergence between replicas belongs to the sync
// substrate; this package only defines the local capability surface.

var (
	// ErrNotFound is returned when a record or key is absent from a container.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned by Replace/Delete when the caller's revision is
	// stale, i.e. another writer replaced the record first.
	ErrConflict = errors.New("revision conflict")
)

// Record is a single entry in a sequence. Rev increments on every replace,
// which is what makes concurrent updates to the same record detectable.
type Record struct {
	ID   string          `json:"id"`
	Rev  int64           `json:"rev"`
	Body json.RawMessage `json:"body"`
}

// EventOp identifies the mutation an observer is being told about.
type EventOp string

const (
	OpAppend  EventOp = "append"
	OpReplace EventOp = "replace"
	OpDelete  EventOp = "delete"
	OpSet     EventOp = "set"
)

// Event describes a single local mutation of a container.
type Event struct {
	Op        EventOp
	Container string
	Record    Record
	Key       string
}

// Sequence is an ordered, append-friendly record collection. Replace is
// compare-and-swap by revision: callers read a record, derive a new body, and
// replace it citing the revision they read. A lost race comes back as
// ErrConflict rather than a second silent winner.
type Sequence interface {
	Append(ctx context.Context, id string, body json.RawMessage) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Snapshot(ctx context.Context) ([]Record, error)
	Replace(ctx context.Context, id string, expectRev int64, body json.RawMessage) (Record, error)
	Delete(ctx context.Context, id string, expectRev int64) error
	Len(ctx context.Context) (int, error)
	Observe(fn func(Event)) (cancel func())
}

// Map is a keyed record collection.
type Map interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
	Snapshot(ctx context.Context) (map[string]json.RawMessage, error)
	Observe(fn func(Event)) (cancel func())
}

// Store hands out named containers. Asking twice for the same name returns
// the same container.
type Store interface {
	Sequence(name string) Sequence
	Map(name string) Map
}
