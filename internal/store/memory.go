package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// memoryStore is the in-process replica used by tests and by deployments that
// run without a database. All containers share one lock; contention is not a
// concern at workspace scale.
type memoryStore struct {
	mu   sync.Mutex
	seqs map[string]*memSequence
	maps map[string]*memMap
}

// NewMemory creates an empty in-memory store.
func NewMemory() Store {
	return &memoryStore{
		seqs: make(map[string]*memSequence),
		maps: make(map[string]*memMap),
	}
}

func (s *memoryStore) Sequence(name string) Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq, ok := s.seqs[name]; ok {
		return seq
	}
	seq := &memSequence{name: name, index: make(map[string]int)}
	s.seqs[name] = seq
	return seq
}

func (s *memoryStore) Map(name string) Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.maps[name]; ok {
		return m
	}
	m := &memMap{name: name, values: make(map[string]json.RawMessage)}
	s.maps[name] = m
	return m
}

// ── sequence ─────────────────────────────────────────────────────────────────

type memSequence struct {
	mu        sync.Mutex
	name      string
	records   []Record
	index     map[string]int // id → position in records
	observers []*observer
}

type observer struct {
	fn     func(Event)
	active bool
}

func (q *memSequence) Append(ctx context.Context, id string, body json.RawMessage) (Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.index[id]; exists {
		return Record{}, fmt.Errorf("append %s to %s: id already present", id, q.name)
	}
	rec := Record{ID: id, Rev: 1, Body: cloneJSON(body)}
	q.index[id] = len(q.records)
	q.records = append(q.records, rec)
	q.notify(Event{Op: OpAppend, Container: q.name, Record: rec})
	return rec, nil
}

func (q *memSequence) Get(ctx context.Context, id string) (Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pos, ok := q.index[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(q.records[pos]), nil
}

func (q *memSequence) Snapshot(ctx context.Context) ([]Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Record, len(q.records))
	for i, rec := range q.records {
		out[i] = cloneRecord(rec)
	}
	return out, nil
}

func (q *memSequence) Replace(ctx context.Context, id string, expectRev int64, body json.RawMessage) (Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pos, ok := q.index[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if q.records[pos].Rev != expectRev {
		return Record{}, ErrConflict
	}
	rec := Record{ID: id, Rev: expectRev + 1, Body: cloneJSON(body)}
	q.records[pos] = rec
	q.notify(Event{Op: OpReplace, Container: q.name, Record: rec})
	return rec, nil
}

func (q *memSequence) Delete(ctx context.Context, id string, expectRev int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	pos, ok := q.index[id]
	if !ok {
		return ErrNotFound
	}
	if q.records[pos].Rev != expectRev {
		return ErrConflict
	}
	removed := q.records[pos]
	q.records = append(q.records[:pos], q.records[pos+1:]...)
	delete(q.index, id)
	for i := pos; i < len(q.records); i++ {
		q.index[q.records[i].ID] = i
	}
	q.notify(Event{Op: OpDelete, Container: q.name, Record: removed})
	return nil
}

func (q *memSequence) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records), nil
}

func (q *memSequence) Observe(fn func(Event)) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	ob := &observer{fn: fn, active: true}
	q.observers = append(q.observers, ob)
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		ob.active = false
	}
}

// notify is called with q.mu held; observers must not call back into the
// sequence synchronously.
func (q *memSequence) notify(ev Event) {
	for _, ob := range q.observers {
		if ob.active {
			ob.fn(ev)
		}
	}
}

// ── map ──────────────────────────────────────────────────────────────────────

type memMap struct {
	mu        sync.Mutex
	name      string
	values    map[string]json.RawMessage
	observers []*observer
}

func (m *memMap) Get(ctx context.Context, key string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJSON(v), nil
}

func (m *memMap) Set(ctx context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = cloneJSON(value)
	m.notify(Event{Op: OpSet, Container: m.name, Key: key})
	return nil
}

func (m *memMap) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return ErrNotFound
	}
	delete(m.values, key)
	m.notify(Event{Op: OpDelete, Container: m.name, Key: key})
	return nil
}

func (m *memMap) Snapshot(ctx context.Context) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]json.RawMessage, len(m.values))
	for k, v := range m.values {
		out[k] = cloneJSON(v)
	}
	return out, nil
}

func (m *memMap) Observe(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	ob := &observer{fn: fn, active: true}
	m.observers = append(m.observers, ob)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		ob.active = false
	}
}

func (m *memMap) notify(ev Event) {
	for _, ob := range m.observers {
		if ob.active {
			ob.fn(ev)
		}
	}
}

// ── helpers ──────────────────────────────────────────────────────────────────

func cloneJSON(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}

func cloneRecord(rec Record) Record {
	rec.Body = cloneJSON(rec.Body)
	return rec
}
