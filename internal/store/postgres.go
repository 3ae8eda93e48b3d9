package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
)

// postgresStore backs the document containers with two tables. It is the
// durable server-side replica; the CAS semantics are the same as the memory
// store's, enforced with revision guards in the UPDATE/DELETE statements.
// Observers see local mutations only — cross-replica changes arrive through
// the sync substrate, not through this store.
type postgresStore struct {
	db   *sql.DB
	mu   sync.Mutex
	seqs map[string]*pgSequence
	maps map[string]*pgMap
}

// NewPostgres creates a store over an open database handle.
func NewPostgres(db *sql.DB) Store {
	return &postgresStore{
		db:   db,
		seqs: make(map[string]*pgSequence),
		maps: make(map[string]*pgMap),
	}
}

// Migrate creates the container tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS doc_sequences (
		  container TEXT   NOT NULL,
		  position  BIGSERIAL,
		  id        TEXT   NOT NULL,
		  rev       BIGINT NOT NULL,
		  body      JSONB  NOT NULL,
		  PRIMARY KEY (container, id)
		)`)
	if err != nil {
		return fmt.Errorf("create doc_sequences: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS doc_maps (
		  container TEXT  NOT NULL,
		  key       TEXT  NOT NULL,
		  value     JSONB NOT NULL,
		  PRIMARY KEY (container, key)
		)`)
	if err != nil {
		return fmt.Errorf("create doc_maps: %w", err)
	}
	return nil
}

func (s *postgresStore) Sequence(name string) Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq, ok := s.seqs[name]; ok {
		return seq
	}
	seq := &pgSequence{db: s.db, name: name}
	s.seqs[name] = seq
	return seq
}

func (s *postgresStore) Map(name string) Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.maps[name]; ok {
		return m
	}
	m := &pgMap{db: s.db, name: name}
	s.maps[name] = m
	return m
}

// ── sequence ─────────────────────────────────────────────────────────────────

type pgSequence struct {
	db        *sql.DB
	name      string
	mu        sync.Mutex
	observers []*observer
}

func (q *pgSequence) Append(ctx context.Context, id string, body json.RawMessage) (Record, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO doc_sequences (container, id, rev, body)
		VALUES ($1, $2, 1, $3)`,
		q.name, id, []byte(body))
	if err != nil {
		return Record{}, fmt.Errorf("append to %s: %w", q.name, err)
	}
	rec := Record{ID: id, Rev: 1, Body: cloneJSON(body)}
	q.notify(Event{Op: OpAppend, Container: q.name, Record: rec})
	return rec, nil
}

func (q *pgSequence) Get(ctx context.Context, id string) (Record, error) {
	rec := Record{ID: id}
	var body []byte
	err := q.db.QueryRowContext(ctx,
		`SELECT rev, body FROM doc_sequences WHERE container=$1 AND id=$2`,
		q.name, id).Scan(&rec.Rev, &body)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s from %s: %w", id, q.name, err)
	}
	rec.Body = body
	return rec, nil
}

func (q *pgSequence) Snapshot(ctx context.Context) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, rev, body FROM doc_sequences
		WHERE container=$1 ORDER BY position ASC`, q.name)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", q.name, err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		var body []byte
		if err := rows.Scan(&rec.ID, &rec.Rev, &body); err != nil {
			return nil, err
		}
		rec.Body = body
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (q *pgSequence) Replace(ctx context.Context, id string, expectRev int64, body json.RawMessage) (Record, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE doc_sequences SET rev=rev+1, body=$1
		WHERE container=$2 AND id=$3 AND rev=$4`,
		[]byte(body), q.name, id, expectRev)
	if err != nil {
		return Record{}, fmt.Errorf("replace %s in %s: %w", id, q.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Record{}, err
	}
	if n == 0 {
		// Either absent or a stale revision; one more read tells them apart.
		if _, err := q.Get(ctx, id); err != nil {
			return Record{}, err
		}
		return Record{}, ErrConflict
	}
	rec := Record{ID: id, Rev: expectRev + 1, Body: cloneJSON(body)}
	q.notify(Event{Op: OpReplace, Container: q.name, Record: rec})
	return rec, nil
}

func (q *pgSequence) Delete(ctx context.Context, id string, expectRev int64) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM doc_sequences WHERE container=$1 AND id=$2 AND rev=$3`,
		q.name, id, expectRev)
	if err != nil {
		return fmt.Errorf("delete %s from %s: %w", id, q.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := q.Get(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	q.notify(Event{Op: OpDelete, Container: q.name, Record: Record{ID: id, Rev: expectRev}})
	return nil
}

func (q *pgSequence) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM doc_sequences WHERE container=$1`, q.name).Scan(&n)
	return n, err
}

func (q *pgSequence) Observe(fn func(Event)) func() {
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

func (q *pgSequence) notify(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, ob := range q.observers {
		if ob.active {
			ob.fn(ev)
		}
	}
}

// ── map ──────────────────────────────────────────────────────────────────────

type pgMap struct {
	db        *sql.DB
	name      string
	mu        sync.Mutex
	observers []*observer
}

func (m *pgMap) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx,
		`SELECT value FROM doc_maps WHERE container=$1 AND key=$2`,
		m.name, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s from %s: %w", key, m.name, err)
	}
	return value, nil
}

func (m *pgMap) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO doc_maps (container, key, value) VALUES ($1,$2,$3)
		ON CONFLICT (container, key) DO UPDATE SET value=EXCLUDED.value`,
		m.name, key, []byte(value))
	if err != nil {
		return fmt.Errorf("set %s in %s: %w", key, m.name, err)
	}
	m.notify(Event{Op: OpSet, Container: m.name, Key: key})
	return nil
}

func (m *pgMap) Delete(ctx context.Context, key string) error {
	res, err := m.db.ExecContext(ctx,
		`DELETE FROM doc_maps WHERE container=$1 AND key=$2`, m.name, key)
	if err != nil {
		return fmt.Errorf("delete %s from %s: %w", key, m.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	m.notify(Event{Op: OpDelete, Container: m.name, Key: key})
	return nil
}

func (m *pgMap) Snapshot(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT key, value FROM doc_maps WHERE container=$1`, m.name)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", m.name, err)
	}
	defer rows.Close()
	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (m *pgMap) Observe(fn func(Event)) func() {
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

func (m *pgMap) notify(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ob := range m.observers {
		if ob.active {
			ob.fn(ev)
		}
	}
}
