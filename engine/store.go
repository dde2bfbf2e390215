package engine

import (
	"bytes"
	"sort"
	"sync"
	"time"
)

// StateStore is a named, queryable materialized view maintained by an engine
// instance. Concrete capability sets are expressed by the ReadOnly* interfaces
// and discriminated by StoreType.
type StateStore interface {
	Name() string
}

// KeyValuePair is a single entry returned by range scans.
type KeyValuePair struct {
	Key   []byte
	Value []byte
}

// ReadOnlyKeyValueStore exposes point lookups and range scans over the latest
// value per key.
type ReadOnlyKeyValueStore interface {
	StateStore

	// Get returns the latest value for key, or false if the key is absent.
	Get(key []byte) ([]byte, bool)

	// Range returns entries with from <= key <= to in key order. A nil bound
	// leaves that side open.
	Range(from, to []byte) []KeyValuePair

	// ApproximateNumEntries returns an estimate of the number of keys stored.
	ApproximateNumEntries() int
}

// KeyValueStore is the writable contract used by the engine while processing.
// The query service only ever hands out the read-only view.
type KeyValueStore interface {
	ReadOnlyKeyValueStore

	Put(key, value []byte)
	Delete(key []byte)
}

// WindowedValue is a value recorded for a key within a time window.
type WindowedValue struct {
	Start time.Time
	End   time.Time
	Value []byte
}

// ReadOnlyWindowStore exposes time-windowed fetches per key.
type ReadOnlyWindowStore interface {
	StateStore

	// Fetch returns the values recorded for key in windows overlapping
	// [from, to], ordered by window start time.
	Fetch(key []byte, from, to time.Time) []WindowedValue
}

// WindowStore is the writable windowed contract used by the engine.
type WindowStore interface {
	ReadOnlyWindowStore

	Put(key, value []byte, windowStart time.Time)
}

// Session is a session window with its aggregated value.
type Session struct {
	Start time.Time
	End   time.Time
	Value []byte
}

// ReadOnlySessionStore exposes session-windowed fetches per key.
type ReadOnlySessionStore interface {
	StateStore

	// FetchSessions returns all sessions recorded for key, ordered by start time.
	FetchSessions(key []byte) []Session
}

// SessionStore is the writable session contract used by the engine.
type SessionStore interface {
	ReadOnlySessionStore

	PutSession(key []byte, s Session)
}

// NewStore builds an in-memory store matching the given type. It powers the
// process-local engine; a persistent engine would supply its own stores.
func NewStore(name string, typ StoreType) StateStore {
	switch typ.Name() {
	case WindowStoreType.Name():
		return NewMemoryWindowStore(name, time.Minute)
	case SessionStoreType.Name():
		return NewMemorySessionStore(name)
	default:
		return NewMemoryKeyValueStore(name)
	}
}

type memoryKeyValueStore struct {
	name string

	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryKeyValueStore returns an empty in-memory key-value store.
func NewMemoryKeyValueStore(name string) KeyValueStore {
	return &memoryKeyValueStore{
		name:    name,
		entries: make(map[string][]byte),
	}
}

func (s *memoryKeyValueStore) Name() string { return s.name }

func (s *memoryKeyValueStore) Get(key []byte) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[string(key)]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (s *memoryKeyValueStore) Put(key, value []byte) {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[string(key)] = stored
}

func (s *memoryKeyValueStore) Delete(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, string(key))
}

func (s *memoryKeyValueStore) Range(from, to []byte) []KeyValuePair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		if from != nil && bytes.Compare([]byte(k), from) < 0 {
			continue
		}
		if to != nil && bytes.Compare([]byte(k), to) > 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]KeyValuePair, 0, len(keys))
	for _, k := range keys {
		v := s.entries[k]
		value := make([]byte, len(v))
		copy(value, v)
		pairs = append(pairs, KeyValuePair{Key: []byte(k), Value: value})
	}
	return pairs
}

func (s *memoryKeyValueStore) ApproximateNumEntries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

type memoryWindowStore struct {
	name       string
	windowSize time.Duration

	mu      sync.RWMutex
	windows map[string][]WindowedValue
}

// NewMemoryWindowStore returns an empty in-memory window store with fixed-size
// windows.
func NewMemoryWindowStore(name string, windowSize time.Duration) WindowStore {
	return &memoryWindowStore{
		name:       name,
		windowSize: windowSize,
		windows:    make(map[string][]WindowedValue),
	}
}

func (s *memoryWindowStore) Name() string { return s.name }

func (s *memoryWindowStore) Put(key, value []byte, windowStart time.Time) {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[string(key)] = append(s.windows[string(key)], WindowedValue{
		Start: windowStart,
		End:   windowStart.Add(s.windowSize),
		Value: stored,
	})
}

func (s *memoryWindowStore) Fetch(key []byte, from, to time.Time) []WindowedValue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []WindowedValue
	for _, w := range s.windows[string(key)] {
		if w.End.Before(from) || w.Start.After(to) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

type memorySessionStore struct {
	name string

	mu       sync.RWMutex
	sessions map[string][]Session
}

// NewMemorySessionStore returns an empty in-memory session store.
func NewMemorySessionStore(name string) SessionStore {
	return &memorySessionStore{
		name:     name,
		sessions: make(map[string][]Session),
	}
}

func (s *memorySessionStore) Name() string { return s.name }

func (s *memorySessionStore) PutSession(key []byte, sess Session) {
	stored := make([]byte, len(sess.Value))
	copy(stored, sess.Value)
	sess.Value = stored

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[string(key)] = append(s.sessions[string(key)], sess)
}

func (s *memorySessionStore) FetchSessions(key []byte) []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, len(s.sessions[string(key)]))
	copy(out, s.sessions[string(key)])
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
