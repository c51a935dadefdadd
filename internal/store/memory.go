package store

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// MemoryStore is an in-process Store used by tests and local tooling. Every
// call holds the store lock, so Update is an atomic compare-and-set.
type MemoryStore struct {
	mu sync.Mutex

	collections map[string]map[string]Document
	seq         int64
	faults      map[faultKey]*fault
}

// fixed width so timestamps sort as strings
const timeLayout = "2006-01-02 15:04:05.000000000Z"

type faultKey struct {
	op         string
	collection string
}

type fault struct {
	err   error
	times int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
		faults:      make(map[faultKey]*fault),
	}
}

// FailNext makes the next `times` calls of op ("insert", "find", "update",
// "delete") on collection return err.
func (s *MemoryStore) FailNext(op, collection string, err error, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[faultKey{op, collection}] = &fault{err: err, times: times}
}

func (s *MemoryStore) injected(op, collection string) error {
	f, ok := s.faults[faultKey{op, collection}]
	if !ok || f.times == 0 {
		return nil
	}
	f.times--
	return f.err
}

func (s *MemoryStore) coll(name string) map[string]Document {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]Document)
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) insertLocked(collection string, doc Document) string {
	s.seq++
	now := time.Now().UTC().Add(time.Duration(s.seq)).Format(timeLayout)

	stored := maps.Clone(doc)
	if stored == nil {
		stored = Document{}
	}
	id := cast.ToString(stored["id"])
	if id == "" {
		id = uuid.NewString()
	}
	stored["id"] = id
	stored["created"] = now
	stored["updated"] = now

	s.coll(collection)[id] = stored
	return id
}

func (s *MemoryStore) Insert(_ context.Context, collection string, doc Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("insert", collection); err != nil {
		return "", err
	}
	return s.insertLocked(collection, doc), nil
}

func (s *MemoryStore) FindByID(_ context.Context, collection, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("find", collection); err != nil {
		return nil, err
	}
	doc, ok := s.coll(collection)[id]
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(doc), nil
}

func (s *MemoryStore) Find(_ context.Context, collection string, filter Filter) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("find", collection); err != nil {
		return nil, err
	}

	docs := []Document{}
	for _, doc := range s.coll(collection) {
		if matches(doc, filter) {
			docs = append(docs, maps.Clone(doc))
		}
	}

	// newest first, like the PocketBase adapter
	sort.Slice(docs, func(i, j int) bool {
		return cast.ToString(docs[i]["created"]) > cast.ToString(docs[j]["created"])
	})
	return docs, nil
}

func (s *MemoryStore) Update(_ context.Context, collection string, filter Filter, set Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("update", collection); err != nil {
		return 0, err
	}

	var n int64
	now := time.Now().UTC().Format(timeLayout)
	for _, doc := range s.coll(collection) {
		if !matches(doc, filter) {
			continue
		}
		maps.Copy(doc, set)
		doc["updated"] = now
		n++
	}
	return n, nil
}

func (s *MemoryStore) Delete(_ context.Context, collection string, filter Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("delete", collection); err != nil {
		return 0, err
	}

	var n int64
	c := s.coll(collection)
	for id, doc := range c {
		if matches(doc, filter) {
			delete(c, id)
			n++
		}
	}
	return n, nil
}

// matches compares loosely, the way SQLite compares a bound parameter with a
// stored column: bools against truthiness, everything else by string form.
func matches(doc Document, filter Filter) bool {
	for k, want := range filter {
		got := doc[k]
		if b, ok := want.(bool); ok {
			if cast.ToBool(got) != b {
				return false
			}
			continue
		}
		if cast.ToString(got) != cast.ToString(want) {
			return false
		}
	}
	return true
}
