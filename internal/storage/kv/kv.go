// Package kv implements storage.Backend on an ordered key-value database.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	dbm "github.com/tendermint/tm-db"

	"defiScope/internal/storage"
)

// Key layout:
//
//	c/<collection>/id/<id>                          -> envelope
//	c/<collection>/ix/<partition>\x00<sort>\x00<id> -> id
//
// Sort keys are hex strings, so the \x00 separator sorts below every sort
// character and a partition prefix never matches a longer partition.
const sep = 0x00

type envelope struct {
	Partition string          `json:"p"`
	Sort      string          `json:"s"`
	Data      json.RawMessage `json:"d"`
}

// Store is a storage.Backend over a tm-db database.
type Store struct {
	db dbm.DB
	mu sync.Mutex
}

func New(db dbm.DB) *Store {
	return &Store{db: db}
}

// Open opens a GoLevelDB database named name under dir.
func Open(name, dir string) (*Store, error) {
	db, err := dbm.NewDB(name, dbm.GoLevelDBBackend, dir)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}
	return New(db), nil
}

// NewMemory returns a store backed by an in-memory database.
func NewMemory() *Store {
	return New(dbm.NewMemDB())
}

// DB exposes the underlying database.
func (s *Store) DB() dbm.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(_ context.Context, collection, id string) (storage.Record, error) {
	env, ok, err := s.load(collection, id)
	if err != nil {
		return storage.Record{}, err
	}
	if !ok {
		return storage.Record{}, storage.ErrNotFound
	}
	return storage.Record{ID: id, Partition: env.Partition, Sort: env.Sort, Data: env.Data}, nil
}

func (s *Store) Query(_ context.Context, collection, partition string, q storage.Query) ([]storage.Record, error) {
	prefix := partitionPrefix(collection, partition)

	start := prefix
	if q.GT != "" {
		start = append(append(clone(prefix), q.GT...), sep+1)
	}
	end := prefixEnd(prefix)
	if q.LT != "" {
		end = append(clone(prefix), q.LT...)
	}

	var (
		itr dbm.Iterator
		err error
	)
	if q.Ascending {
		itr, err = s.db.Iterator(start, end)
	} else {
		itr, err = s.db.ReverseIterator(start, end)
	}
	if err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}

	// Collect ids first: MemDB iterators hold a read lock until closed.
	var ids []string
	for ; itr.Valid(); itr.Next() {
		if q.Limit > 0 && len(ids) >= q.Limit {
			break
		}
		ids = append(ids, string(itr.Value()))
	}
	iterErr := itr.Error()
	itr.Close()
	if iterErr != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, iterErr)
	}

	records := make([]storage.Record, 0, len(ids))
	for _, id := range ids {
		env, ok, err := s.load(collection, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("index entry %q of %s has no record", id, collection)
		}
		records = append(records, storage.Record{ID: id, Partition: env.Partition, Sort: env.Sort, Data: env.Data})
	}
	return records, nil
}

func (s *Store) Put(_ context.Context, collection string, record storage.Record) error {
	value, err := json.Marshal(envelope{Partition: record.Partition, Sort: record.Sort, Data: record.Data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists, err := s.load(collection, record.ID)
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if exists && (prev.Partition != record.Partition || prev.Sort != record.Sort) {
		if err := batch.Delete(indexKey(collection, prev.Partition, prev.Sort, record.ID)); err != nil {
			return err
		}
	}
	if err := batch.Set(idKey(collection, record.ID), value); err != nil {
		return err
	}
	if err := batch.Set(indexKey(collection, record.Partition, record.Sort, record.ID), []byte(record.ID)); err != nil {
		return err
	}
	return batch.Write()
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists, err := s.load(collection, id)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Delete(indexKey(collection, prev.Partition, prev.Sort, id)); err != nil {
		return err
	}
	if err := batch.Delete(idKey(collection, id)); err != nil {
		return err
	}
	return batch.Write()
}

func (s *Store) load(collection, id string) (envelope, bool, error) {
	raw, err := s.db.Get(idKey(collection, id))
	if err != nil {
		return envelope{}, false, fmt.Errorf("get %s %s: %w", collection, id, err)
	}
	if raw == nil {
		return envelope{}, false, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, false, fmt.Errorf("decode %s %s: %w", collection, id, err)
	}
	return env, true, nil
}

func idKey(collection, id string) []byte {
	return []byte("c/" + collection + "/id/" + id)
}

func partitionPrefix(collection, partition string) []byte {
	var buf bytes.Buffer
	buf.WriteString("c/" + collection + "/ix/")
	buf.WriteString(partition)
	buf.WriteByte(sep)
	return buf.Bytes()
}

func indexKey(collection, partition, sort, id string) []byte {
	key := partitionPrefix(collection, partition)
	key = append(key, sort...)
	key = append(key, sep)
	return append(key, id...)
}

// prefixEnd returns the smallest key above every key starting with prefix.
// Prefixes end in sep, so bumping the last byte never overflows.
func prefixEnd(prefix []byte) []byte {
	end := clone(prefix)
	end[len(end)-1]++
	return end
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
