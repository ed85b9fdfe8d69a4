// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package badger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/storage"
)

// KindName identifies this backend in stats and health output.
const KindName = "badger"

// Store implements storage.DocumentStore on an embedded BadgerDB.
type Store struct {
	backend     *Backend
	ownsBackend bool
	logger      *slog.Logger

	docSeq  *badger.Sequence
	secSeq  *badger.Sequence
	vecSeq  *badger.Sequence
	qlogSeq *badger.Sequence
}

var _ storage.DocumentStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. A nil logger means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens a store at path, or an in-memory store when inMemory is set.
// The store owns the backend and closes it on Close.
func Open(path string, inMemory bool, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	backend, err := OpenBackend(path, inMemory, s.logger)
	if err != nil {
		return nil, errors.Join(storage.ErrUnavailable, err)
	}
	store, err := NewStore(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	store.ownsBackend = true
	return store, nil
}

// NewStore creates a store on an already opened backend.
func NewStore(backend *Backend, opts ...Option) (*Store, error) {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "badger-store")

	seqs := []struct {
		name string
		dst  **badger.Sequence
	}{
		{documentIDSeq, &s.docSeq},
		{sectionIDSeq, &s.secSeq},
		{vectorIDSeq, &s.vecSeq},
		{queryLogIDSeq, &s.qlogSeq},
	}
	for _, seq := range seqs {
		got, err := backend.GetSequence(seq.name)
		if err != nil {
			s.releaseSequences()
			return nil, err
		}
		*seq.dst = got
	}
	return s, nil
}

// Kind implements storage.DocumentStore.
func (s *Store) Kind() string {
	return KindName
}

// Close releases the ID sequences and, when owned, the backend.
func (s *Store) Close() error {
	err := s.releaseSequences()
	if s.ownsBackend && !s.backend.IsClosed() {
		err = errors.Join(err, s.backend.Close())
	}
	return err
}

func (s *Store) releaseSequences() error {
	var err error
	for _, seq := range []**badger.Sequence{&s.docSeq, &s.secSeq, &s.vecSeq, &s.qlogSeq} {
		if *seq != nil {
			err = errors.Join(err, (*seq).Release())
			*seq = nil
		}
	}
	return err
}

// nextID returns the next value of seq. Sequences can return 0 on the
// first call, which is never used as an ID.
func nextID(seq *badger.Sequence) (uint64, error) {
	if seq == nil {
		return 0, storage.ErrStorageClosed
	}
	id, err := seq.Next()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return seq.Next()
	}
	return id, nil
}

// Stats implements storage.DocumentStore.
func (s *Store) Stats(ctx context.Context) (core.StoreStats, error) {
	var stats core.StoreStats
	counts := []struct {
		prefix string
		dst    *int64
	}{
		{documentPrefix, &stats.Documents},
		{sectionPrefix, &stats.Sections},
		{vectorPrefix, &stats.Vectors},
		{queryLogPrefix, &stats.Queries},
	}
	for _, c := range counts {
		n, err := s.backend.CountPrefix([]byte(c.prefix))
		if err != nil {
			return stats, err
		}
		*c.dst = n
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(queryLogPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.QueryLogEntry
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				entry, unmarshalErr = storage.UnmarshalQueryLogEntry(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			if entry.Mode == core.ModeVector {
				stats.AIQueries++
			}
		}
		return nil
	}, false)
	return stats, err
}

// AppendQuery implements storage.QueryLogRepository.
func (s *Store) AppendQuery(ctx context.Context, entry core.QueryLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(s.qlogSeq)
		if err != nil {
			return err
		}
		key := []byte(queryLogPrefix + padded(id))
		if err := tx.Set(key, storage.MarshalQueryLogEntry(&entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readRecord reads and decodes the value at key. A missing key yields nil, nil.
func readRecord[T any](tx *badger.Txn, key []byte, decode func([]byte) (*T, error)) (*T, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var record *T
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = decode(val)
		return unmarshalErr
	})
	return record, err
}

// collectKeys returns copies of every key under prefix.
func collectKeys(tx *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys
}
