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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/storage"
)

// CreateVector implements storage.VectorRepository.
func (s *Store) CreateVector(ctx context.Context, vec *core.Vector) (*core.Vector, error) {
	if vec == nil {
		return nil, storage.ErrInvalidQuery
	}
	secKey, ok := recordKey(sectionPrefix, vec.SectionID)
	if !ok {
		return nil, storage.ErrNotFound
	}
	record := *vec
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		sec, err := readRecord(tx, secKey, storage.UnmarshalSection)
		if err != nil {
			return err
		}
		if sec == nil {
			return storage.ErrNotFound
		}
		if record.DocumentID == "" {
			record.DocumentID = sec.DocumentID
		}

		indexKey := makeVectorSecKey(record.SectionID)
		if _, err := tx.Get(indexKey); err == nil {
			return storage.ErrDuplicateKey
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		id, err := nextID(s.vecSeq)
		if err != nil {
			return err
		}
		record.ID = formatID(id)

		if err := tx.Set([]byte(vectorPrefix+padded(id)), storage.MarshalVector(&record)); err != nil {
			return err
		}
		if err := tx.Set(indexKey, storage.MarshalID(record.ID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetVector implements storage.VectorRepository.
func (s *Store) GetVector(ctx context.Context, id core.ID) (*core.Vector, error) {
	key, ok := recordKey(vectorPrefix, id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	var vec *core.Vector
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		vec, err = readRecord(tx, key, storage.UnmarshalVector)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if vec == nil {
		return nil, storage.ErrNotFound
	}
	return vec, nil
}

// GetVectorBySection implements storage.VectorRepository.
func (s *Store) GetVectorBySection(ctx context.Context, sectionID core.ID) (*core.Vector, error) {
	var vec *core.Vector
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		key, err := s.vectorKeyOf(tx, sectionID)
		if err != nil || key == nil {
			return err
		}
		vec, err = readRecord(tx, key, storage.UnmarshalVector)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if vec == nil {
		return nil, storage.ErrNotFound
	}
	return vec, nil
}

// ScanVectors implements storage.VectorRepository. A non-positive limit
// returns every vector.
func (s *Store) ScanVectors(ctx context.Context, limit int) ([]*core.Vector, error) {
	var vectors []*core.Vector
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(vectors) >= limit {
				break
			}
			var vec *core.Vector
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				vec, unmarshalErr = storage.UnmarshalVector(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			vectors = append(vectors, vec)
		}
		return nil
	}, false)
	return vectors, err
}

// vectorKeyOf resolves the vector record key for a section, or nil.
func (s *Store) vectorKeyOf(tx *badger.Txn, sectionID core.ID) ([]byte, error) {
	item, err := tx.Get(makeVectorSecKey(sectionID))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var id core.ID
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		id, unmarshalErr = storage.UnmarshalID(val)
		return unmarshalErr
	})
	if err != nil {
		return nil, err
	}
	key, _ := recordKey(vectorPrefix, id)
	return key, nil
}

func (s *Store) deleteVectorOf(tx *badger.Txn, sectionID core.ID) error {
	key, err := s.vectorKeyOf(tx, sectionID)
	if err != nil || key == nil {
		return err
	}
	if err := tx.Delete(key); err != nil {
		return err
	}
	return tx.Delete(makeVectorSecKey(sectionID))
}
