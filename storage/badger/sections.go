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
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/storage"
)

// CreateSection implements storage.SectionRepository. Content tokens are
// posted to the lexical index in the same transaction.
func (s *Store) CreateSection(ctx context.Context, sec *core.Section) (*core.Section, error) {
	if sec == nil {
		return nil, storage.ErrInvalidQuery
	}
	docKey, ok := recordKey(documentPrefix, sec.DocumentID)
	if !ok {
		return nil, storage.ErrNotFound
	}
	record := *sec
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(docKey); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		id, err := nextID(s.secSeq)
		if err != nil {
			return err
		}
		record.ID = formatID(id)

		if err := tx.Set([]byte(sectionPrefix+padded(id)), storage.MarshalSection(&record)); err != nil {
			return err
		}
		if err := tx.Set(makeSectionDocKey(record.DocumentID, record.Order), storage.MarshalID(record.ID)); err != nil {
			return err
		}
		for _, tok := range core.UniqueTokens(record.Content) {
			if err := tx.Set(makeTermKey(tok, id), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetSection implements storage.SectionRepository.
func (s *Store) GetSection(ctx context.Context, id core.ID) (*core.Section, error) {
	key, ok := recordKey(sectionPrefix, id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	var sec *core.Section
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		sec, err = readRecord(tx, key, storage.UnmarshalSection)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, storage.ErrNotFound
	}
	return sec, nil
}

// ListSections implements storage.SectionRepository.
func (s *Store) ListSections(ctx context.Context, documentID core.ID) ([]*core.Section, error) {
	if _, ok := parseID(documentID); !ok {
		return nil, nil
	}
	var sections []*core.Section
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSectionDocPrefix(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			sec, err := s.sectionFromIndex(tx, iter.Item())
			if err != nil {
				return err
			}
			if sec != nil {
				sections = append(sections, sec)
			}
		}
		return nil
	}, false)
	return sections, err
}

// SearchSections implements storage.SectionRepository. Sections are ranked
// by how many distinct query terms they contain, ties broken by ID.
func (s *Store) SearchSections(ctx context.Context, query, category string, limit int) ([]*core.Section, error) {
	tokens := core.UniqueTokens(query)
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	var results []*core.Section
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		hits := make(map[uint64]int)
		for _, tok := range tokens {
			prefix := makeTermPrefix(tok)
			for _, key := range collectKeys(tx, prefix) {
				if id, ok := termSection(key, prefix); ok {
					hits[id]++
				}
			}
		}

		type candidate struct {
			id   uint64
			hits int
		}
		ranked := make([]candidate, 0, len(hits))
		for id, n := range hits {
			ranked = append(ranked, candidate{id: id, hits: n})
		}
		slices.SortFunc(ranked, func(a, b candidate) int {
			if c := cmp.Compare(b.hits, a.hits); c != 0 {
				return c
			}
			return cmp.Compare(a.id, b.id)
		})

		categories := make(map[core.ID]string)
		for _, c := range ranked {
			if err := ctx.Err(); err != nil {
				return err
			}
			sec, err := readRecord(tx, []byte(sectionPrefix+padded(c.id)), storage.UnmarshalSection)
			if err != nil {
				return err
			}
			if sec == nil {
				continue
			}
			if category != "" {
				docCategory, seen := categories[sec.DocumentID]
				if !seen {
					docKey, _ := recordKey(documentPrefix, sec.DocumentID)
					doc, err := readRecord(tx, docKey, storage.UnmarshalDocument)
					if err != nil {
						return err
					}
					if doc != nil {
						docCategory = doc.Category
					}
					categories[sec.DocumentID] = docCategory
				}
				if docCategory != category {
					continue
				}
			}
			results = append(results, sec)
			if len(results) >= limit {
				break
			}
		}
		return nil
	}, false)
	return results, err
}

// sectionFromIndex follows a secdoc index entry to its section record.
func (s *Store) sectionFromIndex(tx *badger.Txn, item *badger.Item) (*core.Section, error) {
	var id core.ID
	err := item.Value(func(val []byte) error {
		var unmarshalErr error
		id, unmarshalErr = storage.UnmarshalID(val)
		return unmarshalErr
	})
	if err != nil {
		return nil, err
	}
	key, ok := recordKey(sectionPrefix, id)
	if !ok {
		return nil, nil
	}
	return readRecord(tx, key, storage.UnmarshalSection)
}

// deleteSection removes the section referenced by a secdoc key along with
// its postings and vector.
func (s *Store) deleteSection(tx *badger.Txn, secDocKey []byte) error {
	item, err := tx.Get(secDocKey)
	if err != nil {
		return err
	}
	sec, err := s.sectionFromIndex(tx, item)
	if err != nil {
		return err
	}
	if err := tx.Delete(secDocKey); err != nil {
		return err
	}
	if sec == nil {
		return nil
	}

	id, _ := parseID(sec.ID)
	for _, tok := range core.UniqueTokens(sec.Content) {
		if err := tx.Delete(makeTermKey(tok, id)); err != nil {
			return err
		}
	}
	if err := s.deleteVectorOf(tx, sec.ID); err != nil {
		return err
	}
	return tx.Delete([]byte(sectionPrefix + padded(id)))
}
