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

// CreateDocument implements storage.DocumentRepository.
func (s *Store) CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if doc == nil {
		return nil, core.ErrInvalidDocument
	}
	record := *doc
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		fpKey := makeFingerprintKey(record.Fingerprint)
		if _, err := tx.Get(fpKey); err == nil {
			return storage.ErrDuplicateDocument
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		id, err := nextID(s.docSeq)
		if err != nil {
			return err
		}
		record.ID = formatID(id)

		if err := tx.Set([]byte(documentPrefix+padded(id)), storage.MarshalDocument(&record)); err != nil {
			return err
		}
		if err := tx.Set(fpKey, storage.MarshalID(record.ID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetDocument implements storage.DocumentRepository.
func (s *Store) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	key, ok := recordKey(documentPrefix, id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	var doc *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = readRecord(tx, key, storage.UnmarshalDocument)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// FindDocumentByFingerprint implements storage.DocumentRepository.
func (s *Store) FindDocumentByFingerprint(ctx context.Context, fp core.Fingerprint) (*core.Document, error) {
	var doc *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeFingerprintKey(fp))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		var id core.ID
		err = item.Value(func(val []byte) error {
			var unmarshalErr error
			id, unmarshalErr = storage.UnmarshalID(val)
			return unmarshalErr
		})
		if err != nil {
			return err
		}
		key, ok := recordKey(documentPrefix, id)
		if !ok {
			return nil
		}
		doc, err = readRecord(tx, key, storage.UnmarshalDocument)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// ListDocuments implements storage.DocumentRepository.
// Documents are walked in reverse key order, which is newest first.
func (s *Store) ListDocuments(ctx context.Context, filter storage.DocumentFilter) ([]*core.Document, int64, error) {
	var (
		page  []*core.Document
		total int64
	)
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(documentPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		seekKey := append([]byte(documentPrefix), 0xFF)
		for iter.Seek(seekKey); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				doc, unmarshalErr = storage.UnmarshalDocument(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			if filter.Category != "" && doc.Category != filter.Category {
				continue
			}
			total++
			if total <= int64(filter.Offset) {
				continue
			}
			if filter.Limit > 0 && len(page) >= filter.Limit {
				continue
			}
			page = append(page, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, 0, err
	}
	return page, total, nil
}

// DeleteDocument implements storage.DocumentRepository. The document, its
// sections, their postings and their vectors go in one transaction.
func (s *Store) DeleteDocument(ctx context.Context, id core.ID) error {
	key, ok := recordKey(documentPrefix, id)
	if !ok {
		return storage.ErrNotFound
	}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readRecord(tx, key, storage.UnmarshalDocument)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		for _, secDocKey := range collectKeys(tx, makeSectionDocPrefix(doc.ID)) {
			if err := s.deleteSection(tx, secDocKey); err != nil {
				return err
			}
		}

		if err := tx.Delete(makeFingerprintKey(doc.Fingerprint)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}
	s.logger.Debug("deleted document", "document_id", id)
	return nil
}
