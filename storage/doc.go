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
// Package storage defines the persistence layer for codex.
//
// Retrieval, ingestion and the HTTP surface depend only on DocumentStore,
// which combines the document, section, vector and query log repositories.
// A concrete backend is chosen once at startup:
//
//   - badger: embedded BadgerDB, on disk or in memory
//   - mongo: MongoDB collections with a text index
//   - postgres: PostgreSQL through gorm, pgvector and tsvector ranking
//
// The redis package wraps any store and mirrors query log entries to a
// Redis stream.
//
// # IDs
//
// IDs are opaque strings minted by the backend that stored the record.
// An ID that a backend cannot parse is reported as ErrNotFound.
//
// # Deletion
//
// DeleteDocument removes the document, its sections and their vectors
// together. No orphaned sections or vectors remain afterwards.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
