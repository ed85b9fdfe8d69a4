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
// Package search provides hybrid lexical and semantic retrieval over
// document sections.
//
// The Retriever runs up to two phases for a query:
//   - Lexical search through the store's text index, every hit scored 1.0
//   - Vector search, cosine similarity between the query embedding and a
//     bounded pool of stored section vectors
//
// The phases are concatenated, stably sorted by score, deduplicated by
// section keeping the first occurrence, and truncated to the limit.
// Lexical hits therefore win ties with vector hits for the same section.
//
// AdvancedSearch layers jurisdiction and year filters on top and can
// optionally rerank the leading results with a question-answering model.
package search
