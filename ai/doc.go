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

// Package ai provides abstractions for the AI services used by codex.
//
// The package defines the provider-facing interfaces:
//
//   - Embedder: turns text into a fixed-length vector
//   - QuestionAnswerer: extracts an answer to a question from a context
//   - Summarizer: condenses a document
//   - AIProvider: aggregates the three for lifecycle management
//
// # Configuration
//
// A Config is constructed once at process start and handed to provider
// constructors. Nothing in this package or its implementations reads
// environment variables.
//
//	cfg := ai.NewConfig(ai.WithToken(token))
//	provider, err := hf.NewProvider(cfg)
//
// # Fallback hashing
//
// Remote embedding can fail for many reasons. FallbackEmbedder wraps any
// Embedder and substitutes HashEmbedding on failure, so retrieval always
// has a vector to score. HashEmbedding is a pure function of the text and
// is stable across runs and platforms.
//
// # Implementation Packages
//
//   - ai/hf: hosted Hugging Face inference API over HTTP
//   - ai/openai: OpenAI-compatible servers through langchaingo
//   - ai/mock: test doubles
package ai
