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
package storage

import (
	"fmt"

	"github.com/mus-format/mus-go"
	"github.com/poiesic/codex/core"
)

// Marshal serializes v with the given codec.
func Marshal[T any](ser mus.Serializer[T], v T) []byte {
	buf := make([]byte, ser.Size(v))
	ser.Marshal(v, buf)
	return buf
}

// Unmarshal deserializes data with the given codec.
func Unmarshal[T any](ser mus.Serializer[T], data []byte) (*T, error) {
	v, _, err := ser.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &v, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	return Marshal[core.Document](core.DocumentMUS, *doc)
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	return Unmarshal[core.Document](core.DocumentMUS, data)
}

// MarshalSection serializes a Section to bytes.
func MarshalSection(sec *core.Section) []byte {
	return Marshal[core.Section](core.SectionMUS, *sec)
}

// UnmarshalSection deserializes a Section from bytes.
func UnmarshalSection(data []byte) (*core.Section, error) {
	return Unmarshal[core.Section](core.SectionMUS, data)
}

// MarshalVector serializes a Vector to bytes.
func MarshalVector(vec *core.Vector) []byte {
	return Marshal[core.Vector](core.VectorMUS, *vec)
}

// UnmarshalVector deserializes a Vector from bytes.
func UnmarshalVector(data []byte) (*core.Vector, error) {
	return Unmarshal[core.Vector](core.VectorMUS, data)
}

// MarshalQueryLogEntry serializes a QueryLogEntry to bytes.
func MarshalQueryLogEntry(entry *core.QueryLogEntry) []byte {
	return Marshal[core.QueryLogEntry](core.QueryLogEntryMUS, *entry)
}

// UnmarshalQueryLogEntry deserializes a QueryLogEntry from bytes.
func UnmarshalQueryLogEntry(data []byte) (*core.QueryLogEntry, error) {
	return Unmarshal[core.QueryLogEntry](core.QueryLogEntryMUS, data)
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	return Marshal[core.ID](core.IDMUS, id)
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, err := Unmarshal[core.ID](core.IDMUS, data)
	if err != nil {
		return "", err
	}
	return *id, nil
}
