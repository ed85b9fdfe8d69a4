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
	"fmt"
	"strconv"

	"github.com/poiesic/codex/core"
)

// Key layout. Numeric IDs are zero-padded so lexicographic key order
// matches insertion order.
//
//	doc:<id>                     document record
//	docfp:<fingerprint>          document id by fingerprint
//	sec:<id>                     section record
//	secdoc:<doc>:<order>         section id by document and order
//	vec:<id>                     vector record
//	vecsec:<section>             vector id by section
//	term:<token>\x00<section>     lexical index posting, empty value
//	qlog:<id>                    query log entry
const (
	documentPrefix    = "doc:"
	fingerprintPrefix = "docfp:"
	sectionPrefix     = "sec:"
	sectionDocPrefix  = "secdoc:"
	vectorPrefix      = "vec:"
	vectorSecPrefix   = "vecsec:"
	termPrefix        = "term:"
	queryLogPrefix    = "qlog:"

	documentIDSeq = "seq:doc"
	sectionIDSeq  = "seq:sec"
	vectorIDSeq   = "seq:vec"
	queryLogIDSeq = "seq:qlog"
)

// parseID converts a core.ID minted by this store back to its number.
// IDs from other stores are not valid here.
func parseID(id core.ID) (uint64, bool) {
	n, err := strconv.ParseUint(string(id), 10, 64)
	return n, err == nil && n > 0
}

func formatID(n uint64) core.ID {
	return core.ID(strconv.FormatUint(n, 10))
}

func padded(n uint64) string {
	return fmt.Sprintf("%020d", n)
}

// recordKey builds prefix+padded(id). ok is false for foreign IDs.
func recordKey(prefix string, id core.ID) (key []byte, ok bool) {
	n, ok := parseID(id)
	if !ok {
		return nil, false
	}
	return []byte(prefix + padded(n)), true
}

func makeFingerprintKey(fp core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s%016x", fingerprintPrefix, uint64(fp)))
}

func makeSectionDocKey(documentID core.ID, order int) []byte {
	return []byte(fmt.Sprintf("%s%s:%010d", sectionDocPrefix, documentID, order))
}

func makeSectionDocPrefix(documentID core.ID) []byte {
	return []byte(sectionDocPrefix + string(documentID) + ":")
}

func makeVectorSecKey(sectionID core.ID) []byte {
	return []byte(vectorSecPrefix + string(sectionID))
}

func makeTermKey(token string, sectionID uint64) []byte {
	return []byte(termPrefix + token + "\x00" + padded(sectionID))
}

func makeTermPrefix(token string) []byte {
	return []byte(termPrefix + token + "\x00")
}

// termSection extracts the section number from a posting key.
func termSection(key, prefix []byte) (uint64, bool) {
	suffix := key[len(prefix):]
	if len(suffix) != 20 {
		return 0, false
	}
	n, err := strconv.ParseUint(string(suffix), 10, 64)
	return n, err == nil
}
