// Package ingestion turns raw legal text into stored documents, sections
// and section vectors.
//
// The Pipeline ingests one document at a time:
//   - Defaults are filled in and the document is validated.
//   - Duplicate text is rejected by fingerprint.
//   - The text is split into sections, each stored and embedded in order.
//
// A failure after the document is stored rolls the document back, so a
// partially embedded document is never left behind.
//
// The Importer feeds many files through a Pipeline using a bounded worker
// pool and reports progress as files complete.
package ingestion
