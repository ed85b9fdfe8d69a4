package core

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Binary codecs for the records persisted by the embedded store.
// Timestamps are stored as UTC Unix microseconds.

var (
	IDMUS            = idMUS{}
	DocumentMUS      = documentMUS{}
	SectionMUS       = sectionMUS{}
	VectorMUS        = vectorMUS{}
	QueryLogEntryMUS = queryLogEntryMUS{}
	ComponentsMUS    = componentsMUS{}
)

var (
	_ mus.Serializer[ID]            = IDMUS
	_ mus.Serializer[Document]      = DocumentMUS
	_ mus.Serializer[Section]       = SectionMUS
	_ mus.Serializer[Vector]        = VectorMUS
	_ mus.Serializer[QueryLogEntry] = QueryLogEntryMUS
	_ mus.Serializer[[]float32]     = ComponentsMUS
)

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	str, n, err := ord.String.Unmarshal(bs)
	return ID(str), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return ord.String.Size(string(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	return ord.String.Skip(bs)
}

type timeMUS struct{}

var timestampMUS = timeMUS{}

func (s timeMUS) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UTC().UnixMicro(), bs)
}

func (s timeMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func (s timeMUS) Size(v time.Time) (size int) {
	return varint.Int64.Size(v.UTC().UnixMicro())
}

func (s timeMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

type componentsMUS struct{}

func (s componentsMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (s componentsMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 {
		return nil, n, ErrNegativeLength
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (s componentsMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

func (s componentsMUS) Skip(bs []byte) (n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	for range length {
		n1, err = raw.Float32.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Category, bs[n:])
	n += ord.String.Marshal(v.Jurisdiction, bs[n:])
	n += varint.Int.Marshal(v.Year, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += ord.String.Marshal(v.FullText, bs[n:])
	n += varint.Uint64.Marshal(uint64(v.Fingerprint), bs[n:])
	n += ord.String.Marshal(v.SourceName, bs[n:])
	n += timestampMUS.Marshal(v.CreatedAt, bs[n:])
	return
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	v.ID, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	if v.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Category, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Jurisdiction, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Year, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Description, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.FullText, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var fp uint64
	if fp, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Fingerprint = Fingerprint(fp)
	n += n1
	if v.SourceName, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.CreatedAt, n1, err = timestampMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.ID)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Category)
	size += ord.String.Size(v.Jurisdiction)
	size += varint.Int.Size(v.Year)
	size += ord.String.Size(v.Description)
	size += ord.String.Size(v.FullText)
	size += varint.Uint64.Size(uint64(v.Fingerprint))
	size += ord.String.Size(v.SourceName)
	return size + timestampMUS.Size(v.CreatedAt)
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type sectionMUS struct{}

func (s sectionMUS) Marshal(v Section, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += IDMUS.Marshal(v.DocumentID, bs[n:])
	n += ord.String.Marshal(v.Label, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += varint.Int.Marshal(v.Order, bs[n:])
	n += timestampMUS.Marshal(v.CreatedAt, bs[n:])
	return
}

func (s sectionMUS) Unmarshal(bs []byte) (v Section, n int, err error) {
	v.ID, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	if v.DocumentID, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Label, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Order, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.CreatedAt, n1, err = timestampMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s sectionMUS) Size(v Section) (size int) {
	size = IDMUS.Size(v.ID)
	size += IDMUS.Size(v.DocumentID)
	size += ord.String.Size(v.Label)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Content)
	size += varint.Int.Size(v.Order)
	return size + timestampMUS.Size(v.CreatedAt)
}

func (s sectionMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type vectorMUS struct{}

func (s vectorMUS) Marshal(v Vector, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += IDMUS.Marshal(v.SectionID, bs[n:])
	n += IDMUS.Marshal(v.DocumentID, bs[n:])
	n += ComponentsMUS.Marshal(v.Components, bs[n:])
	n += timestampMUS.Marshal(v.CreatedAt, bs[n:])
	return
}

func (s vectorMUS) Unmarshal(bs []byte) (v Vector, n int, err error) {
	v.ID, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	if v.SectionID, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.DocumentID, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Components, n1, err = ComponentsMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.CreatedAt, n1, err = timestampMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s vectorMUS) Size(v Vector) (size int) {
	size = IDMUS.Size(v.ID)
	size += IDMUS.Size(v.SectionID)
	size += IDMUS.Size(v.DocumentID)
	size += ComponentsMUS.Size(v.Components)
	return size + timestampMUS.Size(v.CreatedAt)
}

func (s vectorMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type queryLogEntryMUS struct{}

func (s queryLogEntryMUS) Marshal(v QueryLogEntry, bs []byte) (n int) {
	n = ord.String.Marshal(v.Query, bs)
	n += ord.String.Marshal(string(v.Mode), bs[n:])
	n += varint.Int.Marshal(v.ResultCount, bs[n:])
	n += timestampMUS.Marshal(v.Timestamp, bs[n:])
	return
}

func (s queryLogEntryMUS) Unmarshal(bs []byte) (v QueryLogEntry, n int, err error) {
	v.Query, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1   int
		mode string
	)
	if mode, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Mode = SearchMode(mode)
	n += n1
	if v.ResultCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.Timestamp, n1, err = timestampMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s queryLogEntryMUS) Size(v QueryLogEntry) (size int) {
	size = ord.String.Size(v.Query)
	size += ord.String.Size(string(v.Mode))
	size += varint.Int.Size(v.ResultCount)
	return size + timestampMUS.Size(v.Timestamp)
}

func (s queryLogEntryMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
