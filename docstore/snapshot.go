package docstore

import (
	"time"

	"github.com/nasdf/meeple/record"
)

// Snapshot is an immutable copy of a document taken at ReadTime.
type Snapshot struct {
	Ref      *DocumentRef
	ReadTime time.Time

	rec    record.Record
	exists bool
}

func newSnapshot(ref *DocumentRef, rec record.Record, readTime time.Time) *Snapshot {
	return &Snapshot{
		Ref:      ref,
		ReadTime: readTime,
		rec:      rec,
		exists:   rec != nil,
	}
}

// Exists returns true if the document existed when the snapshot was taken.
func (s *Snapshot) Exists() bool {
	return s.exists
}

// ID returns the id of the document.
func (s *Snapshot) ID() string {
	return s.Ref.ID
}

// Data returns the document fields as go values, or nil if the document does not exist.
func (s *Snapshot) Data() map[string]any {
	if !s.exists {
		return nil
	}
	return s.rec.Map()
}

// Record returns a copy of the document fields, or nil if the document does not exist.
func (s *Snapshot) Record() record.Record {
	if !s.exists {
		return nil
	}
	return s.rec.Clone()
}

// DataAt returns the value of the field at the given dotted path.
func (s *Snapshot) DataAt(path string) (any, error) {
	if !s.exists {
		return nil, ErrNotFound
	}
	val, ok := s.rec.Lookup(path)
	if !ok {
		return nil, ErrFieldNotFound
	}
	return val.Interface(), nil
}
