package ecs

import "errors"

// ErrCapacityExceeded is returned by Insert when the store is full. No id is
// consumed and no partial record is created.
var ErrCapacityExceeded = errors.New("entity capacity exceeded")

// Store is the authoritative entity container shared by every subsystem.
//
// Records live in a dense, order-unstable sequence. Removal swaps the last
// record into the hole, so an index is only valid until the next removal;
// EntityID is the only stable handle.
type Store interface {
	// Insert assigns the next id to r and appends it.
	Insert(r Record) (EntityID, error)
	// Destroy flags the record PendingDestroy. Unknown ids and repeated calls
	// are no-ops.
	Destroy(id EntityID)
	TryGet(id EntityID) (Record, bool)
	IndexOf(id EntityID) (int, bool)
	// At returns a copy of the record at index i.
	At(i int) Record
	// UpdateAt overwrites the record at index i. The stored id is preserved.
	UpdateAt(i int, r Record)
	Len() int
	Capacity() int
	// AppendAll appends every record in storage order to dst.
	AppendAll(dst []Record) []Record
	// RemovePending swap-removes every Dead or PendingDestroy record, calling
	// fn with each one before it is dropped. Returns the number removed.
	RemovePending(fn func(Record)) int
	// Clear drops every record. The id counter keeps counting.
	Clear()
}

// Update writes r back to the record with the given id.
func Update(s Store, id EntityID, r Record) bool {
	i, ok := s.IndexOf(id)
	if !ok {
		return false
	}
	s.UpdateAt(i, r)
	return true
}

// Modify applies fn to the record with the given id and stores the result.
func Modify(s Store, id EntityID, fn func(*Record)) bool {
	i, ok := s.IndexOf(id)
	if !ok {
		return false
	}
	r := s.At(i)
	fn(&r)
	s.UpdateAt(i, r)
	return true
}

// ForEach visits every record by index, writing back any modification. fn
// must not insert or remove records.
func ForEach(s Store, fn func(i int, r *Record)) {
	n := s.Len()
	for i := 0; i < n; i++ {
		r := s.At(i)
		before := r
		fn(i, &r)
		if r != before {
			s.UpdateAt(i, r)
		}
	}
}

// idCounter hands out monotonically increasing ids starting at 1.
type idCounter struct {
	next EntityID
}

func (c *idCounter) take() EntityID {
	c.next++
	return c.next
}
