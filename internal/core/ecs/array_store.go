package ecs

// ArrayStore keeps whole records in one dense slice with an id→index map.
// Used by the sequential backend.
type ArrayStore struct {
	records  []Record
	index    map[EntityID]int
	capacity int
	ids      idCounter
}

// NewArrayStore creates a store holding at most capacity records.
func NewArrayStore(capacity int) *ArrayStore {
	return &ArrayStore{
		records:  make([]Record, 0, capacity),
		index:    make(map[EntityID]int, capacity),
		capacity: capacity,
	}
}

func (s *ArrayStore) Insert(r Record) (EntityID, error) {
	if len(s.records) >= s.capacity {
		return 0, ErrCapacityExceeded
	}
	r.ID = s.ids.take()
	s.index[r.ID] = len(s.records)
	s.records = append(s.records, r)
	return r.ID, nil
}

func (s *ArrayStore) Destroy(id EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	if s.records[i].State == StateActive {
		s.records[i].State = StatePendingDestroy
	}
}

func (s *ArrayStore) TryGet(id EntityID) (Record, bool) {
	i, ok := s.index[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

func (s *ArrayStore) IndexOf(id EntityID) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

func (s *ArrayStore) At(i int) Record { return s.records[i] }

func (s *ArrayStore) UpdateAt(i int, r Record) {
	r.ID = s.records[i].ID
	s.records[i] = r
}

func (s *ArrayStore) Len() int      { return len(s.records) }
func (s *ArrayStore) Capacity() int { return s.capacity }

func (s *ArrayStore) AppendAll(dst []Record) []Record {
	return append(dst, s.records...)
}

func (s *ArrayStore) RemovePending(fn func(Record)) int {
	removed := 0
	// 由尾端往前掃：被換進來的元素一定已經檢查過
	for i := len(s.records) - 1; i >= 0; i-- {
		if !s.records[i].IsRemovable() {
			continue
		}
		if fn != nil {
			fn(s.records[i])
		}
		s.swapRemove(i)
		removed++
	}
	return removed
}

// swapRemove overwrites slot i with the last record and shrinks by one,
// re-pointing the moved record's index entry in the same step.
func (s *ArrayStore) swapRemove(i int) {
	last := len(s.records) - 1
	gone := s.records[i].ID
	if i != last {
		moved := s.records[last]
		s.records[i] = moved
		s.index[moved.ID] = i
	}
	s.records[last] = Record{}
	s.records = s.records[:last]
	delete(s.index, gone)
}

func (s *ArrayStore) Clear() {
	clear(s.records)
	s.records = s.records[:0]
	clear(s.index)
}
