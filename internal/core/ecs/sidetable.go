package ecs

// Detachable is per-entity data kept outside the Store. The cleanup hook
// detaches a reclaimed entity from every table registered with a Registry.
type Detachable interface {
	Detach(id EntityID) bool
	Clear()
}

// SideTable maps entity ids to *T. Iteration order of the map is random, so
// callers that need a stable order walk the Store and look rows up here.
type SideTable[T any] struct {
	rows map[EntityID]*T
}

func NewSideTable[T any](sizeHint int) *SideTable[T] {
	return &SideTable[T]{rows: make(map[EntityID]*T, sizeHint)}
}

// Put replaces the row for id.
func (t *SideTable[T]) Put(id EntityID, row *T) { t.rows[id] = row }

func (t *SideTable[T]) Get(id EntityID) (*T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

// Detach drops the row for id and reports whether there was one.
func (t *SideTable[T]) Detach(id EntityID) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

func (t *SideTable[T]) Len() int { return len(t.rows) }

func (t *SideTable[T]) Clear() { clear(t.rows) }

// Registry is the set of side tables a world purges on entity removal.
type Registry struct {
	tables []Detachable
}

func NewRegistry() *Registry {
	return &Registry{tables: make([]Detachable, 0, 4)}
}

func (r *Registry) Register(t Detachable) {
	r.tables = append(r.tables, t)
}

// DetachAll removes id from every table and returns how many held it.
func (r *Registry) DetachAll(id EntityID) int {
	n := 0
	for _, t := range r.tables {
		if t.Detach(id) {
			n++
		}
	}
	return n
}

// ClearAll empties every table.
func (r *Registry) ClearAll() {
	for _, t := range r.tables {
		t.Clear()
	}
}
