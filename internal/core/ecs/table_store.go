package ecs

// TableStore keeps records as parallel columns (struct of arrays) with an
// id→row map. Every column shares the same row order; removal swap-removes
// the same row from all columns at once. Used by the high-throughput backend,
// which hands column slices to batch integrators.
type TableStore struct {
	ids       []EntityID
	kinds     []Kind
	states    []State
	configIDs []int32
	camps     []int32

	positions   []Vec2
	headings    []Vec2
	moveTargets []Vec2
	moving      []bool
	speeds      []float64

	hp      []int32
	maxHP   []int32
	attack  []int32
	defense []int32

	createdAt   []float64
	elapsedLife []float64
	maxLife     []float64

	index    map[EntityID]int
	capacity int
	counter  idCounter
}

// NewTableStore creates a columnar store holding at most capacity records.
func NewTableStore(capacity int) *TableStore {
	return &TableStore{
		ids:         make([]EntityID, 0, capacity),
		kinds:       make([]Kind, 0, capacity),
		states:      make([]State, 0, capacity),
		configIDs:   make([]int32, 0, capacity),
		camps:       make([]int32, 0, capacity),
		positions:   make([]Vec2, 0, capacity),
		headings:    make([]Vec2, 0, capacity),
		moveTargets: make([]Vec2, 0, capacity),
		moving:      make([]bool, 0, capacity),
		speeds:      make([]float64, 0, capacity),
		hp:          make([]int32, 0, capacity),
		maxHP:       make([]int32, 0, capacity),
		attack:      make([]int32, 0, capacity),
		defense:     make([]int32, 0, capacity),
		createdAt:   make([]float64, 0, capacity),
		elapsedLife: make([]float64, 0, capacity),
		maxLife:     make([]float64, 0, capacity),
		index:       make(map[EntityID]int, capacity),
		capacity:    capacity,
	}
}

func (s *TableStore) Insert(r Record) (EntityID, error) {
	if len(s.ids) >= s.capacity {
		return 0, ErrCapacityExceeded
	}
	r.ID = s.counter.take()
	s.index[r.ID] = len(s.ids)
	s.ids = append(s.ids, r.ID)
	s.kinds = append(s.kinds, r.Kind)
	s.states = append(s.states, r.State)
	s.configIDs = append(s.configIDs, r.ConfigID)
	s.camps = append(s.camps, r.CampID)
	s.positions = append(s.positions, r.Position)
	s.headings = append(s.headings, r.Heading)
	s.moveTargets = append(s.moveTargets, r.MoveTarget)
	s.moving = append(s.moving, r.IsMoving)
	s.speeds = append(s.speeds, r.MoveSpeed)
	s.hp = append(s.hp, r.HP)
	s.maxHP = append(s.maxHP, r.MaxHP)
	s.attack = append(s.attack, r.Attack)
	s.defense = append(s.defense, r.Defense)
	s.createdAt = append(s.createdAt, r.CreatedAt)
	s.elapsedLife = append(s.elapsedLife, r.ElapsedLife)
	s.maxLife = append(s.maxLife, r.MaxLife)
	return r.ID, nil
}

func (s *TableStore) Destroy(id EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	if s.states[i] == StateActive {
		s.states[i] = StatePendingDestroy
	}
}

func (s *TableStore) TryGet(id EntityID) (Record, bool) {
	i, ok := s.index[id]
	if !ok {
		return Record{}, false
	}
	return s.At(i), true
}

func (s *TableStore) IndexOf(id EntityID) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// At gathers row i into a Record.
func (s *TableStore) At(i int) Record {
	return Record{
		ID:          s.ids[i],
		Kind:        s.kinds[i],
		State:       s.states[i],
		ConfigID:    s.configIDs[i],
		CampID:      s.camps[i],
		Position:    s.positions[i],
		Heading:     s.headings[i],
		MoveTarget:  s.moveTargets[i],
		IsMoving:    s.moving[i],
		MoveSpeed:   s.speeds[i],
		HP:          s.hp[i],
		MaxHP:       s.maxHP[i],
		Attack:      s.attack[i],
		Defense:     s.defense[i],
		CreatedAt:   s.createdAt[i],
		ElapsedLife: s.elapsedLife[i],
		MaxLife:     s.maxLife[i],
	}
}

// UpdateAt scatters r into row i. The stored id is preserved.
func (s *TableStore) UpdateAt(i int, r Record) {
	s.kinds[i] = r.Kind
	s.states[i] = r.State
	s.configIDs[i] = r.ConfigID
	s.camps[i] = r.CampID
	s.positions[i] = r.Position
	s.headings[i] = r.Heading
	s.moveTargets[i] = r.MoveTarget
	s.moving[i] = r.IsMoving
	s.speeds[i] = r.MoveSpeed
	s.hp[i] = r.HP
	s.maxHP[i] = r.MaxHP
	s.attack[i] = r.Attack
	s.defense[i] = r.Defense
	s.createdAt[i] = r.CreatedAt
	s.elapsedLife[i] = r.ElapsedLife
	s.maxLife[i] = r.MaxLife
}

func (s *TableStore) Len() int      { return len(s.ids) }
func (s *TableStore) Capacity() int { return s.capacity }

func (s *TableStore) AppendAll(dst []Record) []Record {
	for i := range s.ids {
		dst = append(dst, s.At(i))
	}
	return dst
}

func (s *TableStore) RemovePending(fn func(Record)) int {
	removed := 0
	for i := len(s.ids) - 1; i >= 0; i-- {
		if s.states[i] != StateDead && s.states[i] != StatePendingDestroy {
			continue
		}
		if fn != nil {
			fn(s.At(i))
		}
		s.swapRemove(i)
		removed++
	}
	return removed
}

func (s *TableStore) swapRemove(i int) {
	last := len(s.ids) - 1
	gone := s.ids[i]
	if i != last {
		s.index[s.ids[last]] = i
		s.ids[i] = s.ids[last]
		s.kinds[i] = s.kinds[last]
		s.states[i] = s.states[last]
		s.configIDs[i] = s.configIDs[last]
		s.camps[i] = s.camps[last]
		s.positions[i] = s.positions[last]
		s.headings[i] = s.headings[last]
		s.moveTargets[i] = s.moveTargets[last]
		s.moving[i] = s.moving[last]
		s.speeds[i] = s.speeds[last]
		s.hp[i] = s.hp[last]
		s.maxHP[i] = s.maxHP[last]
		s.attack[i] = s.attack[last]
		s.defense[i] = s.defense[last]
		s.createdAt[i] = s.createdAt[last]
		s.elapsedLife[i] = s.elapsedLife[last]
		s.maxLife[i] = s.maxLife[last]
	}
	s.truncate(last)
	delete(s.index, gone)
}

func (s *TableStore) truncate(n int) {
	s.ids = s.ids[:n]
	s.kinds = s.kinds[:n]
	s.states = s.states[:n]
	s.configIDs = s.configIDs[:n]
	s.camps = s.camps[:n]
	s.positions = s.positions[:n]
	s.headings = s.headings[:n]
	s.moveTargets = s.moveTargets[:n]
	s.moving = s.moving[:n]
	s.speeds = s.speeds[:n]
	s.hp = s.hp[:n]
	s.maxHP = s.maxHP[:n]
	s.attack = s.attack[:n]
	s.defense = s.defense[:n]
	s.createdAt = s.createdAt[:n]
	s.elapsedLife = s.elapsedLife[:n]
	s.maxLife = s.maxLife[:n]
}

func (s *TableStore) Clear() {
	s.truncate(0)
	clear(s.index)
}

// MoveColumns exposes the columns touched by movement integration. Slices
// alias the store; rows may be written concurrently as long as each row is
// owned by exactly one writer.
type MoveColumns struct {
	IDs         []EntityID
	States      []State
	Positions   []Vec2
	Headings    []Vec2
	MoveTargets []Vec2
	Moving      []bool
	Speeds      []float64
}

// ColumnStore is implemented by stores that can hand out movement columns.
type ColumnStore interface {
	Store
	MoveColumns() MoveColumns
}

func (s *TableStore) MoveColumns() MoveColumns {
	return MoveColumns{
		IDs:         s.ids,
		States:      s.states,
		Positions:   s.positions,
		Headings:    s.headings,
		MoveTargets: s.moveTargets,
		Moving:      s.moving,
		Speeds:      s.speeds,
	}
}
