package scheduler

type entry struct {
	job     Job
	started bool
}

// orderedMap keeps jobs in submission order. Not safe for concurrent use;
// the Scheduler guards it.
type orderedMap struct {
	items map[string]*entry
	order []string
}

func newOrderedMap() *orderedMap {
	return &orderedMap{items: make(map[string]*entry)}
}

func (m *orderedMap) get(id string) (*entry, bool) {
	e, ok := m.items[id]
	return e, ok
}

func (m *orderedMap) set(id string, e *entry) {
	if _, ok := m.items[id]; !ok {
		m.order = append(m.order, id)
	}
	m.items[id] = e
}

func (m *orderedMap) delete(id string) bool {
	if _, ok := m.items[id]; !ok {
		return false
	}
	delete(m.items, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *orderedMap) len() int { return len(m.items) }

// firstN returns up to n entries in insertion order that pass keep.
func (m *orderedMap) firstN(n int, keep func(*entry) bool) []*entry {
	out := make([]*entry, 0, n)
	for _, id := range m.order {
		if len(out) == n {
			break
		}
		if e := m.items[id]; keep(e) {
			out = append(out, e)
		}
	}
	return out
}
