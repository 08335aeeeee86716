package environ

// Map is a string map that remembers first-insertion order. Overwriting a
// key keeps its original position.
type Map struct {
	keys []string
	vals map[string]string
}

// NewMap returns an empty Map.
func NewMap() *Map { return &Map{vals: map[string]string{}} }

// Set stores v under k.
func (m *Map) Set(k, v string) {
	if _, ok := m.vals[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

// Get returns the value under k.
func (m *Map) Get(k string) (string, bool) {
	v, ok := m.vals[k]
	return v, ok
}

// Delete removes k.
func (m *Map) Delete(k string) {
	if _, ok := m.vals[k]; !ok {
		return
	}
	delete(m.vals, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len reports the number of keys.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string { return append([]string(nil), m.keys...) }

// Clone copies m.
func (m *Map) Clone() *Map {
	out := &Map{keys: append([]string(nil), m.keys...), vals: make(map[string]string, len(m.vals))}
	for k, v := range m.vals {
		out.vals[k] = v
	}
	return out
}

// Environ renders m as "KEY=value" entries in order, ready for
// exec.Cmd.Env.
func (m *Map) Environ() []string {
	out := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, k+"="+m.vals[k])
	}
	return out
}
