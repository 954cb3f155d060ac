package value

import "github.com/dolthub/swiss"

// Table is the open-indexed string-keyed map backing method tables,
// static-field tables, instance field maps, and Lit's `Map` class
// (spec §4.2). It wraps a SwissTable-style open-addressed map, the same
// approach the teacher uses for its own `machine.Map`.
type Table struct {
	m *swiss.Map[string, Value]
}

// NewTable returns a Table with initial capacity for at least size
// entries.
func NewTable(size int) *Table {
	if size < 1 {
		size = 1
	}
	return &Table{m: swiss.NewMap[string, Value](uint32(size))}
}

// Get returns the value stored at key, and whether it was present.
func (t *Table) Get(key string) (Value, bool) { return t.m.Get(key) }

// Set stores value at key, inserting or overwriting.
func (t *Table) Set(key string, v Value) { t.m.Put(key, v) }

// Remove deletes key, reporting whether it had been present.
func (t *Table) Remove(key string) bool { return t.m.Delete(key) }

// Has reports whether key is present.
func (t *Table) Has(key string) bool { return t.m.Has(key) }

// Len returns the number of entries.
func (t *Table) Len() int { return t.m.Count() }

// Iter calls fn for every entry; iteration stops early if fn returns
// false (the inverse of swiss.Map's Iter, whose callback returns true to
// stop).
func (t *Table) Iter(fn func(key string, v Value) bool) {
	t.m.Iter(func(k string, v Value) bool { return !fn(k, v) })
}

// AddAll copies every entry of other into t, overwriting on key
// collision (spec §4.2's `add_all`, used by INHERIT to copy a
// superclass's method/static tables into a subclass).
func (t *Table) AddAll(other *Table) {
	if other == nil {
		return
	}
	other.Iter(func(k string, v Value) bool {
		t.Set(k, v)
		return true
	})
}

// Clone returns a shallow copy of t.
func (t *Table) Clone() *Table {
	c := NewTable(t.Len())
	c.AddAll(t)
	return c
}
