// Package environment assembles the runtime environment of the processing
// job from the process environment, the configuration store and defaults.
package environment

import "os"

// LookupFunc reads one variable from a process environment.
type LookupFunc func(name string) (string, bool)

// OSLookup reads the real process environment.
func OSLookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// MapLookup serves variables from a fixed map.
func MapLookup(vars map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

// Table is an ordered set of environment variables. Only this package
// adds entries; callers get a read-only view once Resolve returns.
type Table struct {
	keys   []string
	values map[string]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{values: make(map[string]string)}
}

// set adds or replaces a key. A replaced key keeps its original position.
func (t *Table) set(key, value string) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// Get returns the value of key.
func (t *Table) Get(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Value returns the value of key, or "" when it is not set.
func (t *Table) Value(key string) string {
	return t.values[key]
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Len returns the number of keys.
func (t *Table) Len() int {
	return len(t.keys)
}

// Each calls fn for every entry in insertion order.
func (t *Table) Each(fn func(key, value string)) {
	for _, k := range t.keys {
		fn(k, t.values[k])
	}
}
