package namespace

import "sort"

// table is a name-keyed symbol table with sorted iteration.
type table[T any] struct {
	entries map[string]T
}

func newTable[T any]() table[T] {
	return table[T]{entries: make(map[string]T)}
}

// set inserts or replaces an entry.
func (t *table[T]) set(name string, v T) {
	t.entries[name] = v
}

func (t *table[T]) get(name string) (T, bool) {
	v, ok := t.entries[name]
	return v, ok
}

func (t *table[T]) names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
