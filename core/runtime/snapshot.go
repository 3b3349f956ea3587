package runtime

import (
	"sort"
	"time"

	"github.com/artpar/pipekit/core/definition"
	"github.com/artpar/pipekit/core/namespace"
)

// Snapshot is an immutable, fully bound view of the loaded definitions.
// A snapshot is never modified after Build returns, so concurrent
// evaluations may share it freely.
type Snapshot struct {
	namespace *namespace.Namespace
	pipelines map[string]definition.Named
	names     []string
	sources   []string
	loadedAt  time.Time
}

// Build creates a main namespace, loads lib into it when non-nil, applies
// docs and returns the resulting snapshot.
func Build(lib namespace.Library, docs []*definition.Document, loadedAt time.Time) (*Snapshot, error) {
	main := namespace.Main()
	if lib != nil {
		if err := main.LoadStandardLibrary(lib); err != nil {
			return nil, err
		}
	}
	named, err := definition.Apply(main, docs)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		namespace: main,
		pipelines: make(map[string]definition.Named, len(named)),
		names:     make([]string, 0, len(named)),
		loadedAt:  loadedAt,
	}
	for _, n := range named {
		s.pipelines[n.Name] = n
		s.names = append(s.names, n.Name)
	}
	seen := make(map[string]bool)
	for _, doc := range docs {
		if doc.Source != "" && !seen[doc.Source] {
			seen[doc.Source] = true
			s.sources = append(s.sources, doc.Source)
		}
	}
	sort.Strings(s.sources)
	return s, nil
}

// LoadDir parses every definition file under dir and builds a snapshot.
func LoadDir(lib namespace.Library, dir string, loadedAt time.Time) (*Snapshot, error) {
	docs, err := definition.ParseDir(dir)
	if err != nil {
		return nil, err
	}
	return Build(lib, docs, loadedAt)
}

// Namespace returns the main namespace of the snapshot.
func (s *Snapshot) Namespace() *namespace.Namespace { return s.namespace }

// Pipelines returns the named pipelines sorted by name.
func (s *Snapshot) Pipelines() []definition.Named {
	out := make([]definition.Named, len(s.names))
	for i, name := range s.names {
		out[i] = s.pipelines[name]
	}
	return out
}

// Pipeline returns a named pipeline by its dotted name.
func (s *Snapshot) Pipeline(name string) (definition.Named, bool) {
	n, ok := s.pipelines[name]
	return n, ok
}

// Sources returns the definition files the snapshot was built from.
func (s *Snapshot) Sources() []string {
	out := make([]string, len(s.sources))
	copy(out, s.sources)
	return out
}

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }
