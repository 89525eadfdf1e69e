// Package index holds the artifact index: the set of executables one build produced,
// keyed by (kind, name).
package index

import (
	"slices"
	"sort"

	"github.com/ethereum-optimism/infra/op-bintest/types"
)

type key struct {
	kind types.Kind
	name string
}

// Status is the outcome of resolving a name against the index
type Status int

const (
	NotFound Status = iota
	Unique
	Ambiguous
)

func (s Status) String() string {
	switch s {
	case Unique:
		return "unique"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Resolution is the tagged result of Resolve. Entry is set when Status is Unique,
// Candidates holds every match when Status is Ambiguous.
type Resolution struct {
	Status     Status
	Entry      types.ArtifactEntry
	Candidates []types.ArtifactEntry
}

// Index is an immutable set of artifact entries. It is safe for concurrent use.
type Index struct {
	entries map[key]types.ArtifactEntry
	byName  map[string][]types.ArtifactEntry
	dropped []Dropped
}

func newIndex(entries map[key]types.ArtifactEntry, dropped []Dropped) *Index {
	idx := &Index{
		entries: entries,
		byName:  make(map[string][]types.ArtifactEntry),
		dropped: dropped,
	}
	for _, e := range entries {
		idx.byName[e.Name] = append(idx.byName[e.Name], e)
	}
	for _, list := range idx.byName {
		sortEntries(list)
	}
	return idx
}

// Resolve looks up name. With a kind hint only the exact (kind, name) pair matches;
// with types.KindAny every kind is searched and more than one match is ambiguous.
func (i *Index) Resolve(name string, kind types.Kind) Resolution {
	if i == nil {
		return Resolution{Status: NotFound}
	}

	if kind != types.KindAny {
		if e, ok := i.entries[key{kind: kind, name: name}]; ok {
			return Resolution{Status: Unique, Entry: cloneEntry(e)}
		}
		return Resolution{Status: NotFound}
	}

	matches := i.byName[name]
	switch len(matches) {
	case 0:
		return Resolution{Status: NotFound}
	case 1:
		return Resolution{Status: Unique, Entry: cloneEntry(matches[0])}
	default:
		candidates := make([]types.ArtifactEntry, len(matches))
		for n, e := range matches {
			candidates[n] = cloneEntry(e)
		}
		return Resolution{Status: Ambiguous, Candidates: candidates}
	}
}

// Lookup returns the entry for name when it resolves uniquely
func (i *Index) Lookup(name string, kind types.Kind) (types.ArtifactEntry, bool) {
	res := i.Resolve(name, kind)
	return res.Entry, res.Status == Unique
}

// Entries returns all entries ordered by kind, then name
func (i *Index) Entries() []types.ArtifactEntry {
	if i == nil {
		return nil
	}
	out := make([]types.ArtifactEntry, 0, len(i.entries))
	for _, e := range i.entries {
		out = append(out, cloneEntry(e))
	}
	sortEntries(out)
	return out
}

// Dropped returns the records that were reported by the build but not indexed
func (i *Index) Dropped() []Dropped {
	if i == nil {
		return nil
	}
	out := make([]Dropped, len(i.dropped))
	copy(out, i.dropped)
	return out
}

// Len returns the number of indexed entries
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// cloneEntry copies e so callers cannot reach the index's Alternates array
func cloneEntry(e types.ArtifactEntry) types.ArtifactEntry {
	e.Alternates = slices.Clone(e.Alternates)
	return e
}

func kindOrder(k types.Kind) int {
	for n, kind := range types.AllKinds {
		if kind == k {
			return n
		}
	}
	return len(types.AllKinds)
}

func sortEntries(entries []types.ArtifactEntry) {
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].Kind != entries[b].Kind {
			return kindOrder(entries[a].Kind) < kindOrder(entries[b].Kind)
		}
		return entries[a].Name < entries[b].Name
	})
}
