// Package crdt implements the engine's two conflict-free replicated data
// types: the LWW register (lww.go) and the observed-remove set (this file).
// Both are pure value types — join is the only way two replicas merge, and
// join is commutative, associative and idempotent by construction.
package crdt

import (
	"sort"
	"strings"

	"github.com/git-warp/warp/pkg/dot"
)

// ORSet is an add-wins observed-remove set. Unlike the textbook OR-Set that
// keeps a tombstone set per element, this one keeps a single set of
// tombstoned dots shared across every element — a dot, once observed
// removed anywhere, can never resurrect any element it was added under, even
// via a replica that never saw the removal. This matches the engine's
// requirement that node/edge liveness never depends on replay order.
type ORSet struct {
	entries    map[string][]dot.Dot
	tombstones map[dot.Dot]struct{}
}

// New returns an empty OR-Set.
func New() *ORSet {
	return &ORSet{
		entries:    make(map[string][]dot.Dot),
		tombstones: make(map[dot.Dot]struct{}),
	}
}

// Clone returns a deep copy.
func (s *ORSet) Clone() *ORSet {
	out := &ORSet{
		entries:    make(map[string][]dot.Dot, len(s.entries)),
		tombstones: make(map[dot.Dot]struct{}, len(s.tombstones)),
	}
	for el, dots := range s.entries {
		cp := make([]dot.Dot, len(dots))
		copy(cp, dots)
		out.entries[el] = cp
	}
	for d := range s.tombstones {
		out.tombstones[d] = struct{}{}
	}
	return out
}

// Add records element as added under d. Re-adding an already-tombstoned dot
// is a no-op for liveness (the dot stays tombstoned) but the dot is still
// recorded against the element so a later query can distinguish "never
// added" from "added then removed."
func (s *ORSet) Add(element string, d dot.Dot) {
	for _, existing := range s.entries[element] {
		if existing == d {
			return
		}
	}
	s.entries[element] = append(s.entries[element], d)
}

// Remove tombstones exactly the given observed dots. It is the caller's
// responsibility to supply the set of dots the remover has actually
// observed — the OR-Set never enumerates dots on an element's behalf, so an
// add concurrent with (not yet observed by) a remove is never tombstoned.
func (s *ORSet) Remove(observedDots []dot.Dot) {
	for _, d := range observedDots {
		s.tombstones[d] = struct{}{}
	}
}

// Contains reports whether element has at least one live (non-tombstoned) dot.
func (s *ORSet) Contains(element string) bool {
	for _, d := range s.entries[element] {
		if _, dead := s.tombstones[d]; !dead {
			return true
		}
	}
	return false
}

// Dots returns the dots recorded for element, live or tombstoned, in
// ascending Dot order.
func (s *ORSet) Dots(element string) []dot.Dot {
	dots := s.entries[element]
	out := make([]dot.Dot, len(dots))
	copy(out, dots)
	dot.SortDots(out)
	return out
}

// LiveDots returns only the non-tombstoned dots for element.
func (s *ORSet) LiveDots(element string) []dot.Dot {
	var out []dot.Dot
	for _, d := range s.entries[element] {
		if _, dead := s.tombstones[d]; !dead {
			out = append(out, d)
		}
	}
	dot.SortDots(out)
	return out
}

// Elements returns every element with at least one live dot, sorted.
func (s *ORSet) Elements() []string {
	var out []string
	for el := range s.entries {
		if s.Contains(el) {
			out = append(out, el)
		}
	}
	sort.Strings(out)
	return out
}

// IsTombstoned reports whether d has been observed removed.
func (s *ORSet) IsTombstoned(d dot.Dot) bool {
	_, dead := s.tombstones[d]
	return dead
}

// Join merges s and other into a new set holding the union of both replicas'
// entries and tombstones. Pure: neither operand is mutated. Commutative,
// associative and idempotent because set union is.
func (s *ORSet) Join(other *ORSet) *ORSet {
	out := s.Clone()
	for el, dots := range other.entries {
		for _, d := range dots {
			out.Add(el, d)
		}
	}
	for d := range other.tombstones {
		out.tombstones[d] = struct{}{}
	}
	return out
}

// Compact drops exactly the tombstoned dots covered by safeFrontier — a
// version vector known to have been observed by every replica — from both
// the tombstone set and their owning entries. A tombstone not yet covered by
// safeFrontier is left untouched rather than erroring, since compaction is
// expected to run incrementally as the frontier advances. It never removes a
// dot that is still live, even if safeFrontier dominates it: doing so would
// permit resurrection on a later join. Elements left with zero dots are
// pruned entirely.
func (s *ORSet) Compact(safeFrontier dot.VersionVector) *ORSet {
	out := &ORSet{
		entries:    make(map[string][]dot.Dot, len(s.entries)),
		tombstones: make(map[dot.Dot]struct{}),
	}
	for d := range s.tombstones {
		if !safeFrontier.Contains(d) {
			out.tombstones[d] = struct{}{}
		}
	}
	for el, dots := range s.entries {
		var kept []dot.Dot
		for _, d := range dots {
			if _, dead := s.tombstones[d]; dead {
				if _, stillTombstoned := out.tombstones[d]; !stillTombstoned {
					continue // tombstoned and now covered by safeFrontier: safe to drop
				}
			}
			kept = append(kept, d)
		}
		if len(kept) > 0 {
			out.entries[el] = kept
		}
	}
	return out
}

// Len reports the number of elements with at least one live dot.
func (s *ORSet) Len() int {
	return len(s.Elements())
}

// EntrySnapshot is one [element, dots] pair of the deterministic snapshot.
type EntrySnapshot struct {
	Element string
	Dots    []string
}

// Snapshot renders the OR-Set's full internal state (both live and
// tombstoned dots) as a deterministic structure: entries sorted by element,
// each entry's dots sorted by dot order and encoded, and tombstones as a
// sorted, encoded list. This is what pkg/canon's full-state serializer and
// this package's own semilattice-law tests build on, per the requirement
// that two equal OR-Sets serialize to byte-identical output.
func (s *ORSet) Snapshot() ([]EntrySnapshot, []string) {
	elements := make([]string, 0, len(s.entries))
	for el := range s.entries {
		elements = append(elements, el)
	}
	sort.Strings(elements)

	entries := make([]EntrySnapshot, 0, len(elements))
	for _, el := range elements {
		dots := make([]dot.Dot, len(s.entries[el]))
		copy(dots, s.entries[el])
		dot.SortDots(dots)
		encoded := make([]string, len(dots))
		for i, d := range dots {
			encoded[i] = d.Encode()
		}
		entries = append(entries, EntrySnapshot{Element: el, Dots: encoded})
	}

	tombstoneDots := make([]dot.Dot, 0, len(s.tombstones))
	for d := range s.tombstones {
		tombstoneDots = append(tombstoneDots, d)
	}
	dot.SortDots(tombstoneDots)
	tombstones := make([]string, len(tombstoneDots))
	for i, d := range tombstoneDots {
		tombstones[i] = d.Encode()
	}

	return entries, tombstones
}

// Serialize renders Snapshot as a single deterministic string. Intended for
// test comparisons and quick equality checks; the codec-backed encoding used
// for hashing and wire transfer lives in pkg/canon.
func Serialize(s *ORSet) string {
	entries, tombstones := s.Snapshot()
	var b strings.Builder
	b.WriteString("entries:")
	for _, e := range entries {
		b.WriteString("[")
		b.WriteString(e.Element)
		b.WriteString(":")
		b.WriteString(strings.Join(e.Dots, ","))
		b.WriteString("]")
	}
	b.WriteString(";tombstones:")
	b.WriteString(strings.Join(tombstones, ","))
	return b.String()
}
