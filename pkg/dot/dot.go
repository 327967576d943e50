// Package dot implements the engine's identity primitives: Dot (a writer's
// monotonic per-operation identity), VersionVector (a causal frontier), and
// EventId (the total order used to break LWW ties). These are identities,
// not timestamps — they never express ordering of effects by themselves.
package dot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/git-warp/warp/pkg/warperr"
)

// reserved separators used by the encoded key schemes throughout the engine.
// Dots themselves only reserve the colon for their own encoding; the null and
// SOH bytes are reserved by pkg/graph's key encoding, but user-supplied
// writer ids are validated here too since a writer id can end up inside
// those composite keys via edge/prop encoding.
const (
	nullByte = '\x00'
	soh      = '\x01'
)

// Dot is the identity of a single add operation: a writer id paired with a
// counter that writer incremented to produce it. Dots are compared
// lexicographically by writer, then numerically by counter.
type Dot struct {
	Writer  string
	Counter uint64
}

// New validates and constructs a Dot.
func New(writer string, counter uint64) (Dot, error) {
	if writer == "" {
		return Dot{}, warperr.New(warperr.EInvalidDot, "writer must not be empty")
	}
	if strings.ContainsRune(writer, nullByte) || strings.ContainsRune(writer, soh) {
		return Dot{}, warperr.New(warperr.EInvalidKeyEncoding, "writer contains reserved separator byte")
	}
	if counter == 0 {
		return Dot{}, warperr.New(warperr.EInvalidDot, "counter must be positive")
	}
	return Dot{Writer: writer, Counter: counter}, nil
}

// Encode renders a dot as "<writer>:<counter>".
func (d Dot) Encode() string {
	return d.Writer + ":" + strconv.FormatUint(d.Counter, 10)
}

// Decode parses a dot from its encoded form, splitting on the LAST colon so
// writer identifiers may themselves contain colons.
func Decode(s string) (Dot, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 || i == len(s)-1 {
		return Dot{}, warperr.New(warperr.EInvalidDot, "malformed encoded dot: "+s)
	}
	writer := s[:i]
	counterStr := s[i+1:]
	counter, err := strconv.ParseUint(counterStr, 10, 64)
	if err != nil {
		return Dot{}, warperr.Wrap(warperr.EInvalidDot, "malformed counter in encoded dot: "+s, err)
	}
	return New(writer, counter)
}

// Less orders dots lexicographically by writer, then numerically by
// counter. This gives a strict total order useful for deterministic
// serialization, not for causal reasoning.
func (d Dot) Less(o Dot) bool {
	if d.Writer != o.Writer {
		return d.Writer < o.Writer
	}
	return d.Counter < o.Counter
}

// SortDots sorts a slice of dots in place per Dot.Less.
func SortDots(dots []Dot) {
	sort.Slice(dots, func(i, j int) bool { return dots[i].Less(dots[j]) })
}

// VersionVector maps writer id to the highest counter observed from that
// writer. Writers with no observed counter are simply absent from the map —
// there is no such thing as a stored zero entry.
type VersionVector map[string]uint64

// NewVersionVector returns an empty version vector.
func NewVersionVector() VersionVector {
	return make(VersionVector)
}

// Increment bumps vv[writer] to one past its current value and returns the
// newly minted dot. Mutates vv in place.
func (vv VersionVector) Increment(writer string) (Dot, error) {
	if writer == "" {
		return Dot{}, warperr.New(warperr.EInvalidDot, "writer must not be empty")
	}
	next := vv[writer] + 1
	vv[writer] = next
	return Dot{Writer: writer, Counter: next}, nil
}

// Clone returns a deep (map-level) copy.
func (vv VersionVector) Clone() VersionVector {
	out := make(VersionVector, len(vv))
	for k, v := range vv {
		out[k] = v
	}
	return out
}

// Merge returns a new version vector holding the pointwise maximum of vv and
// other. Pure — neither input is mutated.
func (vv VersionVector) Merge(other VersionVector) VersionVector {
	out := make(VersionVector, len(vv)+len(other))
	for k, v := range vv {
		out[k] = v
	}
	for k, v := range other {
		if cur, ok := out[k]; !ok || v > cur {
			out[k] = v
		}
	}
	return out
}

// MergeDot folds a single dot into vv's observed frontier, returning a new
// vector. Equivalent to Merge with a one-entry vector, but avoids an
// allocation for the common "fold this patch's own dot in" case.
func (vv VersionVector) MergeDot(d Dot) VersionVector {
	out := vv.Clone()
	if cur, ok := out[d.Writer]; !ok || d.Counter > cur {
		out[d.Writer] = d.Counter
	}
	return out
}

// Dominates reports whether vv descends from other: for every writer w in
// other, vv[w] >= other[w].
func (vv VersionVector) Dominates(other VersionVector) bool {
	for w, c := range other {
		if vv[w] < c {
			return false
		}
	}
	return true
}

// Contains reports whether vv has observed dot d, i.e. vv[d.Writer] >= d.Counter.
func (vv VersionVector) Contains(d Dot) bool {
	return vv[d.Writer] >= d.Counter
}

// Clone-independent equality, used by tests and joinStates idempotence checks.
func (vv VersionVector) Equal(other VersionVector) bool {
	if len(vv) != len(other) {
		return false
	}
	for k, v := range vv {
		if other[k] != v {
			return false
		}
	}
	return true
}

// sortedWriters returns vv's writer keys in lexicographic order.
func (vv VersionVector) sortedWriters() []string {
	ws := make([]string, 0, len(vv))
	for w := range vv {
		ws = append(ws, w)
	}
	sort.Strings(ws)
	return ws
}

// Encode renders vv deterministically as a sorted sequence of "writer:counter"
// entries. Zero-counter entries are omitted.
func (vv VersionVector) Encode() []string {
	ws := vv.sortedWriters()
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		if vv[w] == 0 {
			continue
		}
		out = append(out, w+":"+strconv.FormatUint(vv[w], 10))
	}
	return out
}

// EventId totally orders LWW writes: (lamport, writerId, patchSha, opIndex),
// compared lexicographically in that field order. Distinct from Dot because
// it additionally records the hosting patch and the op's position within it.
type EventId struct {
	Lamport  uint64
	Writer   string
	PatchSha string
	OpIndex  int
}

// Zero is the "no register written yet" sentinel: a lamport of 0 is smaller
// than any EventId minted by a real op, since lamports mint starting at 1.
var Zero = EventId{}

// Less reports whether e strictly precedes o in the total order.
func (e EventId) Less(o EventId) bool {
	if e.Lamport != o.Lamport {
		return e.Lamport < o.Lamport
	}
	if e.Writer != o.Writer {
		return e.Writer < o.Writer
	}
	if e.PatchSha != o.PatchSha {
		return e.PatchSha < o.PatchSha
	}
	return e.OpIndex < o.OpIndex
}

// Greater reports whether e strictly follows o.
func (e EventId) Greater(o EventId) bool {
	return o.Less(e)
}

// Equal reports field-wise equality.
func (e EventId) Equal(o EventId) bool {
	return e == o
}

// String renders an EventId for logging/debugging only; it is not used by
// any wire or hash encoding.
func (e EventId) String() string {
	return fmt.Sprintf("%d:%s:%s:%d", e.Lamport, e.Writer, e.PatchSha, e.OpIndex)
}
