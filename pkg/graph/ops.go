package graph

import "github.com/git-warp/warp/pkg/dot"

// OpKind tags the closed union of patch operations. Unknown is a forward
// compatibility escape hatch: ops the reducer doesn't recognize are skipped
// rather than rejected, so older engines can replay patches written by newer
// ones without aborting.
type OpKind string

const (
	OpNodeAdd    OpKind = "NodeAdd"
	OpNodeRemove OpKind = "NodeRemove"
	OpEdgeAdd    OpKind = "EdgeAdd"
	OpEdgeRemove OpKind = "EdgeRemove"
	OpPropSet    OpKind = "PropSet"
	OpUnknown    OpKind = "Unknown"
)

// Op is one entry of a patch's op list. Only the fields relevant to Kind are
// populated; Raw carries the undecoded payload for Unknown ops so the codec
// round-trips them verbatim.
type Op struct {
	Kind OpKind

	// NodeAdd / NodeRemove
	Node         string
	ObservedDots []dot.Dot // NodeRemove, EdgeRemove

	// EdgeAdd / EdgeRemove
	From  string
	To    string
	Label string

	// Dot is the dot minted for this op when staged (NodeAdd, EdgeAdd only).
	// Every add op in a patch mints its own dot even though the whole patch
	// shares one lamport — the reducer uses this, not the patch's lamport,
	// as the OR-Set entry's identity.
	Dot dot.Dot

	// PropSet
	PropNode string
	PropEdge *EdgeRef // non-nil for an edge property
	PropKey  string
	Value    any

	// Unknown
	Raw map[string]any
}

// EdgeRef names the edge a PropSet targets when setting an edge property.
type EdgeRef struct {
	From  string
	To    string
	Label string
}

// Patch is an ordered batch of ops from one writer at one lamport tick,
// carrying the causal context the writer had observed when it was built.
type Patch struct {
	Writer   string
	Lamport  uint64
	Ops      []Op
	Context  dot.VersionVector
	PatchSha string // supplied by the caller; the storage layer guarantees stability
}
