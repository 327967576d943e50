package graph

import (
	"github.com/git-warp/warp/pkg/crdt"
	"github.com/git-warp/warp/pkg/dot"
)

// classifyOp computes the Receipt an op would produce if applied to state,
// without mutating state. It must be called before applyOp so its reads see
// the pre-op state.
func classifyOp(state *WarpState, op Op, eventID dot.EventId) *Receipt {
	switch op.Kind {
	case OpNodeAdd:
		for _, d := range state.NodeAlive.Dots(op.Node) {
			if d == op.Dot {
				return &Receipt{Outcome: OutcomeRedundant, Target: op.Node, Reason: "dot already present"}
			}
		}
		return &Receipt{Outcome: OutcomeApplied, Target: op.Node}

	case OpNodeRemove:
		if anyLive(state.NodeAlive.LiveDots(op.Node), op.ObservedDots) {
			return &Receipt{Outcome: OutcomeApplied, Target: op.Node}
		}
		return &Receipt{Outcome: OutcomeRedundant, Target: op.Node, Reason: "no observed dot currently live"}

	case OpEdgeAdd:
		key := EdgeKey(op.From, op.To, op.Label)
		for _, d := range state.EdgeAlive.Dots(key) {
			if d == op.Dot {
				return &Receipt{Outcome: OutcomeRedundant, Target: key, Reason: "dot already present"}
			}
		}
		return &Receipt{Outcome: OutcomeApplied, Target: key}

	case OpEdgeRemove:
		key := EdgeKey(op.From, op.To, op.Label)
		if anyLive(state.EdgeAlive.LiveDots(key), op.ObservedDots) {
			return &Receipt{Outcome: OutcomeApplied, Target: key}
		}
		return &Receipt{Outcome: OutcomeRedundant, Target: key, Reason: "no observed dot currently live"}

	case OpPropSet:
		key := propTargetKey(op)
		current, exists := state.Prop[key]
		if !exists || current.IsZero() {
			return &Receipt{Outcome: OutcomeApplied, Target: key}
		}
		switch {
		case eventID.Equal(current.EventID):
			return &Receipt{Outcome: OutcomeRedundant, Target: key, Reason: "event id already recorded"}
		case eventID.Greater(current.EventID):
			return &Receipt{Outcome: OutcomeApplied, Target: key, Reason: "incoming event id wins"}
		default:
			return &Receipt{Outcome: OutcomeSuperseded, Target: key, Reason: "current register's event id wins"}
		}

	default:
		return nil // Unknown: no receipt entry
	}
}

// anyLive reports whether any of observed is currently a live dot of live.
func anyLive(live []dot.Dot, observed []dot.Dot) bool {
	liveSet := make(map[dot.Dot]struct{}, len(live))
	for _, d := range live {
		liveSet[d] = struct{}{}
	}
	for _, d := range observed {
		if _, ok := liveSet[d]; ok {
			return true
		}
	}
	return false
}

func propTargetKey(op Op) string {
	if op.PropEdge != nil {
		return EdgePropKey(op.PropEdge.From, op.PropEdge.To, op.PropEdge.Label, op.PropKey)
	}
	return NodePropKey(op.PropNode, op.PropKey)
}

// ApplyOp mutates state according to op's kind, using eventID as the op's
// identity for LWW and edge-birth bookkeeping. Unknown ops are ignored.
func ApplyOp(state *WarpState, op Op, eventID dot.EventId) {
	switch op.Kind {
	case OpNodeAdd:
		state.NodeAlive.Add(op.Node, op.Dot)

	case OpNodeRemove:
		state.NodeAlive.Remove(op.ObservedDots)

	case OpEdgeAdd:
		key := EdgeKey(op.From, op.To, op.Label)
		state.EdgeAlive.Add(key, op.Dot)
		if current, ok := state.EdgeBirthEvent[key]; !ok || eventID.Greater(current) {
			state.EdgeBirthEvent[key] = eventID
		}

	case OpEdgeRemove:
		state.EdgeAlive.Remove(op.ObservedDots)

	case OpPropSet:
		key := propTargetKey(op)
		incoming := crdt.Set(eventID, op.Value)
		if current, ok := state.Prop[key]; ok {
			state.Prop[key] = current.Join(incoming)
		} else {
			state.Prop[key] = incoming
		}

	default:
		// Unknown: forward-compatible no-op.
	}
}

// ReduceOptions controls optional reducer behavior.
type ReduceOptions struct {
	// WithReceipts requests per-op receipts for every patch, in patch then
	// op order.
	WithReceipts bool
}

// Reduce clones initial (or starts from an empty state if nil), folds
// patches in the supplied order, and returns the resulting state. If
// opts.WithReceipts is set, receipts are returned alongside, one slice per
// patch, parallel to patches.
func Reduce(patches []Patch, initial *WarpState, opts ReduceOptions) (*WarpState, [][]*Receipt) {
	state := New()
	if initial != nil {
		state = initial.Clone()
	}

	var allReceipts [][]*Receipt
	for _, patch := range patches {
		var receipts []*Receipt
		for i, op := range patch.Ops {
			eventID := dot.EventId{
				Lamport:  patch.Lamport,
				Writer:   patch.Writer,
				PatchSha: patch.PatchSha,
				OpIndex:  i,
			}
			if opts.WithReceipts {
				if r := classifyOp(state, op, eventID); r != nil {
					receipts = append(receipts, r)
				}
			}
			ApplyOp(state, op, eventID)
		}
		state.ObservedFrontier = state.ObservedFrontier.Merge(patch.Context)
		state.ObservedFrontier = state.ObservedFrontier.MergeDot(dot.Dot{Writer: patch.Writer, Counter: patch.Lamport})
		if opts.WithReceipts {
			allReceipts = append(allReceipts, receipts)
		}
	}
	return state, allReceipts
}
