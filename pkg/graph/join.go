package graph

import (
	"github.com/git-warp/warp/pkg/crdt"
	"github.com/git-warp/warp/pkg/dot"
)

// JoinStates is the pure, component-wise semilattice join of two WarpStates:
// OR-Set join for nodeAlive/edgeAlive, per-key LWW-max for prop,
// version-vector merge for observedFrontier, and per-key event-id max for
// edgeBirthEvent. Commutative, associative and idempotent because each
// component operation is. Neither input is mutated.
func JoinStates(a, b *WarpState) *WarpState {
	out := &WarpState{
		NodeAlive:        a.NodeAlive.Join(b.NodeAlive),
		EdgeAlive:        a.EdgeAlive.Join(b.EdgeAlive),
		Prop:             joinProps(a.Prop, b.Prop),
		ObservedFrontier: a.ObservedFrontier.Merge(b.ObservedFrontier),
		EdgeBirthEvent:   joinEdgeBirth(a.EdgeBirthEvent, b.EdgeBirthEvent),
	}
	return out
}

func joinProps(a, b map[string]crdt.LWW) map[string]crdt.LWW {
	out := make(map[string]crdt.LWW, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if cur, ok := out[k]; ok {
			out[k] = cur.Join(v)
		} else {
			out[k] = v
		}
	}
	return out
}

func joinEdgeBirth(a, b map[string]dot.EventId) map[string]dot.EventId {
	out := make(map[string]dot.EventId, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if cur, ok := out[k]; !ok || v.Greater(cur) {
			out[k] = v
		}
	}
	return out
}
