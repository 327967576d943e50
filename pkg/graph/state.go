package graph

import (
	"github.com/git-warp/warp/pkg/crdt"
	"github.com/git-warp/warp/pkg/dot"
)

// WarpState is the CRDT container the reducer folds patches into. Its five
// components are each independently joinable; WarpState itself is joined
// component-wise by JoinStates.
type WarpState struct {
	NodeAlive        *crdt.ORSet
	EdgeAlive        *crdt.ORSet
	Prop             map[string]crdt.LWW
	ObservedFrontier dot.VersionVector
	EdgeBirthEvent   map[string]dot.EventId
}

// New returns an empty WarpState.
func New() *WarpState {
	return &WarpState{
		NodeAlive:        crdt.New(),
		EdgeAlive:        crdt.New(),
		Prop:             make(map[string]crdt.LWW),
		ObservedFrontier: dot.NewVersionVector(),
		EdgeBirthEvent:   make(map[string]dot.EventId),
	}
}

// Clone returns a deep, structural copy so branches never alias mutable state.
func (s *WarpState) Clone() *WarpState {
	prop := make(map[string]crdt.LWW, len(s.Prop))
	for k, v := range s.Prop {
		prop[k] = v
	}
	birth := make(map[string]dot.EventId, len(s.EdgeBirthEvent))
	for k, v := range s.EdgeBirthEvent {
		birth[k] = v
	}
	return &WarpState{
		NodeAlive:        s.NodeAlive.Clone(),
		EdgeAlive:        s.EdgeAlive.Clone(),
		Prop:             prop,
		ObservedFrontier: s.ObservedFrontier.Clone(),
		EdgeBirthEvent:   birth,
	}
}

// HasNode reports whether n is currently visible (nodeAlive.contains(n)).
func (s *WarpState) HasNode(n string) bool {
	return s.NodeAlive.Contains(n)
}

// HasEdge reports whether the edge key is currently visible in edgeAlive,
// without regard to endpoint visibility (see canon.EdgeVisible for that).
func (s *WarpState) HasEdge(from, to, label string) bool {
	return s.EdgeAlive.Contains(EdgeKey(from, to, label))
}

// Neighbors returns the ids of every node reachable by a currently-alive
// outgoing edge from n. This, plus direct map lookups, is the full query
// surface the engine exposes — no pattern-match or path query language.
func (s *WarpState) Neighbors(n string) []string {
	var out []string
	for _, key := range s.EdgeAlive.Elements() {
		from, to, _, ok := DecodeEdgeKey(key)
		if !ok || from != n {
			continue
		}
		out = append(out, to)
	}
	return out
}
