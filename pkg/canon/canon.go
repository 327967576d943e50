// Package canon implements the canonical visible projection of a WarpState,
// its deterministic encoding, and the resulting state hash, plus the
// separate full-state serialization used for BTR replay and checkpoints.
package canon

import (
	"fmt"
	"sort"

	"github.com/git-warp/warp/pkg/graph"
	"github.com/git-warp/warp/pkg/ports"
)

// NodeVisible reports whether n is alive in state.
func NodeVisible(state *graph.WarpState, n string) bool {
	return state.NodeAlive.Contains(n)
}

// EdgeVisible reports whether the edge key is alive AND both its endpoints
// are alive — an edge referencing a removed node is hidden even if the edge
// dot itself was never tombstoned.
func EdgeVisible(state *graph.WarpState, key string) bool {
	from, to, _, ok := graph.DecodeEdgeKey(key)
	if !ok {
		return false
	}
	return state.EdgeAlive.Contains(key) && NodeVisible(state, from) && NodeVisible(state, to)
}

// PropVisible reports whether a property register is visible: the register
// must exist, and its owning node (or owning edge, for an edge property)
// must itself be visible. For an edge property, the register must also date
// from the edge's current incarnation or later — a property set before the
// edge's most recent (from,to,label) re-add is hidden even though the key
// itself is never deleted, per the edge-birth-event invariant.
func PropVisible(state *graph.WarpState, key string) bool {
	reg, ok := state.Prop[key]
	if !ok {
		return false
	}
	if graph.IsEdgePropKey(key) {
		from, to, label, _, ok := graph.DecodeEdgePropKey(key)
		if !ok {
			return false
		}
		edgeKey := graph.EdgeKey(from, to, label)
		if !EdgeVisible(state, edgeKey) {
			return false
		}
		birth, ok := state.EdgeBirthEvent[edgeKey]
		if !ok {
			return false
		}
		return !reg.EventID.Less(birth)
	}
	nodeID, _, ok := graph.DecodeNodePropKey(key)
	if !ok {
		return false
	}
	return NodeVisible(state, nodeID)
}

// EdgeEntry is one edge of the canonical visible projection.
type EdgeEntry struct {
	From  string `cbor:"from"`
	To    string `cbor:"to"`
	Label string `cbor:"label"`
}

// PropEntry is one property of the canonical visible projection.
type PropEntry struct {
	Key   string `cbor:"key"`
	Value any    `cbor:"value"`
}

// Projection is the canonical visible subset of a state: sorted nodes,
// edges sorted by (from,to,label), and props sorted by encoded key.
type Projection struct {
	Nodes []string    `cbor:"nodes"`
	Edges []EdgeEntry `cbor:"edges"`
	Props []PropEntry `cbor:"props"`
}

// Project builds the canonical visible projection of state.
func Project(state *graph.WarpState) Projection {
	var nodes []string
	for _, n := range state.NodeAlive.Elements() {
		if NodeVisible(state, n) {
			nodes = append(nodes, n)
		}
	}
	sort.Strings(nodes)

	var edges []EdgeEntry
	for _, key := range state.EdgeAlive.Elements() {
		if !EdgeVisible(state, key) {
			continue
		}
		from, to, label, ok := graph.DecodeEdgeKey(key)
		if !ok {
			continue
		}
		edges = append(edges, EdgeEntry{From: from, To: to, Label: label})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].Label < edges[j].Label
	})

	var propKeys []string
	for key := range state.Prop {
		if PropVisible(state, key) {
			propKeys = append(propKeys, key)
		}
	}
	sort.Strings(propKeys)
	props := make([]PropEntry, 0, len(propKeys))
	for _, key := range propKeys {
		props = append(props, PropEntry{Key: key, Value: state.Prop[key].Value})
	}

	return Projection{Nodes: nodes, Edges: edges, Props: props}
}

// EncodeProjection renders a Projection with codec in its deterministic
// encoding.
func EncodeProjection(codec ports.Codec, p Projection) ([]byte, error) {
	b, err := codec.Encode(p)
	if err != nil {
		return nil, fmt.Errorf("canon: encoding visible projection: %w", err)
	}
	return b, nil
}

// StateHash returns the lowercase hex SHA-256 digest of state's canonical
// visible projection, as encoded by codec.
func StateHash(crypt interface {
	Hash(algorithm string, data []byte) (string, error)
}, codec ports.Codec, state *graph.WarpState) (string, error) {
	b, err := EncodeProjection(codec, Project(state))
	if err != nil {
		return "", err
	}
	h, err := crypt.Hash("sha256", b)
	if err != nil {
		return "", fmt.Errorf("canon: hashing canonical projection: %w", err)
	}
	return h, nil
}
