package canon

import (
	"fmt"
	"sort"

	"github.com/git-warp/warp/pkg/crdt"
	"github.com/git-warp/warp/pkg/dot"
	"github.com/git-warp/warp/pkg/graph"
	"github.com/git-warp/warp/pkg/ports"
	"github.com/git-warp/warp/pkg/warperr"
)

// FullStateVersion is the only version tag this package accepts or
// produces. Any other tag encountered on decode is rejected outright.
const FullStateVersion = "full-v5"

// orSetSnapshot is the wire shape of an OR-Set's internals: both live and
// tombstoned dots, needed to reconstruct the set exactly (not just its
// visible projection) for BTR replay and checkpoints.
type orSetSnapshot struct {
	Entries    []crdt.EntrySnapshot `cbor:"entries"`
	Tombstones []string             `cbor:"tombstones"`
}

type propRegister struct {
	Key     string      `cbor:"key"`
	Lamport uint64      `cbor:"lamport"`
	Writer  string      `cbor:"writer"`
	Patch   string      `cbor:"patch"`
	OpIndex int         `cbor:"opIndex"`
	Value   interface{} `cbor:"value"`
}

type edgeBirthEntry struct {
	Key     string `cbor:"key"`
	Lamport uint64 `cbor:"lamport"`
	Writer  string `cbor:"writer"`
	Patch   string `cbor:"patch"`
	OpIndex int    `cbor:"opIndex"`
}

// fullState is the full-v5 wire envelope.
type fullState struct {
	Version        string           `cbor:"version"`
	NodeAlive      orSetSnapshot    `cbor:"nodeAlive"`
	EdgeAlive      orSetSnapshot    `cbor:"edgeAlive"`
	Prop           []propRegister   `cbor:"prop"`
	Frontier       []string         `cbor:"frontier"`
	EdgeBirthEvent []edgeBirthEntry `cbor:"edgeBirthEvent"`
}

func snapshotORSet(s *crdt.ORSet) orSetSnapshot {
	entries, tombstones := s.Snapshot()
	return orSetSnapshot{Entries: entries, Tombstones: tombstones}
}

func restoreORSet(snap orSetSnapshot) (*crdt.ORSet, error) {
	out := crdt.New()
	for _, e := range snap.Entries {
		for _, encoded := range e.Dots {
			d, err := dot.Decode(encoded)
			if err != nil {
				return nil, fmt.Errorf("canon: restoring OR-Set entry %q: %w", e.Element, err)
			}
			out.Add(e.Element, d)
		}
	}
	var tombstoneDots []dot.Dot
	for _, encoded := range snap.Tombstones {
		d, err := dot.Decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("canon: restoring OR-Set tombstone: %w", err)
		}
		tombstoneDots = append(tombstoneDots, d)
	}
	out.Remove(tombstoneDots)
	return out, nil
}

// EncodeFullState serializes state's complete internal representation
// (including OR-Set tombstones and full LWW registers) under the
// "full-v5" version tag.
func EncodeFullState(codec ports.Codec, state *graph.WarpState) ([]byte, error) {
	propKeys := make([]string, 0, len(state.Prop))
	for k := range state.Prop {
		propKeys = append(propKeys, k)
	}
	sort.Strings(propKeys)
	props := make([]propRegister, 0, len(propKeys))
	for _, k := range propKeys {
		reg := state.Prop[k]
		props = append(props, propRegister{
			Key: k, Lamport: reg.EventID.Lamport, Writer: reg.EventID.Writer,
			Patch: reg.EventID.PatchSha, OpIndex: reg.EventID.OpIndex, Value: reg.Value,
		})
	}

	birthKeys := make([]string, 0, len(state.EdgeBirthEvent))
	for k := range state.EdgeBirthEvent {
		birthKeys = append(birthKeys, k)
	}
	sort.Strings(birthKeys)
	births := make([]edgeBirthEntry, 0, len(birthKeys))
	for _, k := range birthKeys {
		e := state.EdgeBirthEvent[k]
		births = append(births, edgeBirthEntry{Key: k, Lamport: e.Lamport, Writer: e.Writer, Patch: e.PatchSha, OpIndex: e.OpIndex})
	}

	fs := fullState{
		Version:        FullStateVersion,
		NodeAlive:      snapshotORSet(state.NodeAlive),
		EdgeAlive:      snapshotORSet(state.EdgeAlive),
		Prop:           props,
		Frontier:       state.ObservedFrontier.Encode(),
		EdgeBirthEvent: births,
	}
	b, err := codec.Encode(fs)
	if err != nil {
		return nil, fmt.Errorf("canon: encoding full state: %w", err)
	}
	return b, nil
}

// DecodeFullState reverses EncodeFullState. It rejects any version tag other
// than full-v5 and reconstructs empty substructures gracefully when fields
// are omitted (e.g. a state with no props at all).
func DecodeFullState(codec ports.Codec, data []byte) (*graph.WarpState, error) {
	var fs fullState
	if err := codec.Decode(data, &fs); err != nil {
		return nil, fmt.Errorf("canon: decoding full state: %w", err)
	}
	if fs.Version != FullStateVersion {
		return nil, warperr.New(warperr.EBTRUnsupportedVersion, "unsupported full-state version tag: "+fs.Version)
	}

	nodeAlive, err := restoreORSet(fs.NodeAlive)
	if err != nil {
		return nil, err
	}
	edgeAlive, err := restoreORSet(fs.EdgeAlive)
	if err != nil {
		return nil, err
	}

	prop := make(map[string]crdt.LWW, len(fs.Prop))
	for _, p := range fs.Prop {
		prop[p.Key] = crdt.Set(dot.EventId{Lamport: p.Lamport, Writer: p.Writer, PatchSha: p.Patch, OpIndex: p.OpIndex}, p.Value)
	}

	frontier := dot.NewVersionVector()
	for _, encoded := range fs.Frontier {
		d, err := dot.Decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("canon: restoring frontier entry: %w", err)
		}
		frontier[d.Writer] = d.Counter
	}

	birth := make(map[string]dot.EventId, len(fs.EdgeBirthEvent))
	for _, e := range fs.EdgeBirthEvent {
		birth[e.Key] = dot.EventId{Lamport: e.Lamport, Writer: e.Writer, PatchSha: e.Patch, OpIndex: e.OpIndex}
	}

	return &graph.WarpState{
		NodeAlive:        nodeAlive,
		EdgeAlive:        edgeAlive,
		Prop:             prop,
		ObservedFrontier: frontier,
		EdgeBirthEvent:   birth,
	}, nil
}
