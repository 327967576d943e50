// Package patch implements the PatchBuilder: staging of operations,
// observed-dot resolution against a current state, and the commit pipeline
// that persists a built patch as a blob/tree/commit and advances the
// writer's ref under compare-and-swap.
package patch

import (
	"fmt"

	"github.com/git-warp/warp/pkg/dot"
	"github.com/git-warp/warp/pkg/graph"
)

// opWire is the codec-serializable form of a graph.Op. Only the fields
// relevant to Kind are populated, matching the closed-union discipline of
// graph.Op itself.
type opWire struct {
	Kind         string         `cbor:"kind"`
	Node         string         `cbor:"node,omitempty"`
	Dot          string         `cbor:"dot,omitempty"` // NodeAdd, EdgeAdd
	ObservedDots []string       `cbor:"observedDots,omitempty"`
	From         string         `cbor:"from,omitempty"`
	To           string         `cbor:"to,omitempty"`
	Label        string         `cbor:"label,omitempty"`
	PropNode     string         `cbor:"propNode,omitempty"`
	PropEdge     *edgeRefWire   `cbor:"propEdge,omitempty"`
	PropKey      string         `cbor:"propKey,omitempty"`
	Value        any            `cbor:"value,omitempty"`
	Raw          map[string]any `cbor:"raw,omitempty"`
}

type edgeRefWire struct {
	From  string `cbor:"from"`
	To    string `cbor:"to"`
	Label string `cbor:"label"`
}

// patchWire is the persisted patch body: schema=2, writer, lamport, ops, context.
type patchWire struct {
	Schema  int            `cbor:"schema"`
	Writer  string         `cbor:"writer"`
	Lamport uint64         `cbor:"lamport"`
	Ops     []opWire       `cbor:"ops"`
	Context map[string]any `cbor:"context"`
}

const patchSchema = 2

func encodeOp(op graph.Op) (opWire, error) {
	w := opWire{Kind: string(op.Kind)}
	switch op.Kind {
	case graph.OpNodeAdd:
		w.Node = op.Node
		w.Dot = op.Dot.Encode()
	case graph.OpNodeRemove:
		w.Node = op.Node
		w.ObservedDots = encodeDots(op.ObservedDots)
	case graph.OpEdgeAdd:
		w.From, w.To, w.Label = op.From, op.To, op.Label
		w.Dot = op.Dot.Encode()
	case graph.OpEdgeRemove:
		w.From, w.To, w.Label = op.From, op.To, op.Label
		w.ObservedDots = encodeDots(op.ObservedDots)
	case graph.OpPropSet:
		w.PropKey = op.PropKey
		w.Value = op.Value
		if op.PropEdge != nil {
			w.PropEdge = &edgeRefWire{From: op.PropEdge.From, To: op.PropEdge.To, Label: op.PropEdge.Label}
		} else {
			w.PropNode = op.PropNode
		}
	case graph.OpUnknown:
		w.Raw = op.Raw
	default:
		return opWire{}, fmt.Errorf("patch: unknown op kind %q", op.Kind)
	}
	return w, nil
}

func decodeOp(w opWire) (graph.Op, error) {
	kind := graph.OpKind(w.Kind)
	op := graph.Op{Kind: kind}
	switch kind {
	case graph.OpNodeAdd:
		op.Node = w.Node
		d, err := dot.Decode(w.Dot)
		if err != nil {
			return graph.Op{}, fmt.Errorf("patch: decoding NodeAdd dot %q: %w", w.Dot, err)
		}
		op.Dot = d
	case graph.OpNodeRemove:
		op.Node = w.Node
		dots, err := decodeDots(w.ObservedDots)
		if err != nil {
			return graph.Op{}, err
		}
		op.ObservedDots = dots
	case graph.OpEdgeAdd:
		op.From, op.To, op.Label = w.From, w.To, w.Label
		d, err := dot.Decode(w.Dot)
		if err != nil {
			return graph.Op{}, fmt.Errorf("patch: decoding EdgeAdd dot %q: %w", w.Dot, err)
		}
		op.Dot = d
	case graph.OpEdgeRemove:
		op.From, op.To, op.Label = w.From, w.To, w.Label
		dots, err := decodeDots(w.ObservedDots)
		if err != nil {
			return graph.Op{}, err
		}
		op.ObservedDots = dots
	case graph.OpPropSet:
		op.PropKey = w.PropKey
		op.Value = w.Value
		if w.PropEdge != nil {
			op.PropEdge = &graph.EdgeRef{From: w.PropEdge.From, To: w.PropEdge.To, Label: w.PropEdge.Label}
		} else {
			op.PropNode = w.PropNode
		}
	default:
		op.Kind = graph.OpUnknown
		op.Raw = w.Raw
	}
	return op, nil
}

func encodeDots(dots []dot.Dot) []string {
	out := make([]string, len(dots))
	for i, d := range dots {
		out[i] = d.Encode()
	}
	return out
}

func decodeDots(encoded []string) ([]dot.Dot, error) {
	out := make([]dot.Dot, len(encoded))
	for i, s := range encoded {
		d, err := dot.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("patch: decoding observed dot %q: %w", s, err)
		}
		out[i] = d
	}
	return out, nil
}

func encodeContext(vv dot.VersionVector) map[string]any {
	out := make(map[string]any, len(vv))
	for w, c := range vv {
		out[w] = c
	}
	return out
}

func decodeContext(wire map[string]any) (dot.VersionVector, error) {
	vv := dot.NewVersionVector()
	for w, raw := range wire {
		counter, err := toUint64(raw)
		if err != nil {
			return nil, fmt.Errorf("patch: decoding context counter for writer %q: %w", w, err)
		}
		vv[w] = counter
	}
	return vv, nil
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("negative counter %d", n)
		}
		return uint64(n), nil
	case uint:
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("negative counter %d", n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("unsupported counter type %T", v)
	}
}
