package patch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/git-warp/warp/pkg/dot"
	"github.com/git-warp/warp/pkg/graph"
	"github.com/git-warp/warp/pkg/ports"
	"github.com/git-warp/warp/pkg/storage"
	"github.com/git-warp/warp/pkg/warperr"
)

// Builder stages operations for one writer, resolving observed dots against
// a current state and, on Commit, persisting the result through the
// storage port under compare-and-swap.
type Builder struct {
	Graph   string
	Writer  string
	Lamport uint64
	VV      dot.VersionVector
	State   *graph.WarpState // used only for observed-dot resolution; may be nil
	Ops     []graph.Op

	// ExpectedParentSha, if set, replaces the observed tip as the value the
	// writer's ref must still hold at compare-and-swap time, so commit fails
	// with E_CAS_CONFLICT when the ref has moved away from it. The tip is
	// still read at commit time to derive the lamport and the parent.
	ExpectedParentSha string
}

// New returns a builder for writer, seeded with a copy of vv (never aliased)
// and, optionally, the state to resolve removes' observed dots against.
func New(graphName, writer string, vv dot.VersionVector, state *graph.WarpState) *Builder {
	if vv == nil {
		vv = dot.NewVersionVector()
	}
	return &Builder{
		Graph:  graphName,
		Writer: writer,
		VV:     vv.Clone(),
		State:  state,
	}
}

// AddNode increments the writer's vv, mints a dot, and stages a NodeAdd.
func (b *Builder) AddNode(node string) error {
	if err := graph.ValidateComponent(node); err != nil {
		return err
	}
	d, err := b.VV.Increment(b.Writer)
	if err != nil {
		return err
	}
	b.Ops = append(b.Ops, graph.Op{Kind: graph.OpNodeAdd, Node: node, Dot: d})
	return nil
}

// AddEdge increments the writer's vv, mints a dot, and stages an EdgeAdd.
func (b *Builder) AddEdge(from, to, label string) error {
	for _, c := range []string{from, to, label} {
		if err := graph.ValidateComponent(c); err != nil {
			return err
		}
	}
	d, err := b.VV.Increment(b.Writer)
	if err != nil {
		return err
	}
	b.Ops = append(b.Ops, graph.Op{Kind: graph.OpEdgeAdd, From: from, To: to, Label: label, Dot: d})
	return nil
}

// RemoveNode stages a NodeRemove whose ObservedDots is every dot currently
// held live by node in the builder's state (empty if state is nil). No vv
// increment: removal references prior dots rather than minting new ones.
func (b *Builder) RemoveNode(node string) error {
	if err := graph.ValidateComponent(node); err != nil {
		return err
	}
	var observed []dot.Dot
	if b.State != nil {
		observed = b.State.NodeAlive.LiveDots(node)
	}
	b.Ops = append(b.Ops, graph.Op{Kind: graph.OpNodeRemove, Node: node, ObservedDots: observed})
	return nil
}

// RemoveEdge is RemoveNode's analogue for edges.
func (b *Builder) RemoveEdge(from, to, label string) error {
	for _, c := range []string{from, to, label} {
		if err := graph.ValidateComponent(c); err != nil {
			return err
		}
	}
	var observed []dot.Dot
	if b.State != nil {
		observed = b.State.EdgeAlive.LiveDots(graph.EdgeKey(from, to, label))
	}
	b.Ops = append(b.Ops, graph.Op{Kind: graph.OpEdgeRemove, From: from, To: to, Label: label, ObservedDots: observed})
	return nil
}

// SetProperty stages a PropSet on a node. No dot is assigned to prop-set ops.
func (b *Builder) SetProperty(node, key string, value any) error {
	if err := graph.ValidateComponent(node); err != nil {
		return err
	}
	if err := graph.ValidateComponent(key); err != nil {
		return err
	}
	b.Ops = append(b.Ops, graph.Op{Kind: graph.OpPropSet, PropNode: node, PropKey: key, Value: value})
	return nil
}

// SetEdgeProperty stages a PropSet on an edge.
func (b *Builder) SetEdgeProperty(from, to, label, key string, value any) error {
	for _, c := range []string{from, to, label, key} {
		if err := graph.ValidateComponent(c); err != nil {
			return err
		}
	}
	b.Ops = append(b.Ops, graph.Op{
		Kind:     graph.OpPropSet,
		PropEdge: &graph.EdgeRef{From: from, To: to, Label: label},
		PropKey:  key,
		Value:    value,
	})
	return nil
}

// Built is the result of Build(): the patch body ready for encoding.
type Built struct {
	Schema  int
	Writer  string
	Lamport uint64
	Ops     []graph.Op
	Context dot.VersionVector
}

// Build returns the staged patch. Does not persist anything.
func (b *Builder) Build() Built {
	return Built{
		Schema:  patchSchema,
		Writer:  b.Writer,
		Lamport: b.Lamport,
		Ops:     append([]graph.Op(nil), b.Ops...),
		Context: b.VV.Clone(),
	}
}

// Commit persists the built patch: rejects an empty op list; reads the
// writer's current ref tip; if a prior patch exists, advances lamport to
// previousLamport+1; encodes the patch as canonical CBOR, writes it as a
// blob, wraps it in a single-entry tree, creates a commit carrying the
// patch envelope trailer, and compare-and-swaps the writer's ref forward.
// Returns the new commit sha.
func Commit(ctx context.Context, b *Builder, store ports.Persistence, codec ports.Codec) (string, error) {
	if len(b.Ops) == 0 {
		return "", warperr.New(warperr.EEmptyPatch, "cannot commit a patch with no staged ops")
	}

	ref := storage.WriterRef(b.Graph, b.Writer)

	expectedParent := b.ExpectedParentSha
	tipSha, found, err := store.ReadRef(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("patch: reading writer ref: %w", err)
	}
	if expectedParent == "" && found {
		expectedParent = tipSha
	}

	lamport := b.Lamport
	if found {
		prevLamport, err := readPatchLamport(ctx, store, codec, tipSha)
		if err != nil {
			return "", fmt.Errorf("patch: reading previous patch lamport: %w", err)
		}
		lamport = prevLamport + 1
	} else if lamport == 0 {
		lamport = 1
	}

	wireOps := make([]opWire, len(b.Ops))
	for i, op := range b.Ops {
		w, err := encodeOp(op)
		if err != nil {
			return "", err
		}
		wireOps[i] = w
	}

	body := patchWire{
		Schema:  patchSchema,
		Writer:  b.Writer,
		Lamport: lamport,
		Ops:     wireOps,
		Context: encodeContext(b.VV),
	}

	bodyBytes, err := codec.Encode(body)
	if err != nil {
		return "", fmt.Errorf("patch: encoding patch body: %w", err)
	}

	patchOid, err := store.WriteBlob(ctx, bodyBytes)
	if err != nil {
		return "", fmt.Errorf("patch: writing patch blob: %w", err)
	}

	treeOid, err := store.WriteTree(ctx, []ports.TreeEntry{{Name: "patch.cbor", Oid: patchOid}})
	if err != nil {
		return "", fmt.Errorf("patch: writing patch tree: %w", err)
	}

	message := envelope(map[string]string{
		"kind":     "patch",
		"graph":    b.Graph,
		"writer":   b.Writer,
		"lamport":  fmt.Sprintf("%d", lamport),
		"patchOid": patchOid,
		"schema":   fmt.Sprintf("%d", patchSchema),
	})

	var parents []string
	if found {
		parents = []string{tipSha}
	}
	sha, err := store.CreateCommit(ctx, ports.CommitSpec{Tree: treeOid, Parents: parents, Message: message})
	if err != nil {
		return "", fmt.Errorf("patch: creating commit: %w", err)
	}

	if err := store.CompareAndSwapRef(ctx, ref, sha, expectedParent); err != nil {
		return "", warperr.Wrap(warperr.ECASConflict, "writer ref moved during commit", err)
	}

	b.Lamport = lamport
	return sha, nil
}

// readPatchLamport walks the commit at sha to recover the lamport its patch
// body was written with.
func readPatchLamport(ctx context.Context, store ports.Persistence, codec ports.Codec, sha string) (uint64, error) {
	treeOid, err := store.GetCommitTree(ctx, sha)
	if err != nil {
		return 0, err
	}
	entries, err := store.ReadTreeOids(ctx, treeOid)
	if err != nil {
		return 0, err
	}
	patchOid, ok := entries["patch.cbor"]
	if !ok {
		return 0, fmt.Errorf("patch: tip commit %s has no patch.cbor entry", sha)
	}
	data, err := store.ReadBlob(ctx, patchOid)
	if err != nil {
		return 0, err
	}
	var body patchWire
	if err := codec.Decode(data, &body); err != nil {
		return 0, fmt.Errorf("patch: decoding tip patch body: %w", err)
	}
	return body.Lamport, nil
}

// envelope renders a strict, sorted-key trailer: "key1=val1 key2=val2 ...".
func envelope(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + fields[k]
	}
	return strings.Join(parts, " ")
}

// Load decodes the patch body of the commit at sha back into a graph.Patch
// whose PatchSha is the patch blob's oid, for receipt/eventId bookkeeping.
func Load(ctx context.Context, store ports.Persistence, codec ports.Codec, sha string) (graph.Patch, error) {
	treeOid, err := store.GetCommitTree(ctx, sha)
	if err != nil {
		return graph.Patch{}, err
	}
	entries, err := store.ReadTreeOids(ctx, treeOid)
	if err != nil {
		return graph.Patch{}, err
	}
	patchOid, ok := entries["patch.cbor"]
	if !ok {
		return graph.Patch{}, fmt.Errorf("patch: commit %s has no patch.cbor entry", sha)
	}
	data, err := store.ReadBlob(ctx, patchOid)
	if err != nil {
		return graph.Patch{}, err
	}
	var body patchWire
	if err := codec.Decode(data, &body); err != nil {
		return graph.Patch{}, fmt.Errorf("patch: decoding patch body: %w", err)
	}
	ops := make([]graph.Op, len(body.Ops))
	for i, w := range body.Ops {
		op, err := decodeOp(w)
		if err != nil {
			return graph.Patch{}, err
		}
		ops[i] = op
	}
	vv, err := decodeContext(body.Context)
	if err != nil {
		return graph.Patch{}, err
	}
	return graph.Patch{Writer: body.Writer, Lamport: body.Lamport, Ops: ops, Context: vv, PatchSha: patchOid}, nil
}
