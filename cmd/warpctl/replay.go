package main

import (
	"context"
	"fmt"

	"github.com/git-warp/warp/pkg/dot"
	"github.com/git-warp/warp/pkg/graph"
	"github.com/git-warp/warp/pkg/patch"
	"github.com/git-warp/warp/pkg/storage"
)

// writerChain walks a writer's ref chain from its current tip back to
// genesis and returns its patches oldest-first, ready for graph.Reduce.
func writerChain(ctx context.Context, d *deps, writer string) ([]graph.Patch, dot.VersionVector, error) {
	ref := storage.WriterRef(d.graph, writer)
	tip, found, err := d.store.ReadRef(ctx, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("reading writer ref: %w", err)
	}
	if !found {
		return nil, dot.NewVersionVector(), nil
	}

	var shas []string
	cursor := tip
	for {
		shas = append(shas, cursor)
		info, err := d.store.GetNodeInfo(ctx, cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("walking commit history: %w", err)
		}
		if len(info.Parents) == 0 {
			break
		}
		cursor = info.Parents[0]
	}

	patches := make([]graph.Patch, len(shas))
	for i, sha := range shas {
		p, err := patch.Load(ctx, d.store, d.codec, sha)
		if err != nil {
			return nil, nil, fmt.Errorf("loading patch %s: %w", sha, err)
		}
		patches[len(shas)-1-i] = p
	}

	var vv dot.VersionVector
	if len(patches) > 0 {
		vv = patches[len(patches)-1].Context.Clone()
	} else {
		vv = dot.NewVersionVector()
	}
	return patches, vv, nil
}

// replayWriter folds a writer's own patch chain into a fresh WarpState.
func replayWriter(ctx context.Context, d *deps, writer string) (*graph.WarpState, []graph.Patch, dot.VersionVector, error) {
	patches, vv, err := writerChain(ctx, d, writer)
	if err != nil {
		return nil, nil, nil, err
	}
	state, _ := graph.Reduce(patches, nil, graph.ReduceOptions{})
	return state, patches, vv, nil
}
