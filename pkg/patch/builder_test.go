package patch

import (
	"context"
	"testing"

	"github.com/git-warp/warp/pkg/codec"
	"github.com/git-warp/warp/pkg/dot"
	"github.com/git-warp/warp/pkg/graph"
	"github.com/git-warp/warp/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDeps(t *testing.T) (*storage.Store, *codec.CBORCodec) {
	t.Helper()
	s, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	c, err := codec.New()
	require.NoError(t, err)
	return s, c
}

func TestCommitRejectsEmptyPatch(t *testing.T) {
	s, c := openTestDeps(t)
	b := New("g1", "alice", nil, nil)
	_, err := Commit(context.Background(), b, s, c)
	assert.Error(t, err)
}

func TestCommitFirstPatchSetsLamportOne(t *testing.T) {
	s, c := openTestDeps(t)
	ctx := context.Background()

	b := New("g1", "alice", nil, nil)
	require.NoError(t, b.AddNode("n1"))
	sha, err := Commit(ctx, b, s, c)
	require.NoError(t, err)
	assert.NotEmpty(t, sha)

	loaded, err := Load(ctx, s, c, sha)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), loaded.Lamport)
	assert.Equal(t, "alice", loaded.Writer)
	require.Len(t, loaded.Ops, 1)
	assert.Equal(t, graph.OpNodeAdd, loaded.Ops[0].Kind)
	assert.Equal(t, "n1", loaded.Ops[0].Node)
}

func TestCommitSecondPatchAdvancesLamport(t *testing.T) {
	s, c := openTestDeps(t)
	ctx := context.Background()

	b1 := New("g1", "alice", nil, nil)
	require.NoError(t, b1.AddNode("n1"))
	_, err := Commit(ctx, b1, s, c)
	require.NoError(t, err)

	b2 := New("g1", "alice", b1.VV, nil)
	require.NoError(t, b2.AddNode("n2"))
	sha2, err := Commit(ctx, b2, s, c)
	require.NoError(t, err)

	loaded, err := Load(ctx, s, c, sha2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), loaded.Lamport)
}

func TestCommitDetectsConcurrentRaceViaCAS(t *testing.T) {
	s, c := openTestDeps(t)
	ctx := context.Background()

	b1 := New("g1", "alice", nil, nil)
	require.NoError(t, b1.AddNode("n1"))
	_, err := Commit(ctx, b1, s, c)
	require.NoError(t, err)

	// b2 observed the tip at the same moment b1's sibling did; simulate a
	// stale ExpectedParentSha to force a CAS conflict.
	b2 := New("g1", "alice", nil, nil)
	require.NoError(t, b2.AddNode("n2"))
	b2.ExpectedParentSha = "stale-sha-that-was-never-the-tip"
	_, err = Commit(ctx, b2, s, c)
	assert.Error(t, err)
}

func TestRemoveNodeResolvesObservedDotsFromState(t *testing.T) {
	state := graph.New()
	d, err := dot.New("alice", 1)
	require.NoError(t, err)
	state.NodeAlive.Add("n1", d)

	b := New("g1", "alice", nil, state)
	require.NoError(t, b.RemoveNode("n1"))
	require.Len(t, b.Ops, 1)
	assert.Equal(t, []dot.Dot{d}, b.Ops[0].ObservedDots)
}

func TestSetPropertyAssignsNoDot(t *testing.T) {
	b := New("g1", "alice", nil, nil)
	before := b.VV.Clone()
	require.NoError(t, b.SetProperty("n1", "color", "red"))
	assert.True(t, b.VV.Equal(before))
	require.Len(t, b.Ops, 1)
	assert.Equal(t, graph.OpPropSet, b.Ops[0].Kind)
	assert.Equal(t, "n1", b.Ops[0].PropNode)
}

func TestBuildSnapshotsStagedOpsAndContext(t *testing.T) {
	b := New("g1", "alice", nil, nil)
	require.NoError(t, b.AddNode("n1"))
	built := b.Build()
	assert.Equal(t, patchSchema, built.Schema)
	assert.Equal(t, "alice", built.Writer)
	require.Len(t, built.Ops, 1)
	assert.Equal(t, uint64(1), built.Context["alice"])

	// mutating the builder afterwards must not retroactively change Built.
	require.NoError(t, b.AddNode("n2"))
	assert.Len(t, built.Ops, 1)
}
