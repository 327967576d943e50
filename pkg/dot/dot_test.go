package dot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDotEncodeDecodeRoundtrip(t *testing.T) {
	tests := []struct {
		name    string
		writer  string
		counter uint64
	}{
		{"simple", "writer-a", 1},
		{"writer contains colon", "node:7b3a", 42},
		{"large counter", "w", 18446744073709551615},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.writer, tt.counter)
			require.NoError(t, err)
			encoded := d.Encode()
			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, d, decoded)
		})
	}
}

func TestDotValidation(t *testing.T) {
	_, err := New("", 1)
	assert.Error(t, err)

	_, err = New("writer", 0)
	assert.Error(t, err)

	_, err = New("writer\x00bad", 1)
	assert.Error(t, err)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode("no-colon-here")
	assert.Error(t, err)

	_, err = Decode("writer:")
	assert.Error(t, err)

	_, err = Decode("writer:notanumber")
	assert.Error(t, err)
}

func TestDotLess(t *testing.T) {
	a := Dot{Writer: "a", Counter: 5}
	b := Dot{Writer: "a", Counter: 6}
	c := Dot{Writer: "b", Counter: 1}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Less(c))
}

func TestVersionVectorIncrementAndContains(t *testing.T) {
	vv := NewVersionVector()
	d1, err := vv.Increment("w1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), d1.Counter)

	d2, err := vv.Increment("w1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), d2.Counter)

	assert.True(t, vv.Contains(d1))
	assert.True(t, vv.Contains(d2))
	assert.False(t, vv.Contains(Dot{Writer: "w1", Counter: 3}))
	assert.False(t, vv.Contains(Dot{Writer: "w2", Counter: 1}))
}

func TestVersionVectorMergeIsPointwiseMax(t *testing.T) {
	a := VersionVector{"w1": 3, "w2": 1}
	b := VersionVector{"w1": 2, "w3": 5}

	merged := a.Merge(b)
	assert.Equal(t, uint64(3), merged["w1"])
	assert.Equal(t, uint64(1), merged["w2"])
	assert.Equal(t, uint64(5), merged["w3"])

	// pure: inputs untouched
	assert.Equal(t, uint64(3), a["w1"])
	assert.Equal(t, uint64(2), b["w1"])
}

func TestVersionVectorDominates(t *testing.T) {
	a := VersionVector{"w1": 3, "w2": 2}
	b := VersionVector{"w1": 2, "w2": 2}
	c := VersionVector{"w1": 2, "w3": 1}

	assert.True(t, a.Dominates(b))
	assert.False(t, b.Dominates(a))
	assert.False(t, a.Dominates(c)) // a has no entry for w3
}

func TestVersionVectorEncodeIsSortedAndOmitsZero(t *testing.T) {
	vv := VersionVector{"zebra": 1, "alpha": 2, "mid": 0}
	encoded := vv.Encode()
	assert.Equal(t, []string{"alpha:2", "zebra:1"}, encoded)
}

func TestEventIdTotalOrder(t *testing.T) {
	base := EventId{Lamport: 5, Writer: "a", PatchSha: "sha1", OpIndex: 0}

	higherLamport := base
	higherLamport.Lamport = 6
	assert.True(t, base.Less(higherLamport))

	higherWriter := base
	higherWriter.Writer = "b"
	assert.True(t, base.Less(higherWriter))

	higherSha := base
	higherSha.PatchSha = "sha2"
	assert.True(t, base.Less(higherSha))

	higherOp := base
	higherOp.OpIndex = 1
	assert.True(t, base.Less(higherOp))

	assert.True(t, Zero.Less(base))
	assert.False(t, base.Less(Zero))
}
