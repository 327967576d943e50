package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	B int    `cbor:"b"`
	A string `cbor:"a"`
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	in := sample{B: 7, A: "hello"}
	data, err := c.Encode(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, c.Decode(data, &out))
	assert.Equal(t, in, out)
}

func TestEncodeIsDeterministicAcrossMapKeyOrder(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	m1 := map[string]int{"zebra": 1, "alpha": 2, "mid": 3}
	m2 := map[string]int{"mid": 3, "zebra": 1, "alpha": 2}

	b1, err := c.Encode(m1)
	require.NoError(t, err)
	b2, err := c.Encode(m2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestDecodeRejectsDuplicateKeys(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	// manually crafted CBOR map with a duplicate key "a":
	// map(2){"a": 1, "a": 2}
	raw := []byte{0xa2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}
	var out map[string]int
	err = c.Decode(raw, &out)
	assert.Error(t, err)
}
