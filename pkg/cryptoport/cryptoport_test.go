package cryptoport

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSha256(t *testing.T) {
	a := New()
	h1, err := a.Hash("sha256", []byte("hello"))
	require.NoError(t, err)
	h2, err := a.Hash("sha256", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestHashUnsupportedAlgorithm(t *testing.T) {
	a := New()
	_, err := a.Hash("md5", []byte("x"))
	assert.Error(t, err)
}

func TestHMACDeterministic(t *testing.T) {
	a := New()
	key := []byte("secret-key")
	tag1, err := a.HMAC("sha256", key, []byte("payload"))
	require.NoError(t, err)
	tag2, err := a.HMAC("sha256", key, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, tag1, tag2)

	tagOtherKey, err := a.HMAC("sha256", []byte("different"), []byte("payload"))
	require.NoError(t, err)
	assert.NotEqual(t, tag1, tagOtherKey)
}

func TestSignAndVerifyRoundtrip(t *testing.T) {
	a := New()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	payload := []byte("trust-record-payload")
	sig, err := a.Sign(priv, payload)
	require.NoError(t, err)

	ok, err := a.Verify(pub, sig, payload)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Verify(pub, sig, []byte("tampered"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsWrongSizedKeys(t *testing.T) {
	a := New()
	ok, err := a.Verify([]byte("too-short"), make([]byte, 64), []byte("payload"))
	require.NoError(t, err)
	assert.False(t, ok)
}
