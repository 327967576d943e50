package trust

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/git-warp/warp/pkg/codec"
	"github.com/git-warp/warp/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexSha256(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// signedRecord builds a structurally valid, signed record: recordId and
// signature are both computed from the real canonical payloads so tests
// exercise the actual hashing/signing paths rather than placeholders.
func signedRecord(t *testing.T, priv ed25519.PrivateKey, issuerKeyId string, recordType RecordType, prev *string, subject Subject) Record {
	t.Helper()
	r := Record{
		SchemaVersion: 1,
		RecordType:    recordType,
		IssuerKeyId:   issuerKeyId,
		IssuedAt:      "2026-01-01T00:00:00Z",
		Prev:          prev,
		Subject:       subject,
	}
	idPayload, err := RecordIDPayload(r)
	require.NoError(t, err)
	r.RecordId = hexSha256(idPayload)

	sigPayload, err := SignaturePayload(r)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, sigPayload)
	r.Signature = Signature{Alg: "ed25519", Sig: base64.StdEncoding.EncodeToString(sig)}
	return r
}

func TestRecordIDPayloadDeterministic(t *testing.T) {
	r := Record{SchemaVersion: 1, RecordType: KeyAdd, IssuedAt: "2026-01-01T00:00:00Z", Subject: Subject{KeyId: "k1", PublicKey: "AAAA"}}
	p1, err := RecordIDPayload(r)
	require.NoError(t, err)
	p2, err := RecordIDPayload(r)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestAppendRejectsBadSchemaVersion(t *testing.T) {
	ctx := context.Background()
	s, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	c, err := codec.New()
	require.NoError(t, err)

	r := Record{SchemaVersion: 2, RecordType: KeyAdd}
	_, err = Append(ctx, s, c, "g1", r)
	assert.Error(t, err)
}

func TestAppendAndChainWalksOldestFirst(t *testing.T) {
	ctx := context.Background()
	s, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	c, err := codec.New()
	require.NoError(t, err)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	keyId := KeyID(pub)

	r1 := signedRecord(t, priv, keyId, KeyAdd, nil, Subject{KeyId: keyId, PublicKey: base64.StdEncoding.EncodeToString(pub)})
	_, err = Append(ctx, s, c, "g1", r1)
	require.NoError(t, err)

	id1 := r1.RecordId
	r2 := signedRecord(t, priv, keyId, WriterBindAdd, &id1, Subject{WriterId: "alice", KeyId: keyId})
	_, err = Append(ctx, s, c, "g1", r2)
	require.NoError(t, err)

	chain, err := Chain(ctx, s, c, "g1")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, KeyAdd, chain[0].RecordType)
	assert.Equal(t, WriterBindAdd, chain[1].RecordType)
	assert.True(t, VerifyChain(chain))
}

func TestAppendRejectsPrevMismatch(t *testing.T) {
	ctx := context.Background()
	s, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	c, err := codec.New()
	require.NoError(t, err)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	keyId := KeyID(pub)

	r1 := signedRecord(t, priv, keyId, KeyAdd, nil, Subject{KeyId: keyId, PublicKey: base64.StdEncoding.EncodeToString(pub)})
	_, err = Append(ctx, s, c, "g1", r1)
	require.NoError(t, err)

	// wrong prev: should have pointed at r1's id, points at nil instead.
	r2 := signedRecord(t, priv, keyId, WriterBindAdd, nil, Subject{WriterId: "alice", KeyId: keyId})
	_, err = Append(ctx, s, c, "g1", r2)
	assert.Error(t, err)
}

func TestBuildStateMonotonicRevocationIsAnError(t *testing.T) {
	records := []Record{
		{SchemaVersion: 1, RecordType: KeyAdd, RecordId: "r1", Subject: Subject{KeyId: "k1"}},
		{SchemaVersion: 1, RecordType: KeyRevoke, RecordId: "r2", Subject: Subject{KeyId: "k1"}},
		{SchemaVersion: 1, RecordType: KeyAdd, RecordId: "r3", Subject: Subject{KeyId: "k1"}},
	}
	st := BuildState(records)
	assert.Equal(t, StatusError, st.Status)
	assert.Len(t, st.Errors, 1)
}

func TestBuildStateEmptyIsNotConfigured(t *testing.T) {
	st := BuildState(nil)
	assert.Equal(t, StatusNotConfigured, st.Status)
}

// TestS5TrustFail reproduces the spec's S5 scenario: KEY_ADD(k1) ->
// KEY_ADD(k2) -> WRITER_BIND_ADD(alice,k1) -> KEY_REVOKE(k2). Evaluating
// [alice, mallory] in enforce mode must fail overall with mallory
// untrusted and alice trusted via k1.
func TestS5TrustFail(t *testing.T) {
	records := []Record{
		{SchemaVersion: 1, RecordType: KeyAdd, RecordId: "r1", Subject: Subject{KeyId: "k1"}},
		{SchemaVersion: 1, RecordType: KeyAdd, RecordId: "r2", Subject: Subject{KeyId: "k2"}},
		{SchemaVersion: 1, RecordType: WriterBindAdd, RecordId: "r3", Subject: Subject{WriterId: "alice", KeyId: "k1"}},
		{SchemaVersion: 1, RecordType: KeyRevoke, RecordId: "r4", Subject: Subject{KeyId: "k2"}},
	}
	st := BuildState(records)
	require.Equal(t, StatusOK, st.Status)

	policy := Policy{SchemaVersion: 1, Mode: ModeEnforce, WriterPolicy: WriterPolicyAllMustBeTrusted}
	assessment := Evaluate(st, policy, []string{"alice", "mallory"})

	assert.Equal(t, VerdictFail, assessment.Verdict)
	assert.Equal(t, []string{"mallory"}, assessment.UntrustedWriters)
	require.Len(t, assessment.Writers, 2)
	assert.Equal(t, "alice", assessment.Writers[0].WriterId)
	assert.True(t, assessment.Writers[0].Trusted)
	assert.Equal(t, ReasonWriterBoundToActiveKey, assessment.Writers[0].Reason)
	assert.Equal(t, "mallory", assessment.Writers[1].WriterId)
	assert.False(t, assessment.Writers[1].Trusted)
	assert.Equal(t, ReasonWriterHasNoActiveBinding, assessment.Writers[1].Reason)
}

func TestEvaluateNotConfigured(t *testing.T) {
	st := BuildState(nil)
	policy := Policy{SchemaVersion: 1, Mode: ModeEnforce, WriterPolicy: WriterPolicyAllMustBeTrusted}
	assessment := Evaluate(st, policy, []string{"alice"})
	assert.Equal(t, VerdictNotConfigured, assessment.Verdict)
}

func TestEvaluateInvalidPolicyFails(t *testing.T) {
	st := BuildState([]Record{{SchemaVersion: 1, RecordType: KeyAdd, RecordId: "r1", Subject: Subject{KeyId: "k1"}}})
	policy := Policy{SchemaVersion: 1, Mode: "bogus", WriterPolicy: WriterPolicyAllMustBeTrusted}
	assessment := Evaluate(st, policy, []string{"alice"})
	assert.Equal(t, VerdictFail, assessment.Verdict)
	assert.Equal(t, StatusError, assessment.Status)
}

func TestVerifyChainDetectsBrokenPrevLink(t *testing.T) {
	other := "not-r1"
	records := []Record{
		{SchemaVersion: 1, RecordType: KeyAdd, RecordId: computeTestRecordID(t, Record{SchemaVersion: 1, RecordType: KeyAdd, Subject: Subject{KeyId: "k1"}}), Subject: Subject{KeyId: "k1"}},
		{SchemaVersion: 1, RecordType: KeyRevoke, RecordId: computeTestRecordID(t, Record{SchemaVersion: 1, RecordType: KeyRevoke, Prev: &other, Subject: Subject{KeyId: "k1"}}), Prev: &other, Subject: Subject{KeyId: "k1"}},
	}
	assert.False(t, VerifyChain(records))
}

func computeTestRecordID(t *testing.T, r Record) string {
	t.Helper()
	payload, err := RecordIDPayload(r)
	require.NoError(t, err)
	return hexSha256(payload)
}
