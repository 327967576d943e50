package trust

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/git-warp/warp/pkg/ports"
	"github.com/git-warp/warp/pkg/storage"
	"github.com/git-warp/warp/pkg/warperr"
)

const schemaVersion1 = 1

// KeyID renders the "ed25519:"+sha256_hex(raw32ByteKey) key identifier from
// a raw public key.
func KeyID(rawPublicKey []byte) string {
	sum := sha256.Sum256(rawPublicKey)
	return "ed25519:" + hex.EncodeToString(sum[:])
}

// recordWire is the persisted record body, mirroring §4.F's envelope. Stored
// as CBOR; canonical JSON (canon.go) is used only for domain-separated
// hashing and signing, never for storage.
type recordWire = Record

// validateSchema checks the structural requirements Append enforces before
// touching persistence: schema version, signature presence, and a
// recomputed recordId match.
func validateSchema(r Record) error {
	if r.SchemaVersion != schemaVersion1 {
		return warperr.New(warperr.ETrustRecordInvalid, fmt.Sprintf("unsupported schemaVersion %d", r.SchemaVersion))
	}
	switch r.RecordType {
	case KeyAdd, KeyRevoke, WriterBindAdd, WriterBindRevoke:
	default:
		return warperr.New(warperr.ETrustRecordInvalid, fmt.Sprintf("unknown recordType %q", r.RecordType))
	}
	if r.Signature.Alg == "" || r.Signature.Sig == "" {
		return warperr.New(warperr.ETrustSignatureMissing, "signature.alg and signature.sig are required")
	}
	payload, err := RecordIDPayload(r)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(payload)
	want := hex.EncodeToString(sum[:])
	if r.RecordId != want {
		return warperr.New(warperr.ETrustRecordIDMismatch, fmt.Sprintf("recordId %s does not match recomputed %s", r.RecordId, want))
	}
	return nil
}

// ReadTip returns the most recently appended record in graphName's trust
// chain, its commit sha, and whether a chain exists at all.
func ReadTip(ctx context.Context, store ports.Persistence, codec ports.Codec, graphName string) (Record, string, bool, error) {
	ref := storage.TrustRef(graphName)
	sha, found, err := store.ReadRef(ctx, ref)
	if err != nil {
		return Record{}, "", false, fmt.Errorf("trust: reading chain ref: %w", err)
	}
	if !found {
		return Record{}, "", false, nil
	}
	r, err := loadRecord(ctx, store, codec, sha)
	if err != nil {
		return Record{}, "", false, err
	}
	return r, sha, true, nil
}

func loadRecord(ctx context.Context, store ports.Persistence, codec ports.Codec, sha string) (Record, error) {
	treeOid, err := store.GetCommitTree(ctx, sha)
	if err != nil {
		return Record{}, err
	}
	entries, err := store.ReadTreeOids(ctx, treeOid)
	if err != nil {
		return Record{}, err
	}
	oid, ok := entries["record.cbor"]
	if !ok {
		return Record{}, fmt.Errorf("trust: commit %s has no record.cbor entry", sha)
	}
	data, err := store.ReadBlob(ctx, oid)
	if err != nil {
		return Record{}, err
	}
	var r recordWire
	if err := codec.Decode(data, &r); err != nil {
		return Record{}, fmt.Errorf("trust: decoding record: %w", err)
	}
	return r, nil
}

// Append validates r structurally (schema, signature presence, recordId
// recomputation, prev linkage against the observed tip) and persists it as
// a blob/tree/commit, advancing the chain ref under compare-and-swap.
// Full cryptographic signature verification against a resolved key set is
// the evaluator's concern, not Append's — Append only checks the signature
// fields are present, per §4.F.
func Append(ctx context.Context, store ports.Persistence, codec ports.Codec, graphName string, r Record) (string, error) {
	if err := validateSchema(r); err != nil {
		return "", err
	}

	ref := storage.TrustRef(graphName)
	tip, tipSha, found, err := ReadTip(ctx, store, codec, graphName)
	if err != nil {
		return "", err
	}

	var expectedPrev *string
	if found {
		id := tip.RecordId
		expectedPrev = &id
	}
	if !sameOptionalString(r.Prev, expectedPrev) {
		return "", warperr.New(warperr.ETrustPrevMismatch, "record.prev does not match the chain's current tip")
	}

	data, err := codec.Encode(r)
	if err != nil {
		return "", fmt.Errorf("trust: encoding record: %w", err)
	}
	blobOid, err := store.WriteBlob(ctx, data)
	if err != nil {
		return "", fmt.Errorf("trust: writing record blob: %w", err)
	}
	treeOid, err := store.WriteTree(ctx, []ports.TreeEntry{{Name: "record.cbor", Oid: blobOid}})
	if err != nil {
		return "", fmt.Errorf("trust: writing record tree: %w", err)
	}

	var parents []string
	if found {
		parents = []string{tipSha}
	}
	message := fmt.Sprintf("kind=trust-record graph=%s recordType=%s recordId=%s", graphName, r.RecordType, r.RecordId)
	sha, err := store.CreateCommit(ctx, ports.CommitSpec{Tree: treeOid, Parents: parents, Message: message})
	if err != nil {
		return "", fmt.Errorf("trust: creating commit: %w", err)
	}

	if err := store.CompareAndSwapRef(ctx, ref, sha, tipSha); err != nil {
		return "", warperr.Wrap(warperr.ECASConflict, "trust chain ref moved during append", err)
	}
	return sha, nil
}

func sameOptionalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Chain loads every record in graphName's trust chain, oldest first, by
// walking commit parents back from the tip.
func Chain(ctx context.Context, store ports.Persistence, codec ports.Codec, graphName string) ([]Record, error) {
	ref := storage.TrustRef(graphName)
	sha, found, err := store.ReadRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("trust: reading chain ref: %w", err)
	}
	if !found {
		return nil, nil
	}

	var shas []string
	cur := sha
	for {
		shas = append(shas, cur)
		info, err := store.GetNodeInfo(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("trust: reading commit %s: %w", cur, err)
		}
		if len(info.Parents) == 0 {
			break
		}
		cur = info.Parents[0]
	}

	records := make([]Record, len(shas))
	for i := len(shas) - 1; i >= 0; i-- {
		r, err := loadRecord(ctx, store, codec, shas[i])
		if err != nil {
			return nil, err
		}
		records[len(shas)-1-i] = r
	}
	return records, nil
}
