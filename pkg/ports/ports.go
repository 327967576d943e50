// Package ports defines the external contracts the core engine depends on
// but does not implement itself: content-addressed persistence, a
// deterministic codec, and the cryptographic primitives the trust subsystem
// and BTR need. Concrete realizations live in pkg/storage, pkg/codec, and
// pkg/cryptoport; the engine only ever talks to these interfaces so any
// conforming implementation can be substituted.
package ports

import "context"

// TreeEntry is one name-to-oid mapping inside a tree object.
type TreeEntry struct {
	Name string
	Oid  string
}

// CommitSpec describes a commit to be created.
type CommitSpec struct {
	Tree    string
	Parents []string
	Message string
}

// NodeInfo mirrors the subset of a commit's metadata the engine inspects.
type NodeInfo struct {
	Parents []string
	Message string
	Date    string
}

// Persistence is the Git-like content-addressed storage port: blob/tree/
// commit objects plus compare-and-swap refs. All identifiers are opaque
// strings; the only structural assumption is content addressing and CAS
// atomicity.
type Persistence interface {
	ReadRef(ctx context.Context, ref string) (oid string, found bool, err error)
	CompareAndSwapRef(ctx context.Context, ref, newOid, expectedOid string) error
	WriteBlob(ctx context.Context, data []byte) (oid string, err error)
	ReadBlob(ctx context.Context, oid string) ([]byte, error)
	WriteTree(ctx context.Context, entries []TreeEntry) (oid string, err error)
	ReadTreeOids(ctx context.Context, oid string) (map[string]string, error)
	CreateCommit(ctx context.Context, spec CommitSpec) (sha string, err error)
	GetCommitTree(ctx context.Context, sha string) (treeOid string, err error)
	GetNodeInfo(ctx context.Context, sha string) (NodeInfo, error)
	ShowNode(ctx context.Context, sha string) (message string, err error)
}

// Codec is the deterministic serialization port: sorted map keys,
// definite-length containers, no float where an integer suffices. CBOR is
// the expected realization but any codec meeting that determinism contract
// conforms.
type Codec interface {
	Encode(value any) ([]byte, error)
	Decode(data []byte, out any) error
}

// Crypto is the cryptographic primitives port: content hashing, HMAC tagging,
// and ed25519 signature verification for the trust subsystem.
type Crypto interface {
	Hash(algorithm string, data []byte) (hex string, err error)
	HMAC(algorithm string, key, data []byte) (hex string, err error)
	Verify(publicKey32, signature, payload []byte) (bool, error)
	Sign(privateKey64, payload []byte) (signature []byte, err error)
}
