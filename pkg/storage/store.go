// Package storage implements the engine's persistence port
// (pkg/ports.Persistence) as a Git-like content-addressed object store
// backed by bbolt: blobs, trees, and commits keyed by the hex SHA-256 of
// their content, plus a refs bucket supporting compare-and-swap updates.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/git-warp/warp/pkg/ports"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketBlobs   = []byte("blobs")
	bucketTrees   = []byte("trees")
	bucketCommits = []byte("commits")
	bucketRefs    = []byte("refs")
)

// treeRecord is the on-disk shape of a tree object.
type treeRecord struct {
	Entries []ports.TreeEntry `json:"entries"`
}

// commitRecord is the on-disk shape of a commit object.
type commitRecord struct {
	Tree    string   `json:"tree"`
	Parents []string `json:"parents"`
	Message string   `json:"message"`
	Date    string   `json:"date"`
}

// Store is a bbolt-backed content-addressed object store implementing
// ports.Persistence.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) a content-addressed store at
// <dataDir>/warp.db.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "warp.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketBlobs, bucketTrees, bucketCommits, bucketRefs} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("storage: creating bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func contentOid(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WriteBlob stores data content-addressed and returns its oid. Writing the
// same bytes twice is idempotent and returns the same oid.
func (s *Store) WriteBlob(ctx context.Context, data []byte) (string, error) {
	oid := contentOid(data)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(oid), data)
	})
	if err != nil {
		return "", fmt.Errorf("storage: writing blob: %w", err)
	}
	return oid, nil
}

// ReadBlob retrieves the bytes for oid.
func (s *Store) ReadBlob(ctx context.Context, oid string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get([]byte(oid))
		if v == nil {
			return fmt.Errorf("storage: blob %s not found", oid)
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteTree stores a tree object (a sorted set of name->oid entries) and
// returns its content-addressed oid.
func (s *Store) WriteTree(ctx context.Context, entries []ports.TreeEntry) (string, error) {
	sorted := append([]ports.TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	rec := treeRecord{Entries: sorted}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("storage: marshaling tree: %w", err)
	}
	oid := contentOid(data)
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTrees).Put([]byte(oid), data)
	})
	if err != nil {
		return "", fmt.Errorf("storage: writing tree: %w", err)
	}
	return oid, nil
}

// ReadTreeOids returns the name->oid map for the tree at oid.
func (s *Store) ReadTreeOids(ctx context.Context, oid string) (map[string]string, error) {
	var rec treeRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketTrees).Get([]byte(oid))
		if v == nil {
			return fmt.Errorf("storage: tree %s not found", oid)
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rec.Entries))
	for _, e := range rec.Entries {
		out[e.Name] = e.Oid
	}
	return out, nil
}

// CreateCommit writes a commit object referencing a tree and parent commits,
// returning its content-addressed sha. Two commits with identical content
// (same tree, parents, message, date) collapse to the same sha; callers
// that need distinct commits for identical content should vary the message.
func (s *Store) CreateCommit(ctx context.Context, spec ports.CommitSpec) (string, error) {
	rec := commitRecord{Tree: spec.Tree, Parents: spec.Parents, Message: spec.Message}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("storage: marshaling commit: %w", err)
	}
	sha := contentOid(data)
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCommits).Put([]byte(sha), data)
	})
	if err != nil {
		return "", fmt.Errorf("storage: writing commit: %w", err)
	}
	return sha, nil
}

// GetCommitTree returns the tree oid referenced by the commit at sha.
func (s *Store) GetCommitTree(ctx context.Context, sha string) (string, error) {
	rec, err := s.readCommit(sha)
	if err != nil {
		return "", err
	}
	return rec.Tree, nil
}

// GetNodeInfo returns the commit metadata at sha.
func (s *Store) GetNodeInfo(ctx context.Context, sha string) (ports.NodeInfo, error) {
	rec, err := s.readCommit(sha)
	if err != nil {
		return ports.NodeInfo{}, err
	}
	return ports.NodeInfo{Parents: rec.Parents, Message: rec.Message, Date: rec.Date}, nil
}

// ShowNode returns the commit message at sha.
func (s *Store) ShowNode(ctx context.Context, sha string) (string, error) {
	rec, err := s.readCommit(sha)
	if err != nil {
		return "", err
	}
	return rec.Message, nil
}

func (s *Store) readCommit(sha string) (commitRecord, error) {
	var rec commitRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCommits).Get([]byte(sha))
		if v == nil {
			return fmt.Errorf("storage: commit %s not found", sha)
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

// ReadRef returns the oid a ref currently points to.
func (s *Store) ReadRef(ctx context.Context, ref string) (string, bool, error) {
	var oid string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRefs).Get([]byte(ref))
		if v != nil {
			oid = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("storage: reading ref %s: %w", ref, err)
	}
	return oid, found, nil
}

// CompareAndSwapRef atomically updates ref to newOid if and only if its
// current value equals expectedOid (empty string means "must not exist
// yet"). A single bbolt read-modify-write transaction makes the check and
// the write atomic with respect to other callers.
func (s *Store) CompareAndSwapRef(ctx context.Context, ref, newOid, expectedOid string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		current := b.Get([]byte(ref))
		currentStr := string(current)
		if current == nil {
			currentStr = ""
		}
		if currentStr != expectedOid {
			return fmt.Errorf("storage: CAS conflict on ref %s: expected %q, found %q", ref, expectedOid, currentStr)
		}
		return b.Put([]byte(ref), []byte(newOid))
	})
}

// WriterRef returns the ref path a writer's patch chain lives under.
func WriterRef(graphName, writer string) string {
	return strings.Join([]string{"refs", "warp", graphName, "writers", writer}, "/")
}

// TrustRef returns the ref path the trust record chain lives under.
func TrustRef(graphName string) string {
	return strings.Join([]string{"refs", "warp", graphName, "trust", "records"}, "/")
}

var _ ports.Persistence = (*Store)(nil)
