// Package btr implements the Boundary Transition Record: a tamper-evident
// checkpoint binding an input-state hash, an ordered patch payload, an
// output-state hash, and a timestamp under an HMAC tag.
package btr

import (
	"encoding/hex"
	"fmt"

	"github.com/git-warp/warp/pkg/canon"
	"github.com/git-warp/warp/pkg/graph"
	"github.com/git-warp/warp/pkg/ports"
	"github.com/git-warp/warp/pkg/warperr"
)

const Version = 1

// Record is a BTR as persisted and transmitted: the project codec
// round-trips it unchanged.
type Record struct {
	Version int           `cbor:"version"`
	HIn     string        `cbor:"hIn"`
	HOut    string        `cbor:"hOut"`
	T       string        `cbor:"t"`
	P       []graph.Patch `cbor:"p"`
	Kappa   string        `cbor:"kappa"`
}

// tagPayload is the shape hashed/HMAC'd to produce kappa: deliberately
// excludes kappa itself.
type tagPayload struct {
	Version int           `cbor:"version"`
	HIn     string        `cbor:"hIn"`
	HOut    string        `cbor:"hOut"`
	T       string        `cbor:"t"`
	P       []graph.Patch `cbor:"p"`
}

// Create computes hIn from initialState, replays patches to obtain the
// final state, computes hOut, and tags the whole record with HMAC-SHA256
// under key. t is the caller-supplied timestamp (RFC3339 UTC recommended);
// an empty patch payload yields hIn == hOut.
func Create(crypt ports.Crypto, codec ports.Codec, key []byte, initialState *graph.WarpState, patches []graph.Patch, t string) (Record, error) {
	hIn, err := canon.StateHash(crypt, codec, initialState)
	if err != nil {
		return Record{}, fmt.Errorf("btr: hashing input state: %w", err)
	}

	finalState, _ := graph.Reduce(patches, initialState, graph.ReduceOptions{})
	hOut, err := canon.StateHash(crypt, codec, finalState)
	if err != nil {
		return Record{}, fmt.Errorf("btr: hashing output state: %w", err)
	}

	payload, err := codec.Encode(tagPayload{Version: Version, HIn: hIn, HOut: hOut, T: t, P: patches})
	if err != nil {
		return Record{}, fmt.Errorf("btr: encoding tag payload: %w", err)
	}
	kappa, err := crypt.HMAC("sha256", key, payload)
	if err != nil {
		return Record{}, fmt.Errorf("btr: tagging record: %w", err)
	}

	return Record{Version: Version, HIn: hIn, HOut: hOut, T: t, P: patches, Kappa: kappa}, nil
}

// Verify checks a BTR's structural validity and its HMAC tag. It does not
// re-run the reducer; call VerifyReplay with the state hIn names to
// additionally verify the replay, a second, independent line of defense
// since the tag alone already covers hOut.
func Verify(crypt ports.Crypto, codec ports.Codec, key []byte, r Record) error {
	if r.Version == 0 || r.HIn == "" || r.HOut == "" || r.Kappa == "" {
		return warperr.New(warperr.EBTRMalformed, "btr record is missing required fields")
	}
	if r.Version != Version {
		return warperr.New(warperr.EBTRUnsupportedVersion, fmt.Sprintf("unsupported btr version %d", r.Version))
	}
	if _, err := hex.DecodeString(r.Kappa); err != nil {
		return warperr.Wrap(warperr.EBTRMalformed, "kappa is not valid hex", err)
	}

	payload, err := codec.Encode(tagPayload{Version: r.Version, HIn: r.HIn, HOut: r.HOut, T: r.T, P: r.P})
	if err != nil {
		return fmt.Errorf("btr: encoding tag payload: %w", err)
	}
	want, err := crypt.HMAC("sha256", key, payload)
	if err != nil {
		return fmt.Errorf("btr: recomputing tag: %w", err)
	}
	if want != r.Kappa {
		return warperr.New(warperr.EBTRTagMismatch, "recomputed tag does not match stored kappa")
	}
	return nil
}

// VerifyReplay re-runs the reducer from inputState and confirms the
// resulting state hashes to r.HOut. Call only after Verify succeeds.
func VerifyReplay(crypt ports.Crypto, codec ports.Codec, inputState *graph.WarpState, r Record) error {
	finalState, _ := graph.Reduce(r.P, inputState, graph.ReduceOptions{})
	gotHash, err := canon.StateHash(crypt, codec, finalState)
	if err != nil {
		return fmt.Errorf("btr: hashing replayed state: %w", err)
	}
	if gotHash != r.HOut {
		return warperr.New(warperr.EBTRReplayMismatch, "replayed state hash does not match recorded hOut")
	}
	return nil
}
