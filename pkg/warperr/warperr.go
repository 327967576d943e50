// Package warperr defines the stable error-code taxonomy shared across the
// engine's subsystems. Codes are stable strings so callers can branch on
// them even across process boundaries (logs, RPC error details).
package warperr

import (
	"errors"
	"fmt"
)

// Code is a stable error identifier from spec §7.
type Code string

const (
	// Validation
	EInvalidDot         Code = "E_INVALID_DOT"
	EInvalidKeyEncoding Code = "E_INVALID_KEY_ENCODING"
	EInvalidEventID     Code = "E_INVALID_EVENTID"

	// CRDT
	EUnsafeCompaction Code = "E_UNSAFE_COMPACTION"

	// PatchBuilder
	EEmptyPatch  Code = "E_EMPTY_PATCH"
	ECASConflict Code = "E_CAS_CONFLICT"

	// Trust
	ETrustRecordInvalid        Code = "E_TRUST_RECORD_INVALID"
	ETrustRecordIDMismatch     Code = "E_TRUST_RECORD_ID_MISMATCH"
	ETrustSignatureMissing     Code = "E_TRUST_SIGNATURE_MISSING"
	ETrustPrevMismatch         Code = "E_TRUST_PREV_MISMATCH"
	ETrustUnsupportedAlgorithm Code = "E_TRUST_UNSUPPORTED_ALGORITHM"
	ETrustInvalidKey           Code = "E_TRUST_INVALID_KEY"

	// BTR
	EBTRMalformed          Code = "E_BTR_MALFORMED"
	EBTRUnsupportedVersion Code = "E_BTR_UNSUPPORTED_VERSION"
	EBTRTagMismatch        Code = "E_BTR_TAG_MISMATCH"
	EBTRReplayMismatch     Code = "E_BTR_REPLAY_MISMATCH"

	// Policy (assessment-level, never returned as an error). trust.Evaluate
	// reports an invalid policy as Status error with Verdict fail; it does
	// not attach this code to the Assessment.
	ETrustPolicyInvalid Code = "TRUST_POLICY_INVALID"
)

// Error wraps a stable Code with the underlying cause, matching the
// teacher's fmt.Errorf("...: %w", err) wrapping idiom but keeping the code
// available for errors.Is / programmatic branching.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, warperr.New(code, "")) match on Code alone,
// ignoring Msg/Err — the idiomatic sentinel-by-code comparison.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// New builds an Error with no wrapped cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap builds an Error wrapping cause under code.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Err: cause}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return errors.Is(err, New(code, ""))
}
