package crdt

import "github.com/git-warp/warp/pkg/dot"

// LWW is a last-write-wins register. Ties between concurrent writes are
// broken by EventId's total order, never by wall-clock arrival time — the
// register holds an identity, not a timestamp.
type LWW struct {
	EventID dot.EventId
	Value   any
}

// Set unconditionally assigns value under eventID, ignoring any prior state.
// Used the first time a register is populated.
func Set(eventID dot.EventId, value any) LWW {
	return LWW{EventID: eventID, Value: value}
}

// Join returns the register holding the write with the greater EventId. If
// both sides carry the same EventId (the idempotence case — re-folding the
// same op), the left operand is returned unchanged, making Join idempotent.
func (l LWW) Join(other LWW) LWW {
	if other.EventID.Greater(l.EventID) {
		return other
	}
	return l
}

// IsZero reports whether the register has never been written.
func (l LWW) IsZero() bool {
	return l.EventID == dot.Zero
}
