// Package graph holds the engine's core CRDT state container — WarpState —
// and the deterministic reducer that folds patches into it.
package graph

import (
	"strings"

	"github.com/git-warp/warp/pkg/warperr"
)

const (
	nullByte byte = '\x00'
	sohByte  byte = '\x01'
)

// ValidateComponent rejects a user-supplied identifier (node id, edge label,
// property key) that contains a reserved separator byte. Every component
// fed into EdgeKey, NodePropKey, or EdgePropKey must pass this check first.
func ValidateComponent(s string) error {
	if strings.IndexByte(s, nullByte) >= 0 || strings.IndexByte(s, sohByte) >= 0 {
		return warperr.New(warperr.EInvalidKeyEncoding, "identifier contains a reserved separator byte: "+s)
	}
	return nil
}

// EdgeKey encodes an edge identity as "from\x00to\x00label".
func EdgeKey(from, to, label string) string {
	return from + "\x00" + to + "\x00" + label
}

// DecodeEdgeKey splits an edge key back into its components.
func DecodeEdgeKey(key string) (from, to, label string, ok bool) {
	parts := strings.SplitN(key, "\x00", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// NodePropKey encodes a node property key as "nodeId\x00propKey".
func NodePropKey(nodeID, key string) string {
	return nodeID + "\x00" + key
}

// EdgePropKey encodes an edge property key as
// "\x01from\x00to\x00label\x00propKey". The leading \x01 guarantees
// disjointness from the node-property namespace, since no valid node id may
// contain a \x01 byte.
func EdgePropKey(from, to, label, key string) string {
	return "\x01" + from + "\x00" + to + "\x00" + label + "\x00" + key
}

// IsEdgePropKey reports whether key was produced by EdgePropKey.
func IsEdgePropKey(key string) bool {
	return strings.HasPrefix(key, "\x01")
}

// DecodeNodePropKey splits a node property key into node id and prop key.
// Returns ok=false if key is actually an edge-property key.
func DecodeNodePropKey(key string) (nodeID, propKey string, ok bool) {
	if IsEdgePropKey(key) {
		return "", "", false
	}
	parts := strings.SplitN(key, "\x00", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// DecodeEdgePropKey splits an edge property key into its edge components and
// prop key. Returns ok=false if key does not carry the \x01 prefix.
func DecodeEdgePropKey(key string) (from, to, label, propKey string, ok bool) {
	if !IsEdgePropKey(key) {
		return "", "", "", "", false
	}
	parts := strings.SplitN(key[1:], "\x00", 4)
	if len(parts) != 4 {
		return "", "", "", "", false
	}
	return parts[0], parts[1], parts[2], parts[3], true
}
