// Package cryptoport implements the engine's crypto port contract
// (pkg/ports.Crypto) with standard library primitives: SHA-256 content
// hashing, HMAC-SHA256 tagging, and ed25519 signing/verification. No
// third-party cryptographic library is used here — see DESIGN.md for why.
package cryptoport

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Adapter implements ports.Crypto.
type Adapter struct{}

// New returns a stdlib-backed crypto port adapter.
func New() *Adapter {
	return &Adapter{}
}

// Hash returns the lowercase hex digest of data under algorithm. Only
// "sha256" is currently supported.
func (a *Adapter) Hash(algorithm string, data []byte) (string, error) {
	switch algorithm {
	case "sha256":
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", fmt.Errorf("cryptoport: unsupported hash algorithm %q", algorithm)
	}
}

// HMAC returns the lowercase hex HMAC tag of data under key, using
// algorithm. Only "sha256" is currently supported.
func (a *Adapter) HMAC(algorithm string, key, data []byte) (string, error) {
	switch algorithm {
	case "sha256":
		mac := hmac.New(sha256.New, key)
		mac.Write(data)
		return hex.EncodeToString(mac.Sum(nil)), nil
	default:
		return "", fmt.Errorf("cryptoport: unsupported hmac algorithm %q", algorithm)
	}
}

// Verify reports whether signature is a valid ed25519 signature of payload
// under publicKey32. publicKey32 must be exactly 32 bytes and signature
// exactly 64 bytes; any other length is treated as a verification failure
// rather than an error, matching the port's boolean contract.
func (a *Adapter) Verify(publicKey32, signature, payload []byte) (bool, error) {
	if len(publicKey32) != ed25519.PublicKeySize {
		return false, nil
	}
	if len(signature) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey32), payload, signature), nil
}

// Sign produces an ed25519 signature of payload under privateKey64 (the
// standard 64-byte seed||publicKey private key encoding).
func (a *Adapter) Sign(privateKey64, payload []byte) ([]byte, error) {
	if len(privateKey64) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("cryptoport: private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(privateKey64))
	}
	return ed25519.Sign(ed25519.PrivateKey(privateKey64), payload), nil
}
