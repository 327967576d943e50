// Package codec implements the engine's deterministic codec port
// (pkg/ports.Codec) over github.com/fxamacker/cbor/v2, configured for
// canonical CBOR: sorted map keys, definite-length containers, no
// duplicate keys, no indefinite-length items. Grounded on the
// deterministic-encoding options pattern used for checkpoint signing in the
// wider CBOR-based logging ecosystem this ships from.
package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBORCodec implements ports.Codec with deterministic CBOR encode/decode.
type CBORCodec struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

// New builds a CBORCodec in canonical (core deterministic) mode.
func New() (*CBORCodec, error) {
	encOpts := cbor.CanonicalEncOptions()
	encOpts.Time = cbor.TimeUnix
	encMode, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("codec: building deterministic encode mode: %w", err)
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
		IntDec:      cbor.IntDecConvertNone,
		TagsMd:      cbor.TagsForbidden,
	}
	decMode, err := decOpts.DecMode()
	if err != nil {
		return nil, fmt.Errorf("codec: building deterministic decode mode: %w", err)
	}

	return &CBORCodec{encMode: encMode, decMode: decMode}, nil
}

// Encode renders value as deterministic CBOR bytes.
func (c *CBORCodec) Encode(value any) ([]byte, error) {
	b, err := c.encMode.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return b, nil
}

// Decode parses deterministic CBOR bytes into out.
func (c *CBORCodec) Decode(data []byte, out any) error {
	if err := c.decMode.Unmarshal(data, out); err != nil {
		return fmt.Errorf("codec: decode: %w", err)
	}
	return nil
}
