package tile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// KeySize is the length of the binary tile key.
const KeySize = 12

// ErrInvalidKey is returned when decoding a key of the wrong length.
var ErrInvalidKey = errors.New("tile: invalid key")

// Key returns the fixed-width little-endian encoding x:i32 | y:i32 | z:i32,
// suitable as a key in a binary KV store.
func (p Position) Key() [KeySize]byte {
	var k [KeySize]byte
	binary.LittleEndian.PutUint32(k[0:4], uint32(p.X))
	binary.LittleEndian.PutUint32(k[4:8], uint32(p.Y))
	binary.LittleEndian.PutUint32(k[8:12], uint32(p.Z))
	return k
}

// FromKey decodes a key produced by Key.
func FromKey(b []byte) (Position, error) {
	if len(b) != KeySize {
		return Position{}, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidKey, len(b), KeySize)
	}
	return Position{
		X: int32(binary.LittleEndian.Uint32(b[0:4])),
		Y: int32(binary.LittleEndian.Uint32(b[4:8])),
		Z: int32(binary.LittleEndian.Uint32(b[8:12])),
	}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p Position) MarshalBinary() ([]byte, error) {
	k := p.Key()
	return k[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Position) UnmarshalBinary(b []byte) error {
	pos, err := FromKey(b)
	if err != nil {
		return err
	}
	*p = pos
	return nil
}
