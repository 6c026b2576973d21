package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashLength is the size in bytes of a Hash.
const HashLength = 32

// Hash is a 256-bit digest produced by the runtime hasher (Blake2-256).
type Hash [HashLength]byte

// Blake2_256 hashes data with unkeyed Blake2b and a 32-byte digest.
func Blake2_256(data []byte) Hash {
	return Hash(blake2b.Sum256(data))
}

// String renders the hash as 0x-prefixed lowercase hex.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a 0x-prefixed (or bare) 64-character hex string.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := decodeHex32(s)
	if err != nil {
		return h, fmt.Errorf("parse hash: %w", err)
	}
	copy(h[:], raw)
	return h, nil
}

func decodeHex32(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != HashLength*2 {
		return nil, fmt.Errorf("expected %d hex characters, got %d", HashLength*2, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Domain prefixes for content-addressed record identity.
// Version suffix enables future algorithm migration.
const (
	DomainExtrinsic = "pallet/extrinsic/v1"
	DomainEvent     = "pallet/event/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ExtrinsicID computes the content-addressed id of an applied extrinsic.
// The id covers its position (block, index), origin and call, so the same
// call submitted twice in different slots gets different ids.
func ExtrinsicID(block uint64, index uint32, origin Origin, call Call) (string, error) {
	name, args, err := EncodeCall(call)
	if err != nil {
		return "", fmt.Errorf("ExtrinsicID: %w", err)
	}
	obj := map[string]any{
		"block":  block,
		"index":  index,
		"origin": origin.String(),
		"call":   name,
		"args":   args,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ExtrinsicID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainExtrinsic, canonical), nil
}

// EventDigest computes a content hash of an event, used by replay to compare
// emitted events without comparing payload maps field by field.
func EventDigest(ev Event) (string, error) {
	kind, payload, err := EncodeEvent(ev)
	if err != nil {
		return "", fmt.Errorf("EventDigest: %w", err)
	}
	canonical, err := MarshalCanonical(map[string]any{"kind": kind, "payload": payload})
	if err != nil {
		return "", fmt.Errorf("EventDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// MustExtrinsicID is like ExtrinsicID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustExtrinsicID(block uint64, index uint32, origin Origin, call Call) string {
	id, err := ExtrinsicID(block, index, origin, call)
	if err != nil {
		panic(err)
	}
	return id
}
