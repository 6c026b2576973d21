package ir

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AccountID identifies a caller. It is the 32-byte public identity that the
// (external) signature layer has already verified.
type AccountID [32]byte

// DevAccount derives a deterministic development account from a short name
// such as "alice". Derivation: Blake2-256("dev/" + name).
func DevAccount(name string) AccountID {
	return AccountID(Blake2_256([]byte("dev/" + name)))
}

// ParseAccountID decodes a 0x-prefixed 64-character hex account id.
func ParseAccountID(s string) (AccountID, error) {
	var a AccountID
	raw, err := decodeHex32(s)
	if err != nil {
		return a, fmt.Errorf("parse account id: %w", err)
	}
	copy(a[:], raw)
	return a, nil
}

// ResolveAccount accepts either a hex account id or a development account
// name. Hex ids must carry the 0x prefix so names are never misread as hex.
func ResolveAccount(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AccountID{}, fmt.Errorf("resolve account: empty account")
	}
	if strings.HasPrefix(s, "0x") {
		return ParseAccountID(s)
	}
	return DevAccount(s), nil
}

// Bytes returns the raw account bytes. This is the byte string hashed to seed
// the repeated-hash digest.
func (a AccountID) Bytes() []byte {
	return a[:]
}

// String renders the account as 0x-prefixed lowercase hex.
func (a AccountID) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
