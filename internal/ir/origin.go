package ir

import (
	"fmt"
	"strings"
)

// OriginKind distinguishes where a call came from.
type OriginKind int

const (
	// OriginNone is an unsigned call (no verified caller).
	OriginNone OriginKind = iota
	// OriginSigned is a call signed by an account.
	OriginSigned
	// OriginRoot is a privileged call from the runtime itself.
	OriginRoot
)

// Origin is the verified source of a call. The signature check happens
// outside this module; an Origin only carries its result.
type Origin struct {
	kind OriginKind
	who  AccountID
}

// Signed returns an origin for a call signed by who.
func Signed(who AccountID) Origin {
	return Origin{kind: OriginSigned, who: who}
}

// Unsigned returns the origin of an unsigned call.
func Unsigned() Origin {
	return Origin{kind: OriginNone}
}

// Root returns the privileged root origin.
func Root() Origin {
	return Origin{kind: OriginRoot}
}

// Kind returns the origin kind.
func (o Origin) Kind() OriginKind {
	return o.kind
}

// Signer returns the signing account, if the origin is signed.
func (o Origin) Signer() (AccountID, bool) {
	if o.kind != OriginSigned {
		return AccountID{}, false
	}
	return o.who, true
}

// String renders the origin as "signed:0x…", "none" or "root".
// This is the persisted form; ParseOrigin reverses it.
func (o Origin) String() string {
	switch o.kind {
	case OriginSigned:
		return "signed:" + o.who.String()
	case OriginRoot:
		return "root"
	default:
		return "none"
	}
}

// ParseOrigin decodes the persisted origin form.
func ParseOrigin(s string) (Origin, error) {
	switch {
	case s == "none" || s == "":
		return Unsigned(), nil
	case s == "root":
		return Root(), nil
	case strings.HasPrefix(s, "signed:"):
		who, err := ParseAccountID(strings.TrimPrefix(s, "signed:"))
		if err != nil {
			return Origin{}, fmt.Errorf("parse origin: %w", err)
		}
		return Signed(who), nil
	default:
		return Origin{}, fmt.Errorf("parse origin: unknown origin %q", s)
	}
}
