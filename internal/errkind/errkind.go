// Package errkind defines the failure taxonomy shared by the container codec,
// the chat stores and the payload resolver.
//
// Every failure that crosses a package boundary wraps exactly one of the
// sentinel errors below, so callers can branch with errors.Is while the
// underlying cause stays available through the same chain.
package errkind

import "errors"

// Kind is the stable, wire-visible name of a failure class.
type Kind string

const (
	KindIO            Kind = "io"
	KindCorrupt       Kind = "corrupt"
	KindDecryptFailed Kind = "decrypt_failed"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindParse         Kind = "parse"
	KindDecode        Kind = "decode"
	KindInvalid       Kind = "invalid"
	KindInternal      Kind = "internal"
)

var (
	ErrIO            = errors.New("io failure")
	ErrCorrupt       = errors.New("corrupt container")
	ErrDecryptFailed = errors.New("decrypt failed")
	ErrConflict      = errors.New("identity conflict")
	ErrNotFound      = errors.New("not found")
	ErrParse         = errors.New("parse failure")
	ErrDecode        = errors.New("decode failure")
	ErrInvalid       = errors.New("invalid argument")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrConflict, KindConflict},
	{ErrNotFound, KindNotFound},
	{ErrParse, KindParse},
	{ErrDecode, KindDecode},
	{ErrDecryptFailed, KindDecryptFailed},
	{ErrCorrupt, KindCorrupt},
	{ErrInvalid, KindInvalid},
	{ErrIO, KindIO},
}

// Of classifies err. Errors that wrap none of the sentinels are internal.
func Of(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
