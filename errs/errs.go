// Package errs implements the error taxonomy from the ParXive design: every
// error that crosses an operation boundary (create, verify, audit, repair,
// quickcheck, paritycheck) is tagged with one of a fixed set of Kinds, so
// that a CLI binary can map it to a stable exit code and a JSON consumer can
// switch on a stable string. It wraps github.com/NebulousLabs/errors for
// sentinel composition, the same way the teacher's modules/errors.go wraps
// it for ErrHostFault.
package errs

import (
	"fmt"

	nlerrors "github.com/NebulousLabs/errors"

	"github.com/rTiGd2/ParXive/build"
)

// Kind is one of the error taxonomy members from spec.md §7.
type Kind string

// The error taxonomy. Every Error constructed by this package carries
// exactly one of these.
const (
	KindConfig   Kind = "ConfigError"
	KindInput    Kind = "InputError"
	KindData     Kind = "DataError"
	KindVolume   Kind = "VolumeError"
	KindCodec    Kind = "CodecError"
	KindIO       Kind = "IoError"
	KindLock     Kind = "LockError"
	KindInternal Kind = "InternalError"
)

// Error is a taxonomy-tagged error. Variant further distinguishes a few
// named sub-cases the spec calls out explicitly (CodecError::Insufficient,
// VolumeError::TrailerCorrupt, VolumeError::Truncated,
// AuditResult::Unrecoverable); Variant is empty when no sub-case applies.
type Error struct {
	Kind    Kind
	Variant string
	Op      string
	Path    string
	Err     error
}

// New constructs a taxonomy error wrapping err under kind for operation op.
// If err is nil, New still returns a non-nil *Error (used for sentinel-style
// construction, e.g. errs.New(errs.KindCodec, "decode", nil).WithVariant("Insufficient")).
//
// KindInternal always indicates a broken invariant rather than bad input or
// environment failure, so every KindInternal construction also raises
// build.Critical: in dev/testing builds that panics immediately, surfacing
// the violation at the point it happened instead of only at its exit code.
func New(kind Kind, op string, err error) *Error {
	if kind == KindInternal {
		if err != nil {
			build.Critical(op, err)
		} else {
			build.Critical(op)
		}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithVariant attaches a named sub-case to the error.
func (e *Error) WithVariant(variant string) *Error {
	e.Variant = variant
	return e
}

// WithPath attaches the filesystem path the error pertains to.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Variant != "" {
		msg += "::" + e.Variant
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is a taxonomy Error of the given kind, optionally
// also checking the variant when variant is non-empty.
func Is(err error, kind Kind, variant string) bool {
	te, ok := err.(*Error)
	if !ok {
		return false
	}
	if te.Kind != kind {
		return false
	}
	if variant != "" && te.Variant != variant {
		return false
	}
	return true
}

// Compose combines multiple errors into one, stripping nils. Preserving
// typed taxonomy information isn't always possible: a composed error is
// reported as KindInternal unless every member shares the same Kind, in
// which case that Kind is preserved.
func Compose(errors ...error) error {
	var nonNil []error
	for _, err := range errors {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	if len(nonNil) == 1 {
		return nonNil[0]
	}

	kind := Kind("")
	sameKind := true
	for _, err := range nonNil {
		te, ok := err.(*Error)
		if !ok {
			sameKind = false
			break
		}
		if kind == "" {
			kind = te.Kind
		} else if kind != te.Kind {
			sameKind = false
			break
		}
	}
	composed := nlerrors.Compose(nonNil...)
	if sameKind && kind != "" {
		return New(kind, "", composed)
	}
	return New(KindInternal, "Compose", composed)
}

// Exit code constants per spec.md §6. These are the only values a ParXive
// binary may return from main(); a new failure mode must be folded into one
// of these, never given a fresh code.
const (
	ExitOK               = 0
	ExitUsage            = 64
	ExitDataInvalid      = 65
	ExitInputNotFound    = 66
	ExitFeatureUnavail   = 69
	ExitInternal         = 70
	ExitGenericOS        = 71
	ExitCannotCreateOut  = 73
	ExitIO               = 74
	ExitPermissionDenied = 77
	ExitConfig           = 78
)

// ExitCode maps a taxonomy error to the stable exit code from spec.md §6.
// Errors that aren't *Error (or are nil) map to ExitOK/ExitInternal as
// appropriate so every call site has a safe default.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	te, ok := err.(*Error)
	if !ok {
		return ExitInternal
	}
	switch te.Kind {
	case KindConfig:
		return ExitConfig
	case KindInput:
		return ExitInputNotFound
	case KindData:
		return ExitDataInvalid
	case KindVolume:
		if te.Variant == "TrailerCorrupt" || te.Variant == "Truncated" {
			return ExitDataInvalid
		}
		return ExitIO
	case KindCodec:
		return ExitDataInvalid
	case KindIO:
		if te.Variant == "PermissionDenied" {
			return ExitPermissionDenied
		}
		if te.Variant == "CannotCreateOutput" {
			return ExitCannotCreateOut
		}
		return ExitIO
	case KindLock:
		return ExitGenericOS
	case KindInternal:
		if te.Variant == "FeatureUnavailable" {
			return ExitFeatureUnavail
		}
		return ExitInternal
	default:
		return ExitInternal
	}
}

// JSONRecord is the structured representation emitted under --json, per
// spec.md §6: {code, kind, message, path?, op?}.
type JSONRecord struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Op      string `json:"op,omitempty"`
}

// ToJSONRecord converts any error into the structured record, defaulting to
// KindInternal/exitInternal for errors that were never tagged.
func ToJSONRecord(err error) JSONRecord {
	te, ok := err.(*Error)
	if !ok {
		return JSONRecord{
			Code:    ExitCode(err),
			Kind:    string(KindInternal),
			Message: err.Error(),
		}
	}
	kind := string(te.Kind)
	if te.Variant != "" {
		kind = fmt.Sprintf("%s::%s", te.Kind, te.Variant)
	}
	return JSONRecord{
		Code:    ExitCode(err),
		Kind:    kind,
		Message: te.Error(),
		Path:    te.Path,
		Op:      te.Op,
	}
}
