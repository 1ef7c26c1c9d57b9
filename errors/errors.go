package errors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode    Phase = "decode"    // byte-level decoding
	PhaseTranslate Phase = "translate" // section translation
	PhaseEnviron   Phase = "environ"   // backend environment callbacks
)

// Kind categorizes the error
type Kind string

const (
	// KindMalformed is a low-level encoding failure: bad length prefix,
	// truncated section, invalid integer encoding.
	KindMalformed Kind = "malformed"
	// KindStructural is a violation of index-space or section-ordering
	// rules detected while translating.
	KindStructural Kind = "structural"
	// KindUnsupported marks a known feature boundary (module linking,
	// exception handling). The input may be valid.
	KindUnsupported Kind = "unsupported"
	// KindBackend is a failure reported by a backend environment that says
	// nothing about the module itself.
	KindBackend Kind = "backend"
	// KindInvariant is a broken contract between decoder and translator.
	// It is only ever raised through panic.
	KindInvariant Kind = "invariant"
)

// noPosition marks Offset and Index as unset.
const noPosition = -1

// Error is the structured error type returned by the translation pipeline.
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	Section string
	Detail  string
	// Offset is the absolute byte offset in the module buffer, or -1.
	Offset int
	// Index is the entry or index-space position involved, or -1.
	Index int64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Section != "" {
		b.WriteString(" in ")
		b.WriteString(e.Section)
		b.WriteString(" section")
	}
	if e.Offset >= 0 {
		b.WriteString(" at offset ")
		b.WriteString(strconv.Itoa(e.Offset))
	}
	if e.Index >= 0 {
		b.WriteString(" (index ")
		b.WriteString(strconv.FormatInt(e.Index, 10))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// HasOffset reports whether the error points at a byte in the module.
func (e *Error) HasOffset() bool {
	return e.Offset >= 0
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: noPosition,
			Index:  noPosition,
		},
	}
}

// Section sets the section the error belongs to
func (b *Builder) Section(name string) *Builder {
	b.err.Section = name
	return b
}

// Offset sets the absolute byte offset
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	return b
}

// Index sets the offending index
func (b *Builder) Index(idx uint32) *Builder {
	b.err.Index = int64(idx)
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Malformed creates a decode error at the given byte offset
func Malformed(section string, offset int, cause error) *Error {
	return New(PhaseDecode, KindMalformed).Section(section).Offset(offset).Cause(cause).Build()
}

// Structural creates a structural translation error
func Structural(section string, detail string, args ...any) *Error {
	return New(PhaseTranslate, KindStructural).Section(section).Detail(detail, args...).Build()
}

// IndexOutOfBounds creates a structural error for an index past the end
// of its index space
func IndexOutOfBounds(section, space string, index uint32, length int) *Error {
	return New(PhaseTranslate, KindStructural).
		Section(section).
		Index(index).
		Detail("%s index %d out of bounds (length %d)", space, index, length).
		Build()
}

// Unsupported creates an unsupported feature error
func Unsupported(section, feature string) *Error {
	return New(PhaseTranslate, KindUnsupported).
		Section(section).
		Detail("%s is not supported", feature).
		Build()
}

// Invariant creates an internal invariant violation. Callers panic with it.
func Invariant(detail string, args ...any) *Error {
	return New(PhaseTranslate, KindInvariant).Detail(detail, args...).Build()
}

// Environ wraps an error returned by a backend environment callback
func Environ(section string, cause error) *Error {
	var e *Error
	if errors.As(cause, &e) {
		return e
	}
	return New(PhaseEnviron, KindBackend).Section(section).Cause(cause).Build()
}

// kindOf returns the Kind of the first *Error in err's chain.
func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsMalformed reports whether err is a low-level decode error
func IsMalformed(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindMalformed
}

// IsStructural reports whether err is a structural translation error
func IsStructural(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindStructural
}

// IsUnsupported reports whether err marks an unsupported feature
func IsUnsupported(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindUnsupported
}

// IsBackend reports whether err is a plain backend environment failure
func IsBackend(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindBackend
}

// IsInvariant reports whether err is an internal invariant violation
func IsInvariant(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindInvariant
}
