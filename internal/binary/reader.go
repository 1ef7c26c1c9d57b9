package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Errors reported by Reader. They are always wrapped in a *ParseError
// carrying the absolute offset at which they occurred.
var (
	ErrOverflow      = errors.New("leb128: overflow")
	ErrInvalidUTF8   = errors.New("invalid UTF-8 in name")
	ErrUnexpectedEOF = io.ErrUnexpectedEOF
)

// Reader is a cursor over a byte slice that remembers where the slice
// starts in the original module buffer, so every position it reports is an
// absolute offset.
//
// Sub-readers and byte reads never copy: returned slices alias the
// underlying buffer.
type Reader struct {
	data []byte
	pos  int
	base int
}

// NewReader creates a Reader over data, which starts at absolute offset base.
func NewReader(data []byte, base int) *Reader {
	return &Reader{data: data, base: base}
}

// Position returns the absolute offset of the next unread byte.
func (r *Reader) Position() int {
	return r.base + r.pos
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// EOF reports whether all bytes have been consumed.
func (r *Reader) EOF() bool {
	return r.pos >= len(r.data)
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.wrapError(ErrUnexpectedEOF)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes returns the next n bytes as a sub-slice of the buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, r.wrapError(ErrUnexpectedEOF)
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

// Sub consumes the next n bytes and returns a Reader over them that keeps
// reporting absolute offsets.
func (r *Reader) Sub(n int) (*Reader, error) {
	start := r.Position()
	b, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return NewReader(b, start), nil
}

// BytesFrom returns the bytes between absolute offset pos and the current
// position. pos must have been obtained from Position on this reader.
func (r *Reader) BytesFrom(pos int) []byte {
	start := pos - r.base
	if start < 0 || start > r.pos {
		return nil
	}
	return r.data[start:r.pos:r.pos]
}

// ReadU32 reads an unsigned LEB128 encoded uint32.
func (r *Reader) ReadU32() (uint32, error) {
	start := r.pos
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift == 28 && b&0x70 != 0 {
			return 0, r.wrapErrorAt(start, ErrOverflow)
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, r.wrapErrorAt(start, ErrOverflow)
		}
	}
}

// ReadU64 reads an unsigned LEB128 encoded uint64.
func (r *Reader) ReadU64() (uint64, error) {
	start := r.pos
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift == 63 && b&0x7e != 0 {
			return 0, r.wrapErrorAt(start, ErrOverflow)
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, r.wrapErrorAt(start, ErrOverflow)
		}
	}
}

// ReadS32 reads a signed LEB128 encoded int32.
func (r *Reader) ReadS32() (int32, error) {
	v, err := r.readSigned(32)
	return int32(v), err
}

// ReadS64 reads a signed LEB128 encoded int64.
func (r *Reader) ReadS64() (int64, error) {
	return r.readSigned(64)
}

func (r *Reader) readSigned(bits uint) (int64, error) {
	start := r.pos
	maxBytes := (bits + 6) / 7
	var result int64
	var shift uint
	var b byte
	var err error
	for i := uint(0); ; i++ {
		if i == maxBytes {
			return 0, r.wrapErrorAt(start, ErrOverflow)
		}
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		// The last byte of an int64 holds only the sign bit; the unused
		// bits must repeat it.
		if bits == 64 && i == maxBytes-1 && b != 0x00 && b != 0x7f {
			return 0, r.wrapErrorAt(start, ErrOverflow)
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	// Sign extend
	if shift < 64 && b&0x40 != 0 {
		result |= ^int64(0) << shift
	}
	if bits < 64 {
		lo, hi := -(int64(1) << (bits - 1)), int64(1)<<(bits-1)-1
		if result < lo || result > hi {
			return 0, r.wrapErrorAt(start, ErrOverflow)
		}
	}
	return result, nil
}

// ReadName reads a UTF-8 encoded name (length-prefixed byte sequence).
func (r *Reader) ReadName() (string, error) {
	length, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	start := r.pos
	data, err := r.ReadBytes(int(length))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", r.wrapErrorAt(start, ErrInvalidUTF8)
	}
	return string(data), nil
}

// ReadU32LE reads a little-endian uint32 (fixed 4 bytes).
func (r *Reader) ReadU32LE() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadRemaining returns all unread bytes.
func (r *Reader) ReadRemaining() []byte {
	b, _ := r.ReadBytes(r.Len())
	return b
}

func (r *Reader) wrapError(err error) error {
	return r.wrapErrorAt(r.pos, err)
}

func (r *Reader) wrapErrorAt(pos int, err error) error {
	return &ParseError{Position: r.base + pos, Err: err}
}

// ParseError represents an error during binary parsing with position information.
type ParseError struct {
	Err      error
	Position int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("wasm: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Errorf creates a ParseError at the given absolute position.
func Errorf(pos int, format string, args ...any) error {
	return &ParseError{Position: pos, Err: fmt.Errorf(format, args...)}
}
