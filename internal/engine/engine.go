// Package engine implements the host side of the metal-serial wire
// protocol: the session handshake and the primitive encodings hooks use to
// talk to the target.
package engine

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog"

	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/symbols"
)

var (
	// ErrVersionMismatch is returned when the target announces another protocol version.
	ErrVersionMismatch = errors.New("engine: protocol version mismatch")
	// ErrInvalidWidth is returned for an integer width other than 1, 2, 4 or 8.
	ErrInvalidWidth = errors.New("engine: invalid integer width")
	// ErrInvalidEndianness is returned when the endianness probe matches neither order.
	ErrInvalidEndianness = errors.New("engine: invalid endianness checker")
	// ErrLength is returned for a length prefix outside 1..15.
	ErrLength = errors.New("engine: invalid integer length")
	// ErrIntOverflow is returned when a received integer does not fit 64 bits.
	ErrIntOverflow = errors.New("engine: integer exceeds 64 bits")
	// ErrLocation is returned when a reported address lies below the base offset.
	ErrLocation = errors.New("engine: value is not a code location")
	// ErrUnknownLocation is returned when no marker sits at a reported location.
	ErrUnknownLocation = errors.New("engine: no marker at location")
	// ErrUnknownType is returned by ReadTyped for an unknown type tag.
	ErrUnknownType = errors.New("engine: unknown value type")
)

// MaxMemory is the largest memory block a target may announce.
const MaxMemory = math.MaxInt32

// Resolver maps link-time addresses to markers.
type Resolver interface {
	WriteAddress() uint64
	FindMarker(addr uint64) (*symbols.Marker, bool)
}

// Engine owns the stream for the duration of a session. It is not safe
// for concurrent use.
type Engine struct {
	resolver Resolver
	logger   zerolog.Logger

	r      *bufio.Reader
	w      *bufio.Writer
	offset int64

	width      int
	order      binary.ByteOrder
	base       int64
	initMarker *symbols.Marker
}

// New performs the handshake on r and w and returns a ready engine.
func New(resolver Resolver, r io.Reader, w io.Writer, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		resolver: resolver,
		logger:   logger.With().Str("component", "engine").Logger(),
		r:        bufio.NewReader(r),
		w:        bufio.NewWriter(w),
		order:    binary.LittleEndian,
	}
	if err := e.handshake(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) handshake() error {
	version, err := e.ReadString()
	if err != nil {
		return err
	}
	if version != constants.VersionString {
		return fmt.Errorf("%w: got %q, want %q", ErrVersionMismatch, version, constants.VersionString)
	}

	w, err := e.ReadByte()
	if err != nil {
		return err
	}
	switch w {
	case 1, 2, 4, 8:
		e.width = int(w)
	default:
		return fmt.Errorf("%w: %d at offset %d", ErrInvalidWidth, w, e.offset-1)
	}

	checker, err := e.read(e.width)
	if err != nil {
		return err
	}
	switch {
	case bytes.Equal(checker, probe(e.width, binary.LittleEndian)):
		e.order = binary.LittleEndian
	case bytes.Equal(checker, probe(e.width, binary.BigEndian)):
		e.order = binary.BigEndian
	default:
		return fmt.Errorf("%w: % x", ErrInvalidEndianness, checker)
	}

	writeAddr, err := e.ReadInt()
	if err != nil {
		return err
	}
	e.base = int64(writeAddr - e.resolver.WriteAddress())

	if e.initMarker, err = e.ReadMarker(); err != nil {
		return err
	}

	e.logger.Debug().
		Int("width", e.width).
		Str("endianness", e.order.String()).
		Int64("base_offset", e.base).
		Str("init_marker", e.initMarker.String()).
		Msg("Handshake complete")
	return nil
}

// Width is the target's integer width in bytes.
func (e *Engine) Width() int { return e.width }

// Order is the session byte order.
func (e *Engine) Order() binary.ByteOrder { return e.order }

// BaseOffset is the target load address minus the link-time address.
func (e *Engine) BaseOffset() int64 { return e.base }

// InitMarker is the marker the target reported during the handshake.
func (e *Engine) InitMarker() *symbols.Marker { return e.initMarker }

// Offset is the number of bytes read from the target so far.
func (e *Engine) Offset() int64 { return e.offset }

func (e *Engine) read(n int) ([]byte, error) {
	b := make([]byte, n)
	got, err := io.ReadFull(e.r, b)
	e.offset += int64(got)
	if err != nil {
		return nil, fmt.Errorf("engine: read %d bytes at offset %d: %w", n, e.offset, err)
	}
	return b, nil
}

func (e *Engine) write(b ...[]byte) error {
	for _, p := range b {
		if _, err := e.w.Write(p); err != nil {
			return fmt.Errorf("engine: write: %w", err)
		}
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("engine: flush: %w", err)
	}
	return nil
}

// ReadByte reads one raw byte.
func (e *Engine) ReadByte() (byte, error) {
	b, err := e.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteByte writes one raw byte.
func (e *Engine) WriteByte(b byte) error {
	return e.write([]byte{b})
}

// readIntBytes reads a length prefix and the value bytes.
func (e *Engine) readIntBytes() ([]byte, error) {
	n, err := e.ReadByte()
	if err != nil {
		return nil, err
	}
	if n == 0 || n > maxIntBytes {
		return nil, fmt.Errorf("%w: %d at offset %d", ErrLength, n, e.offset-1)
	}
	return e.read(int(n))
}

// ReadInt reads a length-prefixed unsigned integer.
func (e *Engine) ReadInt() (uint64, error) {
	b, err := e.readIntBytes()
	if err != nil {
		return 0, err
	}
	v, err := DecodeInt(b, e.order)
	if err != nil {
		return 0, fmt.Errorf("%w at offset %d", err, e.offset)
	}
	return v, nil
}

// ReadSigned reads a length-prefixed integer as two's complement of its
// transmitted size.
func (e *Engine) ReadSigned() (int64, error) {
	b, err := e.readIntBytes()
	if err != nil {
		return 0, err
	}
	v, err := DecodeInt(b, e.order)
	if err != nil {
		return 0, fmt.Errorf("%w at offset %d", err, e.offset)
	}
	return signExtend(v, len(b)), nil
}

// WriteInt writes n using the minimal byte count.
func (e *Engine) WriteInt(n uint64) error {
	return e.write(EncodeInt(n, e.order))
}

// WriteSigned writes n. Negative values are sent as two's complement of
// the session width.
func (e *Engine) WriteSigned(n int64) error {
	if n >= 0 {
		return e.WriteInt(uint64(n))
	}
	b := make([]byte, e.width)
	putUint(b, uint64(n), e.order)
	return e.write([]byte{byte(e.width)}, b)
}

// ReadString reads a zero-terminated string.
func (e *Engine) ReadString() (string, error) {
	s, err := e.r.ReadBytes(0)
	e.offset += int64(len(s))
	if err != nil {
		return "", fmt.Errorf("engine: read string at offset %d: %w", e.offset, err)
	}
	return string(s[:len(s)-1]), nil
}

// WriteString sends s with a trailing zero byte and returns the length
// the target acknowledged.
func (e *Engine) WriteString(s string) (uint64, error) {
	if err := e.write([]byte(s), []byte{0}); err != nil {
		return 0, err
	}
	return e.ReadInt()
}

// ReadMemory reads a length-prefixed memory block.
func (e *Engine) ReadMemory() ([]byte, error) {
	n, err := e.ReadInt()
	if err != nil {
		return nil, err
	}
	if n > MaxMemory {
		return nil, fmt.Errorf("%w: memory block of %d bytes at offset %d", ErrLength, n, e.offset)
	}
	return e.read(int(n))
}

// WriteMemory sends a length-prefixed memory block and returns the length
// the target acknowledged.
func (e *Engine) WriteMemory(b []byte) (uint64, error) {
	if err := e.write(EncodeInt(uint64(len(b)), e.order), b); err != nil {
		return 0, err
	}
	return e.ReadInt()
}

// ReadPointer reads a target address and relocates it to its link-time value.
func (e *Engine) ReadPointer() (uint64, error) {
	p, err := e.ReadInt()
	if err != nil {
		return 0, err
	}
	addr := int64(p) - e.base
	if addr < 0 {
		return 0, fmt.Errorf("%w: 0x%x at offset %d", ErrLocation, p, e.offset)
	}
	return uint64(addr), nil
}

// ReadLocation reads a reported code location.
func (e *Engine) ReadLocation() (uint64, error) {
	return e.ReadPointer()
}

// FindMarker resolves a link-time address to its marker.
func (e *Engine) FindMarker(addr uint64) (*symbols.Marker, error) {
	m, ok := e.resolver.FindMarker(addr)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnknownLocation, addr)
	}
	return m, nil
}

// ReadMarker reads a location and resolves it.
func (e *Engine) ReadMarker() (*symbols.Marker, error) {
	loc, err := e.ReadLocation()
	if err != nil {
		return nil, err
	}
	return e.FindMarker(loc)
}

// ReadTyped reads a type tag followed by the value it names: 'b' byte,
// 'i' and 'p' integer, 's' string, 'x' memory, 'l' location.
func (e *Engine) ReadTyped() (any, error) {
	tag, err := e.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 'b':
		return e.ReadByte()
	case 'i', 'p':
		return e.ReadInt()
	case 's':
		return e.ReadString()
	case 'x':
		return e.ReadMemory()
	case 'l':
		return e.ReadLocation()
	}
	return nil, fmt.Errorf("%w: %q at offset %d", ErrUnknownType, tag, e.offset-1)
}
