package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"
)

// TargetVersion is the handshake tag a FakeTarget announces.
const TargetVersion = "__metal_serial_version_1"

// FakeTarget plays the target side of the serial protocol over in-memory
// pipes. The host reads and writes the FakeTarget as its stream while a
// script drives the target through a Target.
type FakeTarget struct {
	hostR   *io.PipeReader
	targetW *io.PipeWriter
	targetR *io.PipeReader
	hostW   *io.PipeWriter

	done chan error
}

// Target is the script's view of the stream. Errors are sticky: after the
// first failure every call is a no-op and Err reports it.
type Target struct {
	Width     int
	BigEndian bool

	r   io.Reader
	w   io.Writer
	err error
}

// NewFakeTarget starts script in a goroutine. The stream is closed for the
// host once the script returns. Cleanup closes the pipes and fails the test
// if the script reported an error.
func NewFakeTarget(t *testing.T, width int, bigEndian bool, script func(tg *Target) error) *FakeTarget {
	t.Helper()

	hostR, targetW := io.Pipe()
	targetR, hostW := io.Pipe()
	f := &FakeTarget{
		hostR:   hostR,
		targetW: targetW,
		targetR: targetR,
		hostW:   hostW,
		done:    make(chan error, 1),
	}

	tg := &Target{Width: width, BigEndian: bigEndian, r: targetR, w: targetW}
	go func() {
		err := script(tg)
		if err == nil {
			err = tg.err
		}
		_ = targetW.CloseWithError(io.EOF)
		f.done <- err
	}()

	t.Cleanup(func() {
		_ = f.Close()
		if err := f.Wait(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("fake target script failed: %v", err)
		}
	})
	return f
}

// Read returns bytes the target wrote.
func (f *FakeTarget) Read(p []byte) (int, error) {
	return f.hostR.Read(p)
}

// Write delivers bytes to the target.
func (f *FakeTarget) Write(p []byte) (int, error) {
	return f.hostW.Write(p)
}

// Close tears down both directions.
func (f *FakeTarget) Close() error {
	_ = f.hostW.Close()
	_ = f.targetR.Close()
	return f.hostR.Close()
}

// Wait blocks until the script finished and returns its error.
func (f *FakeTarget) Wait() error {
	err, ok := <-f.done
	if !ok {
		return nil
	}
	close(f.done)
	return err
}

// Err returns the first error the target hit.
func (tg *Target) Err() error {
	return tg.err
}

// EncodeInt lays out v in size bytes of the target's byte order.
func (tg *Target) EncodeInt(v uint64, size int) []byte {
	b := make([]byte, size)
	for i := 0; i < size; i++ {
		b[i] = byte(v >> (8 * i))
	}
	if tg.BigEndian {
		for i, j := 0, size-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
	}
	return b
}

// Probe returns the endianness probe for the target's width and order.
func (tg *Target) Probe() []byte {
	if tg.Width == 1 {
		if tg.BigEndian {
			return []byte{0x6C}
		}
		return []byte{0x43}
	}
	return tg.EncodeInt(0x6C43, tg.Width)
}

func (tg *Target) write(b []byte) {
	if tg.err != nil {
		return
	}
	if _, err := tg.w.Write(b); err != nil {
		tg.err = fmt.Errorf("target write: %w", err)
	}
}

func (tg *Target) read(n int) []byte {
	if tg.err != nil {
		return make([]byte, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(tg.r, b); err != nil {
		tg.err = fmt.Errorf("target read: %w", err)
	}
	return b
}

// Handshake sends the version tag, width, endianness probe, the runtime
// address of the write entry point and the initial location.
func (tg *Target) Handshake(writeAddr, initLocation uint64) {
	tg.SendStr(TargetVersion)
	tg.SendRaw(byte(tg.Width))
	tg.write(tg.Probe())
	tg.SendInt(writeAddr, tg.Width)
	tg.SendInt(initLocation, tg.Width)
}

// SendRaw writes bytes without framing.
func (tg *Target) SendRaw(b ...byte) {
	tg.write(b)
}

// SendByte writes a single byte.
func (tg *Target) SendByte(b byte) {
	tg.write([]byte{b})
}

// SendInt writes v as a size-byte length-prefixed integer.
func (tg *Target) SendInt(v uint64, size int) {
	tg.write(append([]byte{byte(size)}, tg.EncodeInt(v, size)...))
}

// SendLocation writes a code address of the session width.
func (tg *Target) SendLocation(addr uint64) {
	tg.SendInt(addr, tg.Width)
}

// SendStr writes s followed by a zero byte.
func (tg *Target) SendStr(s string) {
	tg.write(append([]byte(s), 0))
}

// SendMemory writes a length-prefixed memory block.
func (tg *Target) SendMemory(b []byte) {
	tg.SendInt(uint64(len(b)), tg.Width)
	tg.write(b)
}

// RecvByte reads one raw byte.
func (tg *Target) RecvByte() byte {
	return tg.read(1)[0]
}

// RecvInt reads a length-prefixed integer. Bytes beyond eight are dropped.
func (tg *Target) RecvInt() uint64 {
	n := int(tg.read(1)[0])
	b := tg.read(n)
	if tg.BigEndian {
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
	}
	var v uint64
	for i := 0; i < n && i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// RecvStr reads a zero-terminated string into a buffer of bufSize bytes,
// draining what does not fit, and acknowledges the stored length.
func (tg *Target) RecvStr(bufSize int) string {
	var buf bytes.Buffer
	for tg.err == nil {
		c := tg.RecvByte()
		if c == 0 {
			break
		}
		if buf.Len() < bufSize-1 {
			buf.WriteByte(c)
		}
	}
	tg.SendInt(uint64(buf.Len()), tg.Width)
	return buf.String()
}

// RecvMemory reads a memory block into a buffer of bufSize bytes, draining
// the excess, and acknowledges the stored length.
func (tg *Target) RecvMemory(bufSize int) []byte {
	n := int(tg.RecvInt())
	b := tg.read(n)
	if n > bufSize {
		b = b[:bufSize]
	}
	tg.SendInt(uint64(len(b)), tg.Width)
	return b
}
