// Package transport opens the byte streams a session runs over: a child
// process's pipes or pty, a serial device, a TCP bridge or recorded files.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/metal-test/metal/internal/retry"
)

// ErrUnsupported is returned by openers not available on this platform.
var ErrUnsupported = errors.New("transport: not supported on this platform")

// DialTCP connects to a serial-over-TCP bridge. Refused connections are
// retried under retry.Connect since emulators open their port late.
func DialTCP(ctx context.Context, address string) (io.ReadWriteCloser, error) {
	return dialTCP(ctx, address, retry.Connect)
}

func dialTCP(ctx context.Context, address string, policy retry.Policy) (io.ReadWriteCloser, error) {
	var (
		d    net.Dialer
		conn net.Conn
	)
	err := retry.Do(ctx, policy, func() error {
		var err error
		conn, err = d.DialContext(ctx, "tcp", address)
		return err
	}, func(err error) bool {
		return errors.Is(err, syscall.ECONNREFUSED)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return conn, nil
}

// files reads a recorded target stream and writes the host's replies to a
// separate file.
type files struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (f *files) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *files) Write(p []byte) (int, error) { return f.out.Write(p) }

func (f *files) Close() error {
	return errors.Join(f.in.Close(), f.out.Close())
}

// OpenFiles opens input for reading and creates output for the replies.
// An empty output discards them; "-" selects stdin or stdout.
func OpenFiles(input, output string) (io.ReadWriteCloser, error) {
	var in io.ReadCloser = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		in = f
	}

	var out io.WriteCloser
	switch output {
	case "":
		out = nopWriteCloser{io.Discard}
	case "-":
		out = nopWriteCloser{os.Stdout}
	default:
		f, err := os.Create(output)
		if err != nil {
			_ = in.Close()
			return nil, fmt.Errorf("failed to create output: %w", err)
		}
		out = f
	}
	return &files{in: in, out: out}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
