//go:build !linux

package transport

import (
	"fmt"
	"io"
)

// OpenSerial is only implemented on linux.
func OpenSerial(device string, _ int) (io.ReadWriteCloser, error) {
	return nil, fmt.Errorf("%w: serial device %s", ErrUnsupported, device)
}
