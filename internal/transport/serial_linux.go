//go:build linux

package transport

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

var baudRates = map[int]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	2000000: unix.B2000000,
}

// OpenSerial opens a tty device in raw mode at the given baud rate.
func OpenSerial(device string, baud int) (io.ReadWriteCloser, error) {
	speed, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("transport: unsupported baud rate %d", baud)
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}
	f := os.NewFile(uintptr(fd), device)

	if _, err := term.MakeRaw(fd); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to set %s raw mode: %w", device, err)
	}

	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read %s attributes: %w", device, err)
	}
	tio.Cflag &^= unix.CBAUD
	tio.Cflag |= speed | unix.CLOCAL | unix.CREAD
	tio.Ispeed = speed
	tio.Ospeed = speed
	// Block until at least one byte arrived.
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to configure %s: %w", device, err)
	}
	return f, nil
}
