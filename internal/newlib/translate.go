package newlib

import (
	"errors"
	"io"
	"syscall"
)

// pair binds a newlib constant to its host equivalent.
type pair struct {
	target uint64
	host   uint64
}

// HostOpenFlags translates newlib open flags. Flags the host lacks are dropped.
func HostOpenFlags(flags uint64) int {
	acc := flags & O_ACCMODE
	if acc > O_RDWR {
		acc = O_RDWR
	}
	host := hostAccessModes[acc]
	for _, p := range openFlags {
		if flags&p.target != 0 {
			host |= int(p.host)
		}
	}
	return host
}

// HostMode translates newlib mode bits, including the file type.
func HostMode(mode uint64) uint32 {
	var host uint64
	for _, p := range fileTypes {
		if mode&S_IFMT == p.target {
			host |= p.host
			break
		}
	}
	for _, p := range modeBits {
		if mode&p.target != 0 {
			host |= p.host
		}
	}
	return uint32(host)
}

// TargetMode translates a host st_mode into newlib mode bits.
func TargetMode(mode uint32) uint64 {
	var target uint64
	for _, p := range fileTypes {
		if uint64(mode)&hostFileTypeMask == p.host {
			target |= p.target
			break
		}
	}
	for _, p := range modeBits {
		if uint64(mode)&p.host != 0 {
			target |= p.target
		}
	}
	return target
}

// TargetErrno translates a host errno. Errnos without a newlib
// equivalent become EBADMSG.
func TargetErrno(errno syscall.Errno) uint64 {
	for _, p := range errnos {
		if uint64(errno) == p.host {
			return p.target
		}
	}
	return EBADMSG
}

// HostWhence translates a newlib seek origin.
func HostWhence(whence uint64) (int, bool) {
	switch whence {
	case SEEK_SET:
		return io.SeekStart, true
	case SEEK_CUR:
		return io.SeekCurrent, true
	case SEEK_END:
		return io.SeekEnd, true
	}
	return 0, false
}

// hostErrno extracts the errno of a host failure. Failures without one are
// not part of the emulated ABI.
func hostErrno(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}
