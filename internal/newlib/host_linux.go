package newlib

import (
	"errors"

	"golang.org/x/sys/unix"
)

type unixHost struct{}

// NewHostOS returns the running host's operating system.
func NewHostOS() HostOS { return unixHost{} }

func fileInfo(st *unix.Stat_t) FileInfo {
	return FileInfo{
		Dev:     uint64(st.Dev),
		Ino:     uint64(st.Ino),
		Mode:    st.Mode,
		Nlink:   uint64(st.Nlink),
		UID:     st.Uid,
		GID:     st.Gid,
		Rdev:    uint64(st.Rdev),
		Size:    st.Size,
		Blksize: int64(st.Blksize),
		Blocks:  st.Blocks,
		Atime:   Timespec{Sec: int64(st.Atim.Sec), Nsec: int64(st.Atim.Nsec)},
		Mtime:   Timespec{Sec: int64(st.Mtim.Sec), Nsec: int64(st.Mtim.Nsec)},
		Ctime:   Timespec{Sec: int64(st.Ctim.Sec), Nsec: int64(st.Ctim.Nsec)},
	}
}

func (unixHost) Fstat(fd int) (FileInfo, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return FileInfo{}, err
	}
	return fileInfo(&st), nil
}

func (unixHost) Stat(path string) (FileInfo, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return FileInfo{}, err
	}
	return fileInfo(&st), nil
}

func (unixHost) Isatty(fd int) (bool, error) {
	_, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.ENOTTY), errors.Is(err, unix.EINVAL):
		return false, nil
	default:
		return false, err
	}
}

func (unixHost) Link(existing, name string) error { return unix.Link(existing, name) }

func (unixHost) Symlink(existing, name string) error { return unix.Symlink(existing, name) }

func (unixHost) Unlink(path string) error { return unix.Unlink(path) }

func (unixHost) Open(path string, flags int, mode uint32) (int, error) {
	return unix.Open(path, flags, mode)
}

func (unixHost) Close(fd int) error { return unix.Close(fd) }

func (unixHost) Read(fd int, n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := unix.Read(fd, buf)
	if err != nil {
		return nil, err
	}
	return buf[:got], nil
}

func (unixHost) Write(fd int, b []byte) (int, error) { return unix.Write(fd, b) }

func (unixHost) Lseek(fd int, offset int64, whence int) (int64, error) {
	return unix.Seek(fd, offset, whence)
}
