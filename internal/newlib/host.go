package newlib

// Timespec is a host timestamp.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// FileInfo is the subset of a host stat result the target receives.
type FileInfo struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint64
	UID     uint32
	GID     uint32
	Rdev    uint64
	Size    int64
	Blksize int64
	Blocks  int64
	Atime   Timespec
	Mtime   Timespec
	Ctime   Timespec
}

// HostOS is the host operating system surface the syscall hook emulates
// the target's calls on. Failures are reported as syscall.Errno values.
type HostOS interface {
	Fstat(fd int) (FileInfo, error)
	Stat(path string) (FileInfo, error)
	Isatty(fd int) (bool, error)
	Link(existing, name string) error
	Symlink(existing, name string) error
	Unlink(path string) error
	Open(path string, flags int, mode uint32) (int, error)
	Close(fd int) error
	Read(fd int, n int) ([]byte, error)
	Write(fd int, b []byte) (int, error)
	Lseek(fd int, offset int64, whence int) (int64, error)
}
