//go:build !linux

package newlib

import "syscall"

var hostAccessModes = [3]int{
	O_RDONLY: syscall.O_RDONLY,
	O_WRONLY: syscall.O_WRONLY,
	O_RDWR:   syscall.O_RDWR,
}

var openFlags = []pair{
	{O_APPEND, syscall.O_APPEND},
	{O_CREAT, syscall.O_CREAT},
	{O_TRUNC, syscall.O_TRUNC},
	{O_EXCL, syscall.O_EXCL},
	{O_SYNC, syscall.O_SYNC},
	{O_NONBLOCK, syscall.O_NONBLOCK},
	{O_NOCTTY, syscall.O_NOCTTY},
	{O_CLOEXEC, syscall.O_CLOEXEC},
}

// POSIX fixes the file type and permission encodings.
const hostFileTypeMask = 0o170000

var fileTypes = []pair{
	{S_IFDIR, 0o040000},
	{S_IFCHR, 0o020000},
	{S_IFBLK, 0o060000},
	{S_IFREG, 0o100000},
	{S_IFLNK, 0o120000},
	{S_IFSOCK, 0o140000},
	{S_IFIFO, 0o010000},
}

var modeBits = []pair{
	{S_ISUID, 0o004000},
	{S_ISGID, 0o002000},
	{S_ISVTX, 0o001000},
	{S_IRUSR, 0o000400},
	{S_IWUSR, 0o000200},
	{S_IXUSR, 0o000100},
	{S_IRGRP, 0o000040},
	{S_IWGRP, 0o000020},
	{S_IXGRP, 0o000010},
	{S_IROTH, 0o000004},
	{S_IWOTH, 0o000002},
	{S_IXOTH, 0o000001},
}

var errnos = []pair{
	{EPERM, uint64(syscall.EPERM)},
	{ENOENT, uint64(syscall.ENOENT)},
	{ESRCH, uint64(syscall.ESRCH)},
	{EINTR, uint64(syscall.EINTR)},
	{EIO, uint64(syscall.EIO)},
	{ENXIO, uint64(syscall.ENXIO)},
	{E2BIG, uint64(syscall.E2BIG)},
	{ENOEXEC, uint64(syscall.ENOEXEC)},
	{EBADF, uint64(syscall.EBADF)},
	{ECHILD, uint64(syscall.ECHILD)},
	{EAGAIN, uint64(syscall.EAGAIN)},
	{ENOMEM, uint64(syscall.ENOMEM)},
	{EACCES, uint64(syscall.EACCES)},
	{EFAULT, uint64(syscall.EFAULT)},
	{EBUSY, uint64(syscall.EBUSY)},
	{EEXIST, uint64(syscall.EEXIST)},
	{EXDEV, uint64(syscall.EXDEV)},
	{ENODEV, uint64(syscall.ENODEV)},
	{ENOTDIR, uint64(syscall.ENOTDIR)},
	{EISDIR, uint64(syscall.EISDIR)},
	{EINVAL, uint64(syscall.EINVAL)},
	{ENFILE, uint64(syscall.ENFILE)},
	{EMFILE, uint64(syscall.EMFILE)},
	{ENOTTY, uint64(syscall.ENOTTY)},
	{EFBIG, uint64(syscall.EFBIG)},
	{ENOSPC, uint64(syscall.ENOSPC)},
	{ESPIPE, uint64(syscall.ESPIPE)},
	{EROFS, uint64(syscall.EROFS)},
	{EMLINK, uint64(syscall.EMLINK)},
	{EPIPE, uint64(syscall.EPIPE)},
	{EDOM, uint64(syscall.EDOM)},
	{ERANGE, uint64(syscall.ERANGE)},
	{ENOSYS, uint64(syscall.ENOSYS)},
	{ENOTEMPTY, uint64(syscall.ENOTEMPTY)},
	{ENAMETOOLONG, uint64(syscall.ENAMETOOLONG)},
	{ELOOP, uint64(syscall.ELOOP)},
}
