package newlib

import "golang.org/x/sys/unix"

var hostAccessModes = [3]int{
	O_RDONLY: unix.O_RDONLY,
	O_WRONLY: unix.O_WRONLY,
	O_RDWR:   unix.O_RDWR,
}

var openFlags = []pair{
	{O_APPEND, unix.O_APPEND},
	{O_CREAT, unix.O_CREAT},
	{O_TRUNC, unix.O_TRUNC},
	{O_EXCL, unix.O_EXCL},
	{O_SYNC, unix.O_SYNC},
	{O_NONBLOCK, unix.O_NONBLOCK},
	{O_NOCTTY, unix.O_NOCTTY},
	{O_CLOEXEC, unix.O_CLOEXEC},
	{O_DIRECT, unix.O_DIRECT},
	{O_NOFOLLOW, unix.O_NOFOLLOW},
	{O_DIRECTORY, unix.O_DIRECTORY},
	{O_TMPFILE, unix.O_TMPFILE},
	{O_NOATIME, unix.O_NOATIME},
	{O_PATH, unix.O_PATH},
}

const hostFileTypeMask = unix.S_IFMT

var fileTypes = []pair{
	{S_IFDIR, unix.S_IFDIR},
	{S_IFCHR, unix.S_IFCHR},
	{S_IFBLK, unix.S_IFBLK},
	{S_IFREG, unix.S_IFREG},
	{S_IFLNK, unix.S_IFLNK},
	{S_IFSOCK, unix.S_IFSOCK},
	{S_IFIFO, unix.S_IFIFO},
}

var modeBits = []pair{
	{S_ISUID, unix.S_ISUID},
	{S_ISGID, unix.S_ISGID},
	{S_ISVTX, unix.S_ISVTX},
	{S_IRUSR, unix.S_IRUSR},
	{S_IWUSR, unix.S_IWUSR},
	{S_IXUSR, unix.S_IXUSR},
	{S_IRGRP, unix.S_IRGRP},
	{S_IWGRP, unix.S_IWGRP},
	{S_IXGRP, unix.S_IXGRP},
	{S_IROTH, unix.S_IROTH},
	{S_IWOTH, unix.S_IWOTH},
	{S_IXOTH, unix.S_IXOTH},
}

// errnos lists host errnos with a newlib equivalent. Earlier entries win
// where the host aliases two names to one number.
var errnos = []pair{
	{EPERM, uint64(unix.EPERM)},
	{ENOENT, uint64(unix.ENOENT)},
	{ESRCH, uint64(unix.ESRCH)},
	{EINTR, uint64(unix.EINTR)},
	{EIO, uint64(unix.EIO)},
	{ENXIO, uint64(unix.ENXIO)},
	{E2BIG, uint64(unix.E2BIG)},
	{ENOEXEC, uint64(unix.ENOEXEC)},
	{EBADF, uint64(unix.EBADF)},
	{ECHILD, uint64(unix.ECHILD)},
	{EAGAIN, uint64(unix.EAGAIN)},
	{ENOMEM, uint64(unix.ENOMEM)},
	{EACCES, uint64(unix.EACCES)},
	{EFAULT, uint64(unix.EFAULT)},
	{ENOTBLK, uint64(unix.ENOTBLK)},
	{EBUSY, uint64(unix.EBUSY)},
	{EEXIST, uint64(unix.EEXIST)},
	{EXDEV, uint64(unix.EXDEV)},
	{ENODEV, uint64(unix.ENODEV)},
	{ENOTDIR, uint64(unix.ENOTDIR)},
	{EISDIR, uint64(unix.EISDIR)},
	{EINVAL, uint64(unix.EINVAL)},
	{ENFILE, uint64(unix.ENFILE)},
	{EMFILE, uint64(unix.EMFILE)},
	{ENOTTY, uint64(unix.ENOTTY)},
	{ETXTBSY, uint64(unix.ETXTBSY)},
	{EFBIG, uint64(unix.EFBIG)},
	{ENOSPC, uint64(unix.ENOSPC)},
	{ESPIPE, uint64(unix.ESPIPE)},
	{EROFS, uint64(unix.EROFS)},
	{EMLINK, uint64(unix.EMLINK)},
	{EPIPE, uint64(unix.EPIPE)},
	{EDOM, uint64(unix.EDOM)},
	{ERANGE, uint64(unix.ERANGE)},
	{ENOMSG, uint64(unix.ENOMSG)},
	{EIDRM, uint64(unix.EIDRM)},
	{ECHRNG, uint64(unix.ECHRNG)},
	{EL2NSYNC, uint64(unix.EL2NSYNC)},
	{EL3HLT, uint64(unix.EL3HLT)},
	{EL3RST, uint64(unix.EL3RST)},
	{ELNRNG, uint64(unix.ELNRNG)},
	{EUNATCH, uint64(unix.EUNATCH)},
	{ENOCSI, uint64(unix.ENOCSI)},
	{EL2HLT, uint64(unix.EL2HLT)},
	{EDEADLK, uint64(unix.EDEADLK)},
	{ENOLCK, uint64(unix.ENOLCK)},
	{EBADE, uint64(unix.EBADE)},
	{EBADR, uint64(unix.EBADR)},
	{EXFULL, uint64(unix.EXFULL)},
	{ENOANO, uint64(unix.ENOANO)},
	{EBADRQC, uint64(unix.EBADRQC)},
	{EBADSLT, uint64(unix.EBADSLT)},
	{EBFONT, uint64(unix.EBFONT)},
	{ENOSTR, uint64(unix.ENOSTR)},
	{ENODATA, uint64(unix.ENODATA)},
	{ETIME, uint64(unix.ETIME)},
	{ENOSR, uint64(unix.ENOSR)},
	{ENONET, uint64(unix.ENONET)},
	{ENOPKG, uint64(unix.ENOPKG)},
	{EREMOTE, uint64(unix.EREMOTE)},
	{ENOLINK, uint64(unix.ENOLINK)},
	{EADV, uint64(unix.EADV)},
	{ESRMNT, uint64(unix.ESRMNT)},
	{ECOMM, uint64(unix.ECOMM)},
	{EPROTO, uint64(unix.EPROTO)},
	{EMULTIHOP, uint64(unix.EMULTIHOP)},
	{EDOTDOT, uint64(unix.EDOTDOT)},
	{EBADMSG, uint64(unix.EBADMSG)},
	{ENOTUNIQ, uint64(unix.ENOTUNIQ)},
	{EBADFD, uint64(unix.EBADFD)},
	{EREMCHG, uint64(unix.EREMCHG)},
	{ELIBACC, uint64(unix.ELIBACC)},
	{ELIBBAD, uint64(unix.ELIBBAD)},
	{ELIBSCN, uint64(unix.ELIBSCN)},
	{ELIBMAX, uint64(unix.ELIBMAX)},
	{ELIBEXEC, uint64(unix.ELIBEXEC)},
	{ENOSYS, uint64(unix.ENOSYS)},
	{ENOTEMPTY, uint64(unix.ENOTEMPTY)},
	{ENAMETOOLONG, uint64(unix.ENAMETOOLONG)},
	{ELOOP, uint64(unix.ELOOP)},
	{EOPNOTSUPP, uint64(unix.EOPNOTSUPP)},
	{EPFNOSUPPORT, uint64(unix.EPFNOSUPPORT)},
	{ECONNRESET, uint64(unix.ECONNRESET)},
	{ENOBUFS, uint64(unix.ENOBUFS)},
	{EAFNOSUPPORT, uint64(unix.EAFNOSUPPORT)},
	{EPROTOTYPE, uint64(unix.EPROTOTYPE)},
	{ENOTSOCK, uint64(unix.ENOTSOCK)},
	{ENOPROTOOPT, uint64(unix.ENOPROTOOPT)},
	{ESHUTDOWN, uint64(unix.ESHUTDOWN)},
	{ECONNREFUSED, uint64(unix.ECONNREFUSED)},
	{EADDRINUSE, uint64(unix.EADDRINUSE)},
	{ECONNABORTED, uint64(unix.ECONNABORTED)},
	{ENETUNREACH, uint64(unix.ENETUNREACH)},
	{ENETDOWN, uint64(unix.ENETDOWN)},
	{ETIMEDOUT, uint64(unix.ETIMEDOUT)},
	{EHOSTDOWN, uint64(unix.EHOSTDOWN)},
	{EHOSTUNREACH, uint64(unix.EHOSTUNREACH)},
	{EINPROGRESS, uint64(unix.EINPROGRESS)},
	{EALREADY, uint64(unix.EALREADY)},
	{EDESTADDRREQ, uint64(unix.EDESTADDRREQ)},
	{EMSGSIZE, uint64(unix.EMSGSIZE)},
	{EPROTONOSUPPORT, uint64(unix.EPROTONOSUPPORT)},
	{ESOCKTNOSUPPORT, uint64(unix.ESOCKTNOSUPPORT)},
	{EADDRNOTAVAIL, uint64(unix.EADDRNOTAVAIL)},
	{ENETRESET, uint64(unix.ENETRESET)},
	{EISCONN, uint64(unix.EISCONN)},
	{ENOTCONN, uint64(unix.ENOTCONN)},
	{ETOOMANYREFS, uint64(unix.ETOOMANYREFS)},
	{EUSERS, uint64(unix.EUSERS)},
	{EDQUOT, uint64(unix.EDQUOT)},
	{ESTALE, uint64(unix.ESTALE)},
	{ENOMEDIUM, uint64(unix.ENOMEDIUM)},
	{EILSEQ, uint64(unix.EILSEQ)},
	{EOVERFLOW, uint64(unix.EOVERFLOW)},
	{ECANCELED, uint64(unix.ECANCELED)},
	{ENOTRECOVERABLE, uint64(unix.ENOTRECOVERABLE)},
	{EOWNERDEAD, uint64(unix.EOWNERDEAD)},
	{ESTRPIPE, uint64(unix.ESTRPIPE)},
}
