package newlib

// Open flags of the newlib ABI, sys/_default_fcntl.h.
const (
	O_RDONLY    = 0x0
	O_WRONLY    = 0x1
	O_RDWR      = 0x2
	O_ACCMODE   = O_RDONLY | O_WRONLY | O_RDWR
	O_APPEND    = 0x0008
	O_CREAT     = 0x0200
	O_TRUNC     = 0x0400
	O_EXCL      = 0x0800
	O_SYNC      = 0x2000
	O_NONBLOCK  = 0x4000
	O_NOCTTY    = 0x8000
	O_BINARY    = 0x10000
	O_TEXT      = 0x20000
	O_CLOEXEC   = 0x40000
	O_DIRECT    = 0x80000
	O_NOFOLLOW  = 0x100000
	O_DIRECTORY = 0x200000
	O_EXEC      = 0x400000
	O_TMPFILE   = 0x800000
	O_NOATIME   = 0x1000000
	O_PATH      = 0x2000000

	O_NDELAY = O_NONBLOCK
	O_DSYNC  = O_SYNC
	O_RSYNC  = O_SYNC
	O_SEARCH = O_EXEC
)

// Mode bits of the newlib ABI, sys/stat.h.
const (
	S_IFMT   = 0o170000
	S_IFDIR  = 0o040000
	S_IFCHR  = 0o020000
	S_IFBLK  = 0o060000
	S_IFREG  = 0o100000
	S_IFLNK  = 0o120000
	S_IFSOCK = 0o140000
	S_IFIFO  = 0o010000

	S_ISUID = 0o004000
	S_ISGID = 0o002000
	S_ISVTX = 0o001000

	S_IRUSR = 0o000400
	S_IWUSR = 0o000200
	S_IXUSR = 0o000100
	S_IRGRP = 0o000040
	S_IWGRP = 0o000020
	S_IXGRP = 0o000010
	S_IROTH = 0o000004
	S_IWOTH = 0o000002
	S_IXOTH = 0o000001
)

// Seek origins of the newlib ABI, sys/unistd.h.
const (
	SEEK_SET = 0
	SEEK_CUR = 1
	SEEK_END = 2
)

// Error numbers of the newlib ABI, sys/errno.h.
const (
	EPERM           = 1
	ENOENT          = 2
	ESRCH           = 3
	EINTR           = 4
	EIO             = 5
	ENXIO           = 6
	E2BIG           = 7
	ENOEXEC         = 8
	EBADF           = 9
	ECHILD          = 10
	EAGAIN          = 11
	ENOMEM          = 12
	EACCES          = 13
	EFAULT          = 14
	ENOTBLK         = 15
	EBUSY           = 16
	EEXIST          = 17
	EXDEV           = 18
	ENODEV          = 19
	ENOTDIR         = 20
	EISDIR          = 21
	EINVAL          = 22
	ENFILE          = 23
	EMFILE          = 24
	ENOTTY          = 25
	ETXTBSY         = 26
	EFBIG           = 27
	ENOSPC          = 28
	ESPIPE          = 29
	EROFS           = 30
	EMLINK          = 31
	EPIPE           = 32
	EDOM            = 33
	ERANGE          = 34
	ENOMSG          = 35
	EIDRM           = 36
	ECHRNG          = 37
	EL2NSYNC        = 38
	EL3HLT          = 39
	EL3RST          = 40
	ELNRNG          = 41
	EUNATCH         = 42
	ENOCSI          = 43
	EL2HLT          = 44
	EDEADLK         = 45
	ENOLCK          = 46
	EBADE           = 50
	EBADR           = 51
	EXFULL          = 52
	ENOANO          = 53
	EBADRQC         = 54
	EBADSLT         = 55
	EDEADLOCK       = 56
	EBFONT          = 57
	ENOSTR          = 60
	ENODATA         = 61
	ETIME           = 62
	ENOSR           = 63
	ENONET          = 64
	ENOPKG          = 65
	EREMOTE         = 66
	ENOLINK         = 67
	EADV            = 68
	ESRMNT          = 69
	ECOMM           = 70
	EPROTO          = 71
	EMULTIHOP       = 74
	ELBIN           = 75
	EDOTDOT         = 76
	EBADMSG         = 77
	EFTYPE          = 79
	ENOTUNIQ        = 80
	EBADFD          = 81
	EREMCHG         = 82
	ELIBACC         = 83
	ELIBBAD         = 84
	ELIBSCN         = 85
	ELIBMAX         = 86
	ELIBEXEC        = 87
	ENOSYS          = 88
	ENMFILE         = 89
	ENOTEMPTY       = 90
	ENAMETOOLONG    = 91
	ELOOP           = 92
	EOPNOTSUPP      = 95
	EPFNOSUPPORT    = 96
	ECONNRESET      = 104
	ENOBUFS         = 105
	EAFNOSUPPORT    = 106
	EPROTOTYPE      = 107
	ENOTSOCK        = 108
	ENOPROTOOPT     = 109
	ESHUTDOWN       = 110
	ECONNREFUSED    = 111
	EADDRINUSE      = 112
	ECONNABORTED    = 113
	ENETUNREACH     = 114
	ENETDOWN        = 115
	ETIMEDOUT       = 116
	EHOSTDOWN       = 117
	EHOSTUNREACH    = 118
	EINPROGRESS     = 119
	EALREADY        = 120
	EDESTADDRREQ    = 121
	EMSGSIZE        = 122
	EPROTONOSUPPORT = 123
	ESOCKTNOSUPPORT = 124
	EADDRNOTAVAIL   = 125
	ENETRESET       = 126
	EISCONN         = 127
	ENOTCONN        = 128
	ETOOMANYREFS    = 129
	EPROCLIM        = 130
	EUSERS          = 131
	EDQUOT          = 132
	ESTALE          = 133
	ENOTSUP         = 134
	ENOMEDIUM       = 135
	ENOSHARE        = 136
	ECASECLASH      = 137
	EILSEQ          = 138
	EOVERFLOW       = 139
	ECANCELED       = 140
	ENOTRECOVERABLE = 141
	EOWNERDEAD      = 142
	ESTRPIPE        = 143
	EWOULDBLOCK     = EAGAIN
)
