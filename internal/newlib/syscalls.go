// Package newlib emulates on the host the newlib system calls a target
// forwards over the serial link.
package newlib

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/engine"
	"github.com/metal-test/metal/internal/preprocessor"
)

var (
	// ErrUnknownSyscall is returned for a syscall the hook does not serve.
	ErrUnknownSyscall = errors.New("newlib: unknown syscall")
	// ErrUnknownMode is returned for a mode a syscall does not support.
	ErrUnknownMode = errors.New("newlib: unknown syscall mode")
)

// Mode selects how a syscall is emulated.
type Mode string

const (
	// ModeFull performs the host call and reports its result.
	ModeFull Mode = "full"
	// ModeUnchecked performs the host call without replying.
	ModeUnchecked Mode = "unchecked"
	// ModeBuffered clamps reads to the bytes available before end of file.
	ModeBuffered Mode = "buffered"
	// ModeBlocked withholds open and close from the target.
	ModeBlocked Mode = "blocked"
)

// ParseMode validates a mode name. The empty string selects ModeFull.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.TrimSpace(s)); m {
	case "":
		return ModeFull, nil
	case ModeFull, ModeUnchecked, ModeBuffered, ModeBlocked:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Config configures the syscall hook.
type Config struct {
	// Mode is the host-wide emulation mode. Call sites naming their own
	// mode override it, except that ModeBlocked always rejects open and close.
	Mode Mode
}

type handler func(e *engine.Engine, mode Mode) error

// Syscalls serves METAL_SERIAL_SYSCALL call sites.
type Syscalls struct {
	host   HostOS
	mode   Mode
	logger zerolog.Logger

	handlers map[string]handler
	// unchecked maps target-chosen descriptors to host descriptors.
	unchecked map[int64]int
}

// New returns a syscall hook emulating calls on host.
func New(host HostOS, cfg Config, logger zerolog.Logger) *Syscalls {
	s := &Syscalls{
		host:      host,
		mode:      cfg.Mode,
		logger:    logger.With().Str("component", "newlib").Logger(),
		unchecked: make(map[int64]int),
	}
	if s.mode == "" {
		s.mode = ModeFull
	}
	s.handlers = map[string]handler{
		"fstat":   s.fstat,
		"stat":    s.stat,
		"isatty":  s.isatty,
		"link":    s.link,
		"symlink": s.symlink,
		"unlink":  s.unlink,
		"lseek":   s.lseek,
		"read":    s.read,
		"write":   s.write,
	}
	if s.mode != ModeBlocked {
		s.handlers["open"] = s.open
		s.handlers["close"] = s.close
	}
	return s
}

func (*Syscalls) Identifier() string { return constants.MacroSyscall }

// Invoke dispatches on the call site's first argument, the syscall name,
// and its optional second argument, the mode.
func (s *Syscalls) Invoke(e *engine.Engine, exp *preprocessor.MacroExpansion) error {
	name := strings.TrimSpace(exp.Arg(0))
	h, ok := s.handlers[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSyscall, name)
	}

	var site Mode
	if len(exp.Args) > 1 {
		m, err := ParseMode(exp.Args[1])
		if err != nil {
			return err
		}
		site = m
	}
	return h(e, s.modeFor(name, site))
}

func (s *Syscalls) modeFor(name string, site Mode) Mode {
	if site != "" {
		return site
	}
	switch name {
	case "open", "close":
		if s.mode == ModeUnchecked {
			return ModeUnchecked
		}
	case "read":
		if s.mode == ModeBuffered {
			return ModeBuffered
		}
	case "write":
		if s.mode == ModeUnchecked || s.mode == ModeBlocked {
			return ModeUnchecked
		}
	}
	return ModeFull
}

// Exit closes host descriptors still mapped from unchecked opens.
func (s *Syscalls) Exit(int) error {
	var errs []error
	for target, fd := range s.unchecked {
		if err := s.host.Close(fd); err != nil {
			errs = append(errs, fmt.Errorf("failed to close host fd %d mapped to %d: %w", fd, target, err))
		}
		delete(s.unchecked, target)
	}
	return errors.Join(errs...)
}

// replyErrno reports a host failure as a bare errno.
func replyErrno(e *engine.Engine, err error) error {
	errno, ok := hostErrno(err)
	if !ok {
		return fmt.Errorf("host call failed: %w", err)
	}
	return e.WriteInt(TargetErrno(errno))
}

// replyFailed reports a host failure as -1 followed by the errno.
func replyFailed(e *engine.Engine, err error) error {
	errno, ok := hostErrno(err)
	if !ok {
		return fmt.Errorf("host call failed: %w", err)
	}
	if err := e.WriteSigned(-1); err != nil {
		return err
	}
	return e.WriteInt(TargetErrno(errno))
}

func writeStat(e *engine.Engine, fi FileInfo) error {
	unsigned := []uint64{fi.Dev, fi.Ino, TargetMode(fi.Mode), fi.Nlink, uint64(fi.UID), uint64(fi.GID), fi.Rdev}
	for _, v := range unsigned {
		if err := e.WriteInt(v); err != nil {
			return err
		}
	}
	signed := []int64{
		fi.Size, fi.Blksize, fi.Blocks,
		fi.Atime.Sec, fi.Atime.Nsec,
		fi.Mtime.Sec, fi.Mtime.Nsec,
		fi.Ctime.Sec, fi.Ctime.Nsec,
	}
	for _, v := range signed {
		if err := e.WriteSigned(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syscalls) replyStat(e *engine.Engine, fi FileInfo, err error) error {
	if err != nil {
		return replyErrno(e, err)
	}
	if err := e.WriteInt(0); err != nil {
		return err
	}
	return writeStat(e, fi)
}

func (s *Syscalls) fstat(e *engine.Engine, _ Mode) error {
	fd, err := e.ReadSigned()
	if err != nil {
		return err
	}
	fi, err := s.host.Fstat(int(fd))
	return s.replyStat(e, fi, err)
}

func (s *Syscalls) stat(e *engine.Engine, _ Mode) error {
	path, err := e.ReadString()
	if err != nil {
		return err
	}
	fi, err := s.host.Stat(path)
	return s.replyStat(e, fi, err)
}

func (s *Syscalls) isatty(e *engine.Engine, _ Mode) error {
	fd, err := e.ReadSigned()
	if err != nil {
		return err
	}
	tty, err := s.host.Isatty(int(fd))
	if err != nil {
		return replyErrno(e, err)
	}
	if err := e.WriteInt(0); err != nil {
		return err
	}
	if tty {
		return e.WriteInt(1)
	}
	return e.WriteInt(0)
}

func (s *Syscalls) linkWith(e *engine.Engine, fn func(existing, name string) error) error {
	existing, err := e.ReadString()
	if err != nil {
		return err
	}
	name, err := e.ReadString()
	if err != nil {
		return err
	}
	if err := fn(existing, name); err != nil {
		return replyErrno(e, err)
	}
	return e.WriteInt(0)
}

func (s *Syscalls) link(e *engine.Engine, _ Mode) error {
	return s.linkWith(e, s.host.Link)
}

func (s *Syscalls) symlink(e *engine.Engine, _ Mode) error {
	return s.linkWith(e, s.host.Symlink)
}

func (s *Syscalls) unlink(e *engine.Engine, _ Mode) error {
	path, err := e.ReadString()
	if err != nil {
		return err
	}
	if err := s.host.Unlink(path); err != nil {
		return replyErrno(e, err)
	}
	return e.WriteInt(0)
}

func (s *Syscalls) lseek(e *engine.Engine, _ Mode) error {
	fd, err := e.ReadSigned()
	if err != nil {
		return err
	}
	offset, err := e.ReadSigned()
	if err != nil {
		return err
	}
	whence, err := e.ReadInt()
	if err != nil {
		return err
	}

	hostWhence, ok := HostWhence(whence)
	if !ok {
		return replyFailed(e, syscall.EINVAL)
	}
	pos, err := s.host.Lseek(int(fd), offset, hostWhence)
	if err != nil {
		return replyFailed(e, err)
	}
	return e.WriteSigned(pos)
}

type openRequest struct {
	path  string
	flags int
	mode  uint32
}

func readOpenRequest(e *engine.Engine) (openRequest, error) {
	path, err := e.ReadString()
	if err != nil {
		return openRequest{}, err
	}
	flags, err := e.ReadInt()
	if err != nil {
		return openRequest{}, err
	}
	mode, err := e.ReadInt()
	if err != nil {
		return openRequest{}, err
	}
	return openRequest{path: path, flags: HostOpenFlags(flags), mode: HostMode(mode)}, nil
}

func (s *Syscalls) open(e *engine.Engine, mode Mode) error {
	switch mode {
	case ModeFull:
		req, err := readOpenRequest(e)
		if err != nil {
			return err
		}
		fd, err := s.host.Open(req.path, req.flags, req.mode)
		if err != nil {
			return replyFailed(e, err)
		}
		return e.WriteSigned(int64(fd))

	case ModeUnchecked:
		req, err := readOpenRequest(e)
		if err != nil {
			return err
		}
		target, err := e.ReadSigned()
		if err != nil {
			return err
		}
		fd, err := s.host.Open(req.path, req.flags, req.mode)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", req.path).Msg("Failed to open file")
			return nil
		}
		if prev, ok := s.unchecked[target]; ok {
			if err := s.host.Close(prev); err != nil {
				s.logger.Warn().Err(err).Int64("fd", target).Msg("Failed to close replaced file")
			}
		}
		s.unchecked[target] = fd
		return nil
	}
	return fmt.Errorf("%w: open %s", ErrUnknownMode, mode)
}

func (s *Syscalls) close(e *engine.Engine, mode Mode) error {
	switch mode {
	case ModeFull:
		fd, err := e.ReadSigned()
		if err != nil {
			return err
		}
		if err := s.host.Close(int(fd)); err != nil {
			return replyErrno(e, err)
		}
		return e.WriteInt(0)

	case ModeUnchecked:
		target, err := e.ReadSigned()
		if err != nil {
			return err
		}
		fd, ok := s.unchecked[target]
		if !ok {
			return nil
		}
		delete(s.unchecked, target)
		if err := s.host.Close(fd); err != nil {
			s.logger.Warn().Err(err).Int64("fd", target).Msg("Failed to close file")
		}
		return nil
	}
	return fmt.Errorf("%w: close %s", ErrUnknownMode, mode)
}

func (s *Syscalls) read(e *engine.Engine, mode Mode) error {
	if mode != ModeFull && mode != ModeBuffered {
		return fmt.Errorf("%w: read %s", ErrUnknownMode, mode)
	}
	fd, err := e.ReadSigned()
	if err != nil {
		return err
	}
	n, err := e.ReadInt()
	if err != nil {
		return err
	}
	if n > engine.MaxMemory {
		return fmt.Errorf("%w: read of %d bytes at offset %d", engine.ErrLength, n, e.Offset())
	}

	if mode == ModeBuffered {
		avail, err := s.available(int(fd))
		if err != nil {
			return replyErrno(e, err)
		}
		n = min(n, uint64(avail))
	}

	data, err := s.host.Read(int(fd), int(n))
	if err != nil {
		return replyErrno(e, err)
	}
	if err := e.WriteInt(0); err != nil {
		return err
	}
	accepted, err := e.WriteMemory(data)
	if err != nil {
		return err
	}
	if accepted != uint64(len(data)) {
		s.logger.Debug().Uint64("accepted", accepted).Int("size", len(data)).Msg("Target stored a partial read")
	}
	return nil
}

// available measures the bytes between the position of fd and its end and
// restores the position.
func (s *Syscalls) available(fd int) (int64, error) {
	cur, err := s.host.Lseek(fd, 0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.host.Lseek(fd, 0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.host.Lseek(fd, cur, io.SeekStart); err != nil {
		return 0, err
	}
	return max(end-cur, 0), nil
}

func (s *Syscalls) write(e *engine.Engine, mode Mode) error {
	fd, err := e.ReadSigned()
	if err != nil {
		return err
	}
	data, err := e.ReadMemory()
	if err != nil {
		return err
	}

	switch mode {
	case ModeFull:
		n, err := s.host.Write(int(fd), data)
		if err != nil {
			return replyFailed(e, err)
		}
		return e.WriteSigned(int64(n))
	case ModeUnchecked, ModeBlocked:
		if _, err := s.host.Write(int(fd), data); err != nil {
			s.logger.Warn().Err(err).Int64("fd", fd).Msg("Failed to write")
		}
		return nil
	}
	return fmt.Errorf("%w: write %s", ErrUnknownMode, mode)
}

// ConfigForMode is a convenience for callers holding a mode name.
func ConfigForMode(name string) (Config, error) {
	m, err := ParseMode(name)
	if err != nil {
		return Config{}, err
	}
	return Config{Mode: m}, nil
}
