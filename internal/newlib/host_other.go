//go:build !linux

package newlib

import "syscall"

type unsupportedHost struct{}

// NewHostOS returns a host that fails every call with ENOSYS.
func NewHostOS() HostOS { return unsupportedHost{} }

func (unsupportedHost) Fstat(int) (FileInfo, error) { return FileInfo{}, syscall.ENOSYS }
func (unsupportedHost) Stat(string) (FileInfo, error) { return FileInfo{}, syscall.ENOSYS }
func (unsupportedHost) Isatty(int) (bool, error) { return false, syscall.ENOSYS }
func (unsupportedHost) Link(string, string) error { return syscall.ENOSYS }
func (unsupportedHost) Symlink(string, string) error { return syscall.ENOSYS }
func (unsupportedHost) Unlink(string) error { return syscall.ENOSYS }
func (unsupportedHost) Open(string, int, uint32) (int, error) { return -1, syscall.ENOSYS }
func (unsupportedHost) Close(int) error { return syscall.ENOSYS }
func (unsupportedHost) Read(int, int) ([]byte, error) { return nil, syscall.ENOSYS }
func (unsupportedHost) Write(int, []byte) (int, error) { return 0, syscall.ENOSYS }
func (unsupportedHost) Lseek(int, int64, int) (int64, error) { return 0, syscall.ENOSYS }
