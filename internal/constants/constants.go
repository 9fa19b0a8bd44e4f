// Package constants defines protocol tags, macro identifiers and shared defaults.
package constants

// VersionString is the tag the target sends first; it must match exactly.
const VersionString = "__metal_serial_version_1"

// MarkerPrefix is the symbol prefix of every instrumentation code marker.
const MarkerPrefix = "__metal_serial_"

// WriteSymbol is the target's write entry point used to compute the base offset.
const WriteSymbol = "metal_serial_write"

// Macro identifiers known to the hook registry.
const (
	MacroInit     = "METAL_SERIAL_INIT"
	MacroExit     = "METAL_SERIAL_EXIT"
	MacroSyscall  = "METAL_SERIAL_SYSCALL"
	MacroArgv     = "METAL_SERIAL_INIT_ARGV"
	MacroUnit     = "METAL_TEST_REPORT_IMPL"
	MacroCppUTest = "METAL_SERIAL_CPPUTEST"
)

// KnownMacros lists every macro identifier a hook may be registered for.
var KnownMacros = []string{
	MacroInit,
	MacroExit,
	MacroSyscall,
	MacroArgv,
	MacroUnit,
	MacroCppUTest,
}

var (
	// ConfigFile is the default run configuration file name.
	ConfigFile = "metal-serial.yaml"

	// DefaultDir is the per-user directory for caches.
	DefaultDir = ".metal-serial"

	// CacheDir is the subdirectory of DefaultDir holding cached bundles.
	CacheDir = "cache"
)
