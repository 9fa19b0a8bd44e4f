package config

import (
	"github.com/metal-test/metal/internal/constants"
)

// Config is the run configuration of metal-serial.
type Config struct {
	// Binary is the instrumented target executable.
	Binary string   `yaml:"binary" env:"METAL_SERIAL_BINARY"`
	Args   []string `yaml:"args,omitempty" env:"METAL_SERIAL_ARGS"`

	Source    SourceConfig    `yaml:"source"`
	Cache     CacheConfig     `yaml:"cache"`
	Transport TransportConfig `yaml:"transport"`
	Newlib    NewlibConfig    `yaml:"newlib"`
	Reporter  ReporterConfig  `yaml:"reporter"`
	CppUTest  CppUTestConfig  `yaml:"cpputest"`
	Log       LogConfig       `yaml:"log"`
}

// SourceConfig controls how target sources are preprocessed.
type SourceConfig struct {
	Includes []string `yaml:"includes,omitempty" env:"METAL_SERIAL_INCLUDES"`
	Defines  []string `yaml:"defines,omitempty" env:"METAL_SERIAL_DEFINES"`
	// Macros are tracked in addition to the ones the registered hooks serve.
	Macros []string `yaml:"macros,omitempty" env:"METAL_SERIAL_MACROS"`
}

// CacheConfig controls the serial info cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" env:"METAL_SERIAL_CACHE"`
	Dir     string `yaml:"dir,omitempty" env:"METAL_SERIAL_CACHE_DIR"`
}

// TransportConfig selects the stream to the target.
type TransportConfig struct {
	Kind    string `yaml:"kind" env:"METAL_SERIAL_TRANSPORT"`
	PTY     bool   `yaml:"pty,omitempty" env:"METAL_SERIAL_PTY"`
	Device  string `yaml:"device,omitempty" env:"METAL_SERIAL_DEVICE"`
	Baud    int    `yaml:"baud,omitempty" env:"METAL_SERIAL_BAUD"`
	Address string `yaml:"address,omitempty" env:"METAL_SERIAL_ADDRESS"`
	Input   string `yaml:"input,omitempty" env:"METAL_SERIAL_INPUT"`
	Output  string `yaml:"output,omitempty" env:"METAL_SERIAL_OUTPUT"`
}

// NewlibConfig configures the syscall bridge.
type NewlibConfig struct {
	Enabled bool   `yaml:"enabled" env:"METAL_SERIAL_NEWLIB"`
	Mode    string `yaml:"mode" env:"METAL_SERIAL_NEWLIB_MODE"`
}

// ReporterConfig configures the unit report hook.
type ReporterConfig struct {
	Enabled bool   `yaml:"enabled" env:"METAL_SERIAL_UNIT"`
	Level   string `yaml:"level" env:"METAL_SERIAL_PRINT_LEVEL"`
	JSON    string `yaml:"json,omitempty" env:"METAL_SERIAL_REPORT_JSON"`
	Color   bool   `yaml:"color" env:"METAL_SERIAL_COLOR"`
}

// CppUTestConfig enables the CppUTest output bridge.
type CppUTestConfig struct {
	Enabled bool `yaml:"enabled" env:"METAL_SERIAL_CPPUTEST"`
}

// LogConfig configures the host logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"METAL_SERIAL_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"METAL_SERIAL_LOG_PRETTY"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{Enabled: true},
		Transport: TransportConfig{
			Kind: constants.DefaultTransport,
			Baud: constants.DefaultBaudRate,
		},
		Newlib: NewlibConfig{
			Enabled: true,
			Mode:    constants.DefaultNewlibMode,
		},
		Reporter: ReporterConfig{
			Enabled: true,
			Level:   constants.DefaultPrintLevel,
		},
		Log: LogConfig{
			Level:  constants.DefaultLogLevel,
			Pretty: true,
		},
	}
}
