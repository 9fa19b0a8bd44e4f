package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/metal-test/metal/internal/constants"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var (
	transports  = []string{constants.TransportProcess, constants.TransportSerial, constants.TransportTCP, constants.TransportFiles}
	newlibModes = []string{constants.NewlibFull, constants.NewlibUnchecked, constants.NewlibBuffered, constants.NewlibBlocked}
	printLevels = []string{constants.PrintAll, constants.PrintWarning, constants.PrintError}
	logLevels   = []string{"trace", "debug", "info", "warn", "error"}
)

// Validate checks the enumerations and the fields the selected transport needs.
// Binary is required unless requireBinary is false.
func (c *Config) Validate(requireBinary bool) error {
	var errs []error
	check := func(field, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%w: %s %q, want one of %v", ErrInvalid, field, value, allowed))
		}
	}

	if requireBinary && c.Binary == "" {
		errs = append(errs, fmt.Errorf("%w: binary is required", ErrInvalid))
	}
	check("transport.kind", c.Transport.Kind, transports)
	check("newlib.mode", c.Newlib.Mode, newlibModes)
	check("reporter.level", c.Reporter.Level, printLevels)
	check("log.level", c.Log.Level, logLevels)

	switch c.Transport.Kind {
	case constants.TransportSerial:
		if c.Transport.Device == "" {
			errs = append(errs, fmt.Errorf("%w: transport.device is required for serial", ErrInvalid))
		}
		if c.Transport.Baud <= 0 {
			errs = append(errs, fmt.Errorf("%w: transport.baud must be positive", ErrInvalid))
		}
	case constants.TransportTCP:
		if c.Transport.Address == "" {
			errs = append(errs, fmt.Errorf("%w: transport.address is required for tcp", ErrInvalid))
		}
	case constants.TransportFiles:
		if c.Transport.Input == "" {
			errs = append(errs, fmt.Errorf("%w: transport.input is required for files", ErrInvalid))
		}
	}
	return errors.Join(errs...)
}
