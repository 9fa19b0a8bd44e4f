package constants

// Newlib syscall bridge modes.
const (
	NewlibFull      = "full"
	NewlibUnchecked = "unchecked"
	NewlibBuffered  = "buffered"
	NewlibBlocked   = "blocked"
)

// Reporter print levels.
const (
	PrintAll     = "all"
	PrintWarning = "warning"
	PrintError   = "error"
)

// Transport kinds.
const (
	TransportProcess = "process"
	TransportSerial  = "serial"
	TransportTCP     = "tcp"
	TransportFiles   = "files"
)

// Defaults for a run without configuration file.
const (
	DefaultNewlibMode = NewlibUnchecked
	DefaultPrintLevel = PrintWarning
	DefaultTransport  = TransportProcess
	DefaultBaudRate   = 115200
	DefaultLogLevel   = "info"
)
