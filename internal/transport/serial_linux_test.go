//go:build linux

package transport

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenSerial_Errors(t *testing.T) {
	_, err := OpenSerial("/dev/null", 1234)
	assert.ErrorContains(t, err, "unsupported baud rate 1234")

	_, err = OpenSerial(filepath.Join(t.TempDir(), "ttyNone"), 115200)
	assert.ErrorContains(t, err, "failed to open")

	// Not a terminal.
	_, err = OpenSerial("/dev/null", 115200)
	assert.Error(t, err)
}
