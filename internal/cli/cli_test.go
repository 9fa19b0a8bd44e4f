package cli

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-test/metal/internal/config"
	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/preprocessor"
	"github.com/metal-test/metal/internal/serialinfo"
	"github.com/metal-test/metal/internal/symbols"
)

const (
	addrInit   = 0x1000
	addrReport = 0x1100
	addrExit   = 0x1200
	addrWrite  = 0x2000
	loadBase   = 0x8000
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func writeInfo(t *testing.T, dir string) string {
	t.Helper()
	const src = "/src/test.c"
	table := &symbols.Table{
		Symbols: []symbols.Symbol{symbols.NewSymbol(constants.WriteSymbol, addrWrite, "STT_FUNC")},
		Markers: []symbols.Marker{
			{Symbol: symbols.NewSymbol("__metal_serial_0", addrInit, "STT_NOTYPE"), File: src, Line: 2},
			{Symbol: symbols.NewSymbol("__metal_serial_1", addrReport, "STT_NOTYPE"), File: src, Line: 7},
			{Symbol: symbols.NewSymbol("__metal_serial_2", addrExit, "STT_NOTYPE"), File: src, Line: 9},
		},
	}
	info, err := serialinfo.New(table, []preprocessor.MacroExpansion{
		{Name: constants.MacroInit, File: src, Line: 2},
		{Name: constants.MacroUnit, File: src, Line: 7, Args: []string{"0", "0", "0"}},
		{Name: constants.MacroExit, File: src, Line: 9, Args: []string{"3"}},
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "info.json")
	require.NoError(t, info.Save(path))
	return path
}

// recording lays out what a 4-byte little-endian target writes.
func recording(records ...[]byte) []byte {
	var b bytes.Buffer
	b.WriteString(constants.VersionString)
	b.WriteByte(0)
	b.WriteByte(4)
	b.Write([]byte{0x43, 0x6C, 0, 0})
	b.Write(word(loadBase + addrWrite))
	b.Write(word(loadBase + addrInit))
	for _, r := range records {
		b.Write(r)
	}
	return b.Bytes()
}

func word(v uint32) []byte {
	b := make([]byte, 5)
	b[0] = 4
	binary.LittleEndian.PutUint32(b[1:], v)
	return b
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "metal-serial version")
	assert.Contains(t, out, "Go version")
	assert.Contains(t, out, "Protocol: "+constants.VersionString)
}

func TestSchema(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"metal_serial_write"`)
	assert.Contains(t, out, `"expansions"`)
}

func TestGenerate_Args(t *testing.T) {
	_, err := execute(t, "generate")
	assert.Error(t, err)
}

func TestInterpret(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	info := writeInfo(t, dir)

	input := filepath.Join(dir, "stream.bin")
	require.NoError(t, os.WriteFile(input, recording(
		word(loadBase+addrReport), []byte{18}, []byte{1, 0},
		word(loadBase+addrExit), word(3),
	), 0o644))

	out, err := execute(t, "interpret", "-S", info, "-i", input)
	var exit *ExitCodeError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 3, exit.Code)
	assert.Contains(t, out, "/src/test.c(7): full test report: {executed: 0, warnings: 0, errors: 0}")
}

func TestInterpret_MissingInfo(t *testing.T) {
	_, err := execute(t, "interpret", "-i", "-")
	assert.ErrorContains(t, err, "serial-info")
}

func TestFlagOverrides(t *testing.T) {
	var (
		src   sourceFlags
		tr    transportFlags
		hooks hookFlags
	)
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	src.register(fs)
	tr.register(fs)
	hooks.register(fs)
	require.NoError(t, fs.Parse([]string{"-I", "inc", "-D", "X=1", "--no-cache", "-t", "tcp", "--address", "host:1", "--newlib", "full"}))

	cfg := config.Default()
	cfg.Source.Includes = []string{"base"}
	src.apply(fs, cfg)
	tr.apply(fs, cfg)
	hooks.apply(fs, cfg)

	assert.Equal(t, []string{"base", "inc"}, cfg.Source.Includes)
	assert.Equal(t, []string{"X=1"}, cfg.Source.Defines)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, constants.TransportTCP, cfg.Transport.Kind)
	assert.Equal(t, "host:1", cfg.Transport.Address)
	assert.Equal(t, constants.NewlibFull, cfg.Newlib.Mode)
	// Flags left at their default do not override the configuration.
	assert.Equal(t, constants.DefaultBaudRate, cfg.Transport.Baud)
	assert.Equal(t, constants.PrintWarning, cfg.Reporter.Level)
}

func TestWithExtraMacros(t *testing.T) {
	base := []string{constants.MacroInit, constants.MacroExit}
	got := withExtraMacros(base, []string{"MY_MACRO", constants.MacroExit})
	assert.Equal(t, []string{constants.MacroInit, constants.MacroExit, "MY_MACRO"}, got)
	assert.Len(t, base, 2)
}
