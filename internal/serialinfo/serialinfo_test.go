package serialinfo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-test/metal/internal/preprocessor"
	"github.com/metal-test/metal/internal/symbols"
	"github.com/metal-test/metal/internal/testutil"
)

func marker(name string, addr uint64, file string, line int) symbols.Marker {
	return symbols.Marker{Symbol: symbols.NewSymbol(name, addr, "STT_NOTYPE"), File: file, Line: line}
}

func expansion(name, file string, line int, args ...string) preprocessor.MacroExpansion {
	return preprocessor.MacroExpansion{Name: name, File: file, Line: line, Args: args}
}

func testTable() *symbols.Table {
	return &symbols.Table{
		Symbols: []symbols.Symbol{
			symbols.NewSymbol("main", 0x1000, "STT_FUNC"),
			symbols.NewSymbol("metal_serial_write", 0x2000, "STT_FUNC"),
		},
		Markers: []symbols.Marker{
			marker("__metal_serial_1", 0x1040, "/src/main.c", 9),
			marker("__metal_serial_0", 0x1020, "/src/main.c", 4),
		},
	}
}

func testExpansions() []preprocessor.MacroExpansion {
	return []preprocessor.MacroExpansion{
		expansion("METAL_SERIAL_EXIT", "/src/main.c", 9, "0"),
		expansion("METAL_SERIAL_INIT", "/src/main.c", 4),
		expansion("METAL_SERIAL_SYSCALL", "/src/other.c", 12, "open"),
	}
}

func TestCorrelate(t *testing.T) {
	matched, err := Correlate(testTable().Markers, testExpansions())
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "METAL_SERIAL_INIT", matched[0].Name)
	assert.Equal(t, "METAL_SERIAL_EXIT", matched[1].Name)
}

func TestMerge_HeaderSeenBySeveralUnits(t *testing.T) {
	header := expansion("METAL_SERIAL_SYSCALL", "/src/io.h", 3, "write")
	a := []preprocessor.MacroExpansion{header, expansion("METAL_SERIAL_INIT", "/src/main.c", 4)}
	b := []preprocessor.MacroExpansion{expansion("METAL_SERIAL_EXIT", "/src/main.c", 9, "0"), header}

	merged := Merge(a, b)
	require.Len(t, merged, 3)
	assert.Equal(t, "/src/io.h", merged[0].File)

	matched, err := Correlate([]symbols.Marker{marker("__metal_serial_2", 0x30, "/src/io.h", 3)}, merged)
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

func TestMerge_KeepsRepeatsWithinUnit(t *testing.T) {
	repeated := expansion("METAL_SERIAL_EXIT", "/src/a.c", 1, "0")
	unit := []preprocessor.MacroExpansion{repeated, repeated}

	merged := Merge(unit, []preprocessor.MacroExpansion{repeated})
	assert.Len(t, merged, 2)

	markers := []symbols.Marker{
		{Symbol: symbols.NewSymbol("__metal_serial_0", 0x10, "STT_NOTYPE"), File: "/src/a.c", Line: 1, Column: 16},
		{Symbol: symbols.NewSymbol("__metal_serial_1", 0x20, "STT_NOTYPE"), File: "/src/a.c", Line: 1, Column: 38},
	}
	_, err := Correlate(markers, merged)
	require.ErrorIs(t, err, ErrAmbiguousExpansion)
	assert.Contains(t, err.Error(), "/src/a.c(1)")
}

func TestCorrelate_SameLineInvocations(t *testing.T) {
	src := filepath.Join(t.TempDir(), "exit.c")
	require.NoError(t, os.WriteFile(src, []byte("void f(void) { METAL_SERIAL_EXIT(0); METAL_SERIAL_EXIT(0); }\n"), 0o644))

	exps, err := preprocessor.New(preprocessor.Options{Macros: []string{"METAL_SERIAL_EXIT"}, Logger: zerolog.Nop()}).Process(src)
	require.NoError(t, err)
	require.Len(t, exps, 2)

	markers := []symbols.Marker{marker("__metal_serial_0", 0x10, exps[0].File, 1)}
	_, err = Correlate(markers, Merge(exps))
	require.ErrorIs(t, err, ErrAmbiguousExpansion)

	_, err = New(&symbols.Table{
		Symbols: []symbols.Symbol{symbols.NewSymbol("metal_serial_write", 0x2000, "STT_FUNC")},
		Markers: markers,
	}, Merge(exps))
	assert.ErrorIs(t, err, ErrAmbiguousExpansion)
}

func TestCorrelate_Errors(t *testing.T) {
	markers := []symbols.Marker{marker("__metal_serial_0", 0x10, "/src/a.c", 7)}

	_, err := Correlate(markers, nil)
	require.ErrorIs(t, err, ErrMissingExpansion)
	assert.Contains(t, err.Error(), "/src/a.c(7)")

	_, err = Correlate(markers, []preprocessor.MacroExpansion{
		expansion("METAL_SERIAL_EXIT", "/src/a.c", 7, "1"),
		expansion("METAL_SERIAL_EXIT", "/src/a.c", 7, "2"),
	})
	require.ErrorIs(t, err, ErrAmbiguousExpansion)
	assert.Contains(t, err.Error(), "/src/a.c(7)")
}

func TestNew(t *testing.T) {
	info, err := New(testTable(), testExpansions())
	require.NoError(t, err)

	assert.Equal(t, uint64(0x2000), info.WriteAddress())
	assert.Equal(t, "__metal_serial_0", info.Markers[0].Name)

	m, ok := info.FindMarker(0x1040)
	require.True(t, ok)
	e, ok := info.FindExpansion(m)
	require.True(t, ok)
	assert.Equal(t, "METAL_SERIAL_EXIT", e.Name)

	_, ok = info.FindMarker(0x9999)
	assert.False(t, ok)

	require.Len(t, info.Expansions, 3, "unmatched expansions stay in the bundle")
	assert.Equal(t, "/src/other.c", info.Expansions[2].File)

	s, ok := info.FindSymbol("main")
	require.True(t, ok)
	assert.Equal(t, uint64(0x1000), s.Address)
}

func TestNew_NoWriteSymbol(t *testing.T) {
	table := testTable()
	table.Symbols = table.Symbols[:1]

	_, err := New(table, testExpansions())
	require.ErrorIs(t, err, ErrNoWriteSymbol)
}

func TestEncode_Idempotent(t *testing.T) {
	first, err := New(testTable(), testExpansions())
	require.NoError(t, err)

	exps := testExpansions()
	exps[0], exps[2] = exps[2], exps[0]
	second, err := New(testTable(), exps)
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, first.Encode(&a))
	require.NoError(t, second.Encode(&b))
	assert.Equal(t, a.String(), b.String())
	assert.Contains(t, a.String(), `"metal_serial_write"`)
}

func TestSaveLoad(t *testing.T) {
	info, err := New(testTable(), testExpansions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "info.json")
	require.NoError(t, info.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, info.WriteSymbol, loaded.WriteSymbol)

	m, ok := loaded.FindMarker(0x1020)
	require.True(t, ok)
	e, ok := loaded.FindExpansion(m)
	require.True(t, ok)
	assert.Equal(t, "METAL_SERIAL_INIT", e.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestCache(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "app.elf")
	require.NoError(t, os.WriteFile(bin, []byte("binary"), 0o644))
	src := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(src, []byte("int main;"), 0o644))

	units := []symbols.CompileUnit{{Name: "main.c", CompDir: dir}}
	opts := GenerateOptions{Binary: bin, Defines: []string{"A=1"}}

	key, err := Fingerprint(opts, units)
	require.NoError(t, err)
	again, err := Fingerprint(opts, units)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	opts.Defines = []string{"A=2"}
	changed, err := Fingerprint(opts, units)
	require.NoError(t, err)
	assert.NotEqual(t, key, changed)

	require.NoError(t, os.WriteFile(src, []byte("int main2;"), 0o644))
	opts.Defines = []string{"A=1"}
	edited, err := Fingerprint(opts, units)
	require.NoError(t, err)
	assert.NotEqual(t, key, edited)

	cache := NewCache(filepath.Join(dir, "cache"), zerolog.Nop())
	_, ok := cache.Load(key)
	assert.False(t, ok)

	info, err := New(testTable(), testExpansions())
	require.NoError(t, err)
	require.NoError(t, cache.Store(key, info))

	cached, ok := cache.Load(key)
	require.True(t, ok)
	assert.Len(t, cached.Markers, 2)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "metal_serial_write")
	assert.Contains(t, s, "expansions")
	assert.Contains(t, s, "args_tokenized")
}

func TestGenerate_CompiledFixture(t *testing.T) {
	_, bin := testutil.CompileC(t, "target.c",
		"#define METAL_SERIAL_STR2(x) #x",
		"#define METAL_SERIAL_STR(x) METAL_SERIAL_STR2(x)",
		`#define METAL_SERIAL_WRITE_MARKER() __asm__ volatile("__metal_serial_" METAL_SERIAL_STR(__COUNTER__) ":")`,
		"#define METAL_SERIAL_EXIT(code) METAL_SERIAL_WRITE_MARKER()",
		"void metal_serial_write(void) {}",
		"int main(void) {",
		"  METAL_SERIAL_EXIT(0);",
		"  metal_serial_write();",
		"  return 0;",
		"}",
	)
	dir := t.TempDir()

	opts := GenerateOptions{
		Binary: bin,
		Macros: []string{"METAL_SERIAL_INIT", "METAL_SERIAL_EXIT"},
		Logger: zerolog.Nop(),
		Cache:  NewCache(filepath.Join(dir, "cache"), zerolog.Nop()),
	}
	info, err := Generate(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, info.Markers, 1)
	require.Len(t, info.Expansions, 1)
	assert.Equal(t, "METAL_SERIAL_EXIT", info.Expansions[0].Name)
	assert.Equal(t, 7, info.Expansions[0].Line)

	cached, err := Generate(context.Background(), opts)
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, info.Encode(&a))
	require.NoError(t, cached.Encode(&b))
	assert.Equal(t, a.String(), b.String())
}
