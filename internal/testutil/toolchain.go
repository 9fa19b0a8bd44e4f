package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// CompileC writes source lines to name in a temporary directory and builds
// them with the system C compiler using -g -O0. The test is skipped when
// no compiler is available or the platform does not produce ELF binaries.
// It returns the source and binary paths.
func CompileC(t *testing.T, name string, lines ...string) (string, string) {
	t.Helper()

	if runtime.GOOS != "linux" {
		t.Skip("ELF binaries only")
	}
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("no C compiler available")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, name)
	if err := os.WriteFile(src, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", src, err)
	}
	bin := strings.TrimSuffix(src, filepath.Ext(src))

	ctx, cancel := NewTestContext()
	defer cancel()
	cmd := exec.CommandContext(ctx, cc, "-g", "-O0", "-o", bin, src)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("fixture did not compile: %v: %s", err, out)
	}
	return src, bin
}

