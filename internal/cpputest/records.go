package cpputest

import (
	"github.com/metal-test/metal/internal/engine"
)

// Verbosity levels the target's output sends with verbose.
const (
	LevelQuiet       = 0
	LevelVerbose     = 1
	LevelVeryVerbose = 2
)

// TestResult is the target's running tally.
type TestResult struct {
	TestCount                      uint64
	RunCount                       uint64
	CheckCount                     uint64
	FilteredOutCount               uint64
	IgnoredCount                   uint64
	FailureCount                   uint64
	TotalExecutionTime             uint64
	CurrentTestTotalExecutionTime  uint64
	CurrentGroupTotalExecutionTime uint64
}

// TestShell identifies a test or group.
type TestShell struct {
	Name          string
	Group         string
	FormattedName string
	File          string
	LineNumber    uint64
}

// TestFailure describes one failed check.
type TestFailure struct {
	FileName           string
	TestName           string
	TestNameOnly       string
	FailureLineNumber  uint64
	Message            string
	TestFileName       string
	TestLineNumber     uint64
	IsOutsideTestFile  bool
	IsInHelperFunction bool
}

// decoder reads fields in order and keeps the first error.
type decoder struct {
	e   *engine.Engine
	err error
}

func (d *decoder) int(v *uint64) {
	if d.err != nil {
		return
	}
	*v, d.err = d.e.ReadInt()
}

func (d *decoder) str(v *string) {
	if d.err != nil {
		return
	}
	*v, d.err = d.e.ReadString()
}

func (d *decoder) bool(v *bool) {
	if d.err != nil {
		return
	}
	var b byte
	b, d.err = d.e.ReadByte()
	*v = b != 0
}

// ReadTestResult decodes a TestResult record.
func ReadTestResult(e *engine.Engine) (TestResult, error) {
	var r TestResult
	d := decoder{e: e}
	for _, f := range []*uint64{
		&r.TestCount, &r.RunCount, &r.CheckCount, &r.FilteredOutCount, &r.IgnoredCount,
		&r.FailureCount, &r.TotalExecutionTime, &r.CurrentTestTotalExecutionTime,
		&r.CurrentGroupTotalExecutionTime,
	} {
		d.int(f)
	}
	return r, d.err
}

// ReadTestShell decodes a TestShell record.
func ReadTestShell(e *engine.Engine) (TestShell, error) {
	var s TestShell
	d := decoder{e: e}
	d.str(&s.Name)
	d.str(&s.Group)
	d.str(&s.FormattedName)
	d.str(&s.File)
	d.int(&s.LineNumber)
	return s, d.err
}

// ReadTestFailure decodes a TestFailure record.
func ReadTestFailure(e *engine.Engine) (TestFailure, error) {
	var f TestFailure
	d := decoder{e: e}
	d.str(&f.FileName)
	d.str(&f.TestName)
	d.str(&f.TestNameOnly)
	d.int(&f.FailureLineNumber)
	d.str(&f.Message)
	d.str(&f.TestFileName)
	d.int(&f.TestLineNumber)
	d.bool(&f.IsOutsideTestFile)
	d.bool(&f.IsInHelperFunction)
	return f, d.err
}
