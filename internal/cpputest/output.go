package cpputest

import (
	"github.com/rs/zerolog"
)

// Output receives the events of the target's CppUTest output.
type Output interface {
	PrintTestsStarted()
	PrintTestsEnded(TestResult)
	PrintCurrentTestStarted(TestShell)
	PrintCurrentTestEnded(TestResult)
	PrintCurrentGroupStarted(TestShell)
	PrintCurrentGroupEnded(TestResult)
	Verbose(level int)
	Color()
	PrintBuffer(string)
	// Print receives a string, uint64 or float64.
	Print(any)
	PrintFailure(TestFailure)
	PrintTestRun(number, total uint64)
	SetProgressIndicator(string)
	PrintVeryVerbose(string)
	Flush()
}

// LogOutput writes CppUTest events as structured log entries.
type LogOutput struct {
	logger  zerolog.Logger
	verbose int
}

// NewLogOutput returns an Output logging to logger.
func NewLogOutput(logger zerolog.Logger) *LogOutput {
	return &LogOutput{logger: logger.With().Str("component", "cpputest").Logger()}
}

func tally(ev *zerolog.Event, r TestResult) *zerolog.Event {
	return ev.
		Uint64("tests", r.TestCount).
		Uint64("run", r.RunCount).
		Uint64("checks", r.CheckCount).
		Uint64("ignored", r.IgnoredCount).
		Uint64("filtered_out", r.FilteredOutCount).
		Uint64("failures", r.FailureCount)
}

func (o *LogOutput) PrintTestsStarted() {
	o.logger.Info().Msg("Tests started")
}

func (o *LogOutput) PrintTestsEnded(r TestResult) {
	ev := o.logger.Info()
	if r.FailureCount > 0 {
		ev = o.logger.Error()
	}
	tally(ev, r).Uint64("time_ms", r.TotalExecutionTime).Msg("Tests ended")
}

func (o *LogOutput) PrintCurrentTestStarted(s TestShell) {
	if o.verbose < LevelVerbose {
		return
	}
	o.logger.Info().
		Str("group", s.Group).
		Str("test", s.Name).
		Str("file", s.File).
		Uint64("line", s.LineNumber).
		Msg("Test started")
}

func (o *LogOutput) PrintCurrentTestEnded(r TestResult) {
	if o.verbose < LevelVerbose {
		return
	}
	o.logger.Info().Uint64("time_ms", r.CurrentTestTotalExecutionTime).Msg("Test ended")
}

func (o *LogOutput) PrintCurrentGroupStarted(s TestShell) {
	o.logger.Debug().Str("group", s.Group).Msg("Group started")
}

func (o *LogOutput) PrintCurrentGroupEnded(r TestResult) {
	o.logger.Debug().Uint64("time_ms", r.CurrentGroupTotalExecutionTime).Msg("Group ended")
}

func (o *LogOutput) Verbose(level int) { o.verbose = level }

func (*LogOutput) Color() {}

func (o *LogOutput) PrintBuffer(s string) {
	o.logger.Info().Msg(s)
}

func (o *LogOutput) Print(v any) {
	o.logger.Info().Interface("value", v).Msg("Print")
}

func (o *LogOutput) PrintFailure(f TestFailure) {
	o.logger.Error().
		Str("test", f.TestName).
		Str("file", f.FileName).
		Uint64("line", f.FailureLineNumber).
		Bool("outside_test_file", f.IsOutsideTestFile).
		Msg(f.Message)
}

func (o *LogOutput) PrintTestRun(number, total uint64) {
	if total > 1 {
		o.logger.Info().Uint64("run", number).Uint64("total", total).Msg("Test run")
	}
}

func (*LogOutput) SetProgressIndicator(string) {}

func (o *LogOutput) PrintVeryVerbose(s string) {
	if o.verbose >= LevelVeryVerbose {
		o.logger.Debug().Msg(s)
	}
}

func (*LogOutput) Flush() {}
