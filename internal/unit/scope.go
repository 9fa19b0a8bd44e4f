package unit

// Level is the severity or control field of a report.
type Level string

const (
	LevelCancel Level = "cancel"
	LevelInfo   Level = "info"
	LevelEnter  Level = "enter"
	LevelExit   Level = "exit"
	LevelAssert Level = "assert"
	LevelExpect Level = "expect"
)

// Kind is the check type of a report.
type Kind string

const (
	KindPlain           Kind = "plain"
	KindCritical        Kind = "critical"
	// KindCriticalSection keeps its wire slot; targets never report it.
	KindCriticalSection Kind = "critical_section"
	KindLoop            Kind = "loop"
	KindRanged          Kind = "ranged"
	KindMessage         Kind = "message"
	KindCall            Kind = "call"
	KindLog             Kind = "log"
	KindCheckpoint      Kind = "checkpoint"
	KindEqual           Kind = "equal"
	KindNotEqual        Kind = "not_equal"
	KindPredicate       Kind = "predicate"
	KindClose           Kind = "close"
	KindCloseRelative   Kind = "close_relative"
	KindGE              Kind = "ge"
	KindLE              Kind = "le"
	KindGreater         Kind = "greater"
	KindLesser          Kind = "lesser"
	KindReport          Kind = "report"
)

// Wire order of the packed report byte.
var (
	levels = [...]Level{LevelCancel, LevelInfo, LevelEnter, LevelExit, LevelAssert, LevelExpect}
	kinds  = [...]Kind{
		KindPlain, KindCritical, KindCriticalSection, KindLoop, KindRanged, KindMessage, KindCall,
		KindLog, KindCheckpoint, KindEqual, KindNotEqual, KindPredicate, KindClose,
		KindCloseRelative, KindGE, KindLE, KindGreater, KindLesser, KindReport,
	}
)

// RangeInfo names the operands of a ranged check.
type RangeInfo struct {
	Lhs    string `json:"lhs"`
	LhsLen string `json:"lhs_len"`
	Rhs    string `json:"rhs"`
	RhsLen string `json:"rhs_len"`
}

// Check is one recorded report.
type Check struct {
	Type      Kind   `json:"type"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Level     Level  `json:"level,omitempty"`
	Condition *bool  `json:"condition,omitempty"`
	Control   Level  `json:"control,omitempty"`

	Message     string     `json:"message,omitempty"`
	Description string     `json:"description,omitempty"`
	Lhs         string     `json:"lhs,omitempty"`
	Rhs         string     `json:"rhs,omitempty"`
	Tolerance   string     `json:"tolerance,omitempty"`
	Function    string     `json:"function,omitempty"`
	Args        []string   `json:"args,omitempty"`
	Length      *uint64    `json:"length,omitempty"`
	RangeInfo   *RangeInfo `json:"range_info,omitempty"`
}

// Summary aggregates check counts.
type Summary struct {
	Executed int `json:"executed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// Scope is a node of the report tree: the main program or one called test case.
type Scope struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Summary     Summary  `json:"summary"`
	Cancelled   bool     `json:"cancelled"`
	Children    []*Scope `json:"children"`
	Tests       []Check  `json:"tests"`
}

func newScope(name string) *Scope {
	return &Scope{Name: name, Children: []*Scope{}, Tests: []Check{}}
}

// record appends c. Checks carrying a level and a condition count as
// executed; failed asserts count as errors and failed expects as warnings.
func (s *Scope) record(c Check) {
	if c.Level != "" && c.Condition != nil {
		s.Summary.Executed++
		if !*c.Condition {
			switch c.Level {
			case LevelAssert:
				s.Summary.Errors++
			case LevelExpect:
				s.Summary.Warnings++
			}
		}
	}
	s.Tests = append(s.Tests, c)
}

// merge adds a finished child's counts and attaches it.
func (s *Scope) merge(child *Scope) {
	s.Summary.Executed += child.Summary.Executed
	s.Summary.Warnings += child.Summary.Warnings
	s.Summary.Errors += child.Summary.Errors
	s.Children = append(s.Children, child)
}
