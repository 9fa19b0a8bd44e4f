// Package symbols extracts symbols, compile units and instrumentation
// markers from ELF binaries with DWARF line information.
package symbols

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ianlancetaylor/demangle"

	"github.com/metal-test/metal/internal/constants"
)

var (
	// ErrNoDebugInfo is returned when the binary carries no DWARF data.
	ErrNoDebugInfo = errors.New("symbols: binary has no DWARF debug info")
	// ErrNoLocation is returned when a marker has no line-program row.
	ErrNoLocation = errors.New("symbols: marker has no source location, binary compiled without usable debug info")
	// ErrDuplicateMarker is returned when two markers share a source location.
	ErrDuplicateMarker = errors.New("symbols: duplicate marker location")
)

// Symbol is one named entry of the binary's symbol table.
type Symbol struct {
	Name          string `json:"name"`
	Address       uint64 `json:"address"`
	Kind          string `json:"symbol_type"`
	DemangledName string `json:"demangled_name,omitempty"`
}

// NewSymbol builds a Symbol, demangling C++ names when possible.
func NewSymbol(name string, address uint64, kind string) Symbol {
	s := Symbol{Name: name, Address: address, Kind: kind}
	if d, err := demangle.ToString(name); err == nil && d != name {
		s.DemangledName = d
	}
	return s
}

// DisplayName returns the demangled name when known.
func (s Symbol) DisplayName() string {
	if s.DemangledName != "" {
		return s.DemangledName
	}
	return s.Name
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s@0x%x", s.DisplayName(), s.Address)
}

// IsMarker reports whether the symbol is an instrumentation label.
func (s Symbol) IsMarker() bool {
	return strings.HasPrefix(s.Name, constants.MarkerPrefix)
}

// Marker is a marker symbol resolved to the source location it was emitted at.
type Marker struct {
	Symbol
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (m Marker) String() string {
	return fmt.Sprintf("%s(%d): %s@0x%x", m.File, m.Line, m.Name, m.Address)
}

// CompileUnit is one DWARF compile unit.
type CompileUnit struct {
	Name    string   `json:"name"`
	CompDir string   `json:"comp_dir"`
	Files   []string `json:"files"`
}

// Path returns the compile unit's primary source file as an absolute path.
func (cu CompileUnit) Path() string {
	if filepath.IsAbs(cu.Name) || cu.CompDir == "" {
		return filepath.Clean(cu.Name)
	}
	return filepath.Join(cu.CompDir, cu.Name)
}

// Table is everything extracted from one binary.
type Table struct {
	Symbols      []Symbol      `json:"symbols"`
	Markers      []Marker      `json:"markers"`
	CompileUnits []CompileUnit `json:"compile_units"`
}

// Lookup returns the first symbol with the given name.
func (t *Table) Lookup(name string) (Symbol, bool) {
	for _, s := range t.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// MarkerFiles returns the distinct files that contain markers, sorted.
func (t *Table) MarkerFiles() []string {
	seen := make(map[string]struct{})
	var files []string
	for _, m := range t.Markers {
		if _, ok := seen[m.File]; ok {
			continue
		}
		seen[m.File] = struct{}{}
		files = append(files, m.File)
	}
	sort.Strings(files)
	return files
}

// lineRow is a single row from a DWARF line program.
type lineRow struct {
	file   string
	line   int
	column int
}

// resolveMarkers correlates marker symbols with line-program rows keyed
// by address and rejects markers that share a location.
func resolveMarkers(syms []Symbol, rows map[uint64]lineRow) ([]Marker, error) {
	type location struct {
		file         string
		line, column int
	}
	seen := make(map[location]string)

	var markers []Marker
	for _, s := range syms {
		if !s.IsMarker() {
			continue
		}
		row, ok := rows[s.Address]
		if !ok {
			return nil, fmt.Errorf("%w: %s at 0x%x", ErrNoLocation, s.Name, s.Address)
		}
		loc := location{file: row.file, line: row.line, column: row.column}
		if prev, dup := seen[loc]; dup {
			return nil, fmt.Errorf("%w: %s and %s at %s(%d:%d)",
				ErrDuplicateMarker, prev, s.Name, row.file, row.line, row.column)
		}
		seen[loc] = s.Name
		markers = append(markers, Marker{Symbol: s, File: row.file, Line: row.line, Column: row.column})
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].Address < markers[j].Address })
	return markers, nil
}
