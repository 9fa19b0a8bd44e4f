// Package serialinfo correlates instrumentation markers with the macro
// expansions that emitted them and persists the result as a JSON bundle.
package serialinfo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/metal-test/metal/internal/constants"
	"github.com/metal-test/metal/internal/preprocessor"
	"github.com/metal-test/metal/internal/symbols"
)

var (
	// ErrMissingExpansion is returned when a marker has no macro expansion on its line.
	ErrMissingExpansion = errors.New("serialinfo: no macro expansion for marker")
	// ErrAmbiguousExpansion is returned when several expansions share a marker's line.
	ErrAmbiguousExpansion = errors.New("serialinfo: ambiguous macro expansion for marker")
	// ErrNoWriteSymbol is returned when the binary lacks the write entry symbol.
	ErrNoWriteSymbol = errors.New("serialinfo: write entry symbol not found")
)

// Info is the bundle the runtime host loads: symbols, the write entry,
// markers and every tracked expansion. Each marker location holds exactly
// one expansion.
type Info struct {
	Symbols     []symbols.Symbol              `json:"symbols"`
	WriteSymbol symbols.Symbol                `json:"metal_serial_write"`
	Markers     []symbols.Marker              `json:"markers"`
	Expansions  []preprocessor.MacroExpansion `json:"expansions"`

	markersByAddr map[uint64]int
	expansionsAt  map[location]int
	symbolsByName map[string]int
}

type location struct {
	file string
	line int
}

// New correlates the table's markers with exps, as returned by Merge, and
// builds an Info.
func New(table *symbols.Table, exps []preprocessor.MacroExpansion) (*Info, error) {
	write, ok := table.Lookup(constants.WriteSymbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoWriteSymbol, constants.WriteSymbol)
	}
	if _, err := Correlate(table.Markers, exps); err != nil {
		return nil, err
	}
	all := append([]preprocessor.MacroExpansion(nil), exps...)
	sortExpansions(all)

	info := &Info{
		Symbols:     append([]symbols.Symbol(nil), table.Symbols...),
		WriteSymbol: write,
		Markers:     append([]symbols.Marker(nil), table.Markers...),
		Expansions:  all,
	}
	sort.SliceStable(info.Symbols, func(i, j int) bool {
		if info.Symbols[i].Address != info.Symbols[j].Address {
			return info.Symbols[i].Address < info.Symbols[j].Address
		}
		return info.Symbols[i].Name < info.Symbols[j].Name
	})
	sort.Slice(info.Markers, func(i, j int) bool { return info.Markers[i].Address < info.Markers[j].Address })
	info.index()
	return info, nil
}

func (i *Info) index() {
	i.markersByAddr = make(map[uint64]int, len(i.Markers))
	for k, m := range i.Markers {
		i.markersByAddr[m.Address] = k
	}
	i.expansionsAt = make(map[location]int, len(i.Expansions))
	for k, e := range i.Expansions {
		loc := location{file: e.File, line: e.Line}
		if _, ok := i.expansionsAt[loc]; !ok {
			i.expansionsAt[loc] = k
		}
	}
	i.symbolsByName = make(map[string]int, len(i.Symbols))
	for k, s := range i.Symbols {
		if _, ok := i.symbolsByName[s.Name]; !ok {
			i.symbolsByName[s.Name] = k
		}
	}
}

// WriteAddress is the link-time address of the write entry point.
func (i *Info) WriteAddress() uint64 {
	return i.WriteSymbol.Address
}

// FindMarker returns the marker at a link-time address.
func (i *Info) FindMarker(addr uint64) (*symbols.Marker, bool) {
	k, ok := i.markersByAddr[addr]
	if !ok {
		return nil, false
	}
	return &i.Markers[k], true
}

// FindExpansion returns the expansion at the marker's source location.
func (i *Info) FindExpansion(m *symbols.Marker) (*preprocessor.MacroExpansion, bool) {
	k, ok := i.expansionsAt[location{file: m.File, line: m.Line}]
	if !ok {
		return nil, false
	}
	return &i.Expansions[k], true
}

// FindSymbol returns a symbol by name.
func (i *Info) FindSymbol(name string) (symbols.Symbol, bool) {
	k, ok := i.symbolsByName[name]
	if !ok {
		return symbols.Symbol{}, false
	}
	return i.Symbols[k], true
}
