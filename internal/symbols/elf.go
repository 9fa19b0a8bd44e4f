package symbols

import (
	"debug/dwarf"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Read extracts the symbol table, compile units and markers from an ELF binary.
func Read(path string, logger zerolog.Logger) (*Table, error) {
	logger = logger.With().Str("component", "symbols").Str("binary", path).Logger()

	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("Failed to close ELF file")
		}
	}()

	table := &Table{}
	elfSyms, err := f.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, fmt.Errorf("failed to read symbol table: %w", err)
	}
	for _, s := range elfSyms {
		if s.Name == "" {
			continue
		}
		table.Symbols = append(table.Symbols, NewSymbol(s.Name, s.Value, symbolKind(s.Info)))
	}

	d, err := f.DWARF()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoDebugInfo, path, err)
	}

	units, rows, err := readLinePrograms(d)
	if err != nil {
		return nil, err
	}
	table.CompileUnits = units

	markers, err := resolveMarkers(table.Symbols, rows)
	if err != nil {
		return nil, err
	}
	table.Markers = markers

	logger.Debug().
		Int("symbols", len(table.Symbols)).
		Int("compile_units", len(units)).
		Int("markers", len(markers)).
		Msg("Read binary")
	return table, nil
}

func symbolKind(info byte) string {
	return elf.ST_TYPE(info).String()
}

// readLinePrograms walks every compile unit's line program. File names are
// resolved by the DWARF reader against the include directories and the
// unit's compilation directory.
func readLinePrograms(d *dwarf.Data) ([]CompileUnit, map[uint64]lineRow, error) {
	var units []CompileUnit
	rows := make(map[uint64]lineRow)

	r := d.Reader()
	for {
		entry, err := r.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read DWARF entry: %w", err)
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			r.SkipChildren()
			continue
		}

		cu := CompileUnit{}
		cu.Name, _ = entry.Val(dwarf.AttrName).(string)
		cu.CompDir, _ = entry.Val(dwarf.AttrCompDir).(string)

		lr, err := d.LineReader(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read line program for %s: %w", cu.Name, err)
		}
		r.SkipChildren()
		if lr == nil {
			units = append(units, cu)
			continue
		}

		for _, lf := range lr.Files() {
			if lf != nil {
				cu.Files = append(cu.Files, absFile(cu.CompDir, lf.Name))
			}
		}

		var le dwarf.LineEntry
		for {
			if err := lr.Next(&le); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, nil, fmt.Errorf("failed to read line entry in %s: %w", cu.Name, err)
			}
			if le.EndSequence || le.File == nil {
				continue
			}
			if _, exists := rows[le.Address]; exists {
				continue
			}
			rows[le.Address] = lineRow{
				file:   absFile(cu.CompDir, le.File.Name),
				line:   le.Line,
				column: le.Column,
			}
		}
		units = append(units, cu)
	}
	return units, rows, nil
}

func absFile(compDir, name string) string {
	if filepath.IsAbs(name) || compDir == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(compDir, name)
}
