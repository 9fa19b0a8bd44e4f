package serialinfo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/metal-test/metal/internal/preprocessor"
	"github.com/metal-test/metal/internal/symbols"
)

// Merge combines the expansions recorded for each compile unit. A header
// seen by several units yields the same records in each of them; such a
// record is kept as many times as the unit recording it most often, so
// repeated invocations on one line stay distinct. The result is ordered
// by file, line and content.
func Merge(units ...[]preprocessor.MacroExpansion) []preprocessor.MacroExpansion {
	kept := make(map[string]int)
	var out []preprocessor.MacroExpansion
	for _, exps := range units {
		local := make(map[string]int)
		for _, e := range exps {
			key := expansionKey(e)
			local[key]++
			if local[key] > kept[key] {
				kept[key] = local[key]
				out = append(out, e)
			}
		}
	}
	sortExpansions(out)
	return out
}

// Correlate matches every marker with exactly one expansion at the same
// file and line. The matched expansions are returned ordered by file and
// line.
func Correlate(markers []symbols.Marker, exps []preprocessor.MacroExpansion) ([]preprocessor.MacroExpansion, error) {
	byLocation := make(map[location][]preprocessor.MacroExpansion)
	for _, e := range exps {
		loc := location{file: e.File, line: e.Line}
		byLocation[loc] = append(byLocation[loc], e)
	}

	used := make(map[location]struct{})
	var matched []preprocessor.MacroExpansion
	for _, m := range markers {
		loc := location{file: m.File, line: m.Line}
		candidates := byLocation[loc]
		switch len(candidates) {
		case 0:
			return nil, fmt.Errorf("%s(%d): %w %s", m.File, m.Line, ErrMissingExpansion, m.Name)
		case 1:
		default:
			names := make([]string, 0, len(candidates))
			for _, c := range candidates {
				names = append(names, c.Name)
			}
			return nil, fmt.Errorf("%s(%d): %w %s: %s", m.File, m.Line, ErrAmbiguousExpansion, m.Name, strings.Join(names, ", "))
		}
		if _, ok := used[loc]; ok {
			continue
		}
		used[loc] = struct{}{}
		matched = append(matched, candidates[0])
	}

	sortExpansions(matched)
	return matched, nil
}

func sortExpansions(exps []preprocessor.MacroExpansion) {
	sort.SliceStable(exps, func(i, j int) bool {
		if exps[i].File != exps[j].File {
			return exps[i].File < exps[j].File
		}
		if exps[i].Line != exps[j].Line {
			return exps[i].Line < exps[j].Line
		}
		return expansionKey(exps[i]) < expansionKey(exps[j])
	})
}

func expansionKey(e preprocessor.MacroExpansion) string {
	return fmt.Sprintf("%s\x00%s\x00%d\x00%s", e.Name, e.File, e.Line, strings.Join(e.Args, "\x00"))
}
