package chunk

import (
	"iter"
	"strings"
)

// Split partitions text into transport-sized chunks, preferring line
// boundaries and falling back to sentence boundaries for lines that
// individually exceed max. Chunks are trimmed, never empty, and returned
// lazily in original order. A single atomic unit longer than max is
// emitted as its own oversized chunk.
func Split(text string, max int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" || max <= 0 {
			return
		}
		units := splitUnits(text, max)
		i := 0
		for i < len(units) {
			cur := units[i]
			j := i + 1
			for j < len(units) && len(cur)+len(units[j]) < max {
				cur += units[j]
				j++
			}
			if out := strings.TrimSpace(cur); out != "" {
				if !yield(out) {
					return
				}
			}
			i = j
		}
	}
}

// Chunks collects Split output into a slice.
func Chunks(text string, max int) []string {
	var out []string
	for c := range Split(text, max) {
		out = append(out, c)
	}
	return out
}

// splitUnits breaks text into atomic units: whole lines with their newline
// restored, or sentence fragments for lines longer than max. The final
// fragment of an overlong line keeps no trailing period, matching the
// original text.
func splitUnits(text string, max int) []string {
	var units []string
	for _, line := range strings.Split(text, "\n") {
		if len(line) <= max {
			units = append(units, line+"\n")
			continue
		}
		sentences := strings.Split(line, ".")
		for k, s := range sentences {
			if k == len(sentences)-1 {
				units = append(units, s)
			} else {
				units = append(units, s+".")
			}
		}
	}
	return units
}
