package chunk

import "strings"

// Assembler accumulates streaming text fragments and emits completed
// chunks at line granularity as soon as enough input has arrived. It
// applies the same packing rules as Split, so a streamed text produces
// the same chunk sizes as the blocking path.
type Assembler struct {
	max     int
	partial strings.Builder
	cur     string
}

// NewAssembler returns an Assembler producing chunks no longer than max,
// except for single atomic units that exceed max on their own.
func NewAssembler(max int) *Assembler {
	if max <= 0 {
		max = 4096
	}
	return &Assembler{max: max}
}

// Push appends a stream fragment and returns any chunks completed by it.
// Incomplete trailing lines are buffered until a newline or Flush.
func (a *Assembler) Push(fragment string) []string {
	if fragment == "" {
		return nil
	}
	a.partial.WriteString(fragment)
	buffered := a.partial.String()
	idx := strings.LastIndexByte(buffered, '\n')
	if idx < 0 {
		return nil
	}
	complete, rest := buffered[:idx], buffered[idx+1:]
	a.partial.Reset()
	a.partial.WriteString(rest)
	return a.pack(complete)
}

// Flush drains buffered input and the pending chunk.
func (a *Assembler) Flush() []string {
	var out []string
	if rest := a.partial.String(); rest != "" {
		a.partial.Reset()
		out = a.pack(rest)
	}
	if trimmed := strings.TrimSpace(a.cur); trimmed != "" {
		out = append(out, trimmed)
	}
	a.cur = ""
	return out
}

func (a *Assembler) pack(text string) []string {
	var out []string
	for _, unit := range splitUnits(text, a.max) {
		if a.cur != "" && len(a.cur)+len(unit) >= a.max {
			if trimmed := strings.TrimSpace(a.cur); trimmed != "" {
				out = append(out, trimmed)
			}
			a.cur = ""
		}
		a.cur += unit
	}
	return out
}
