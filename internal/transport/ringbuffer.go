package transport

import "strings"

// stderrRing keeps the last N lines of a subprocess's stderr so a terminal
// transport error can include a tail for diagnostics, without retaining
// unbounded process output in memory.
type stderrRing struct {
	lines []string
	cap   int
}

func newStderrRing(capacity int) *stderrRing {
	return &stderrRing{lines: make([]string, 0, capacity), cap: capacity}
}

func (r *stderrRing) add(line string) {
	if len(r.lines) >= r.cap {
		r.lines = r.lines[1:]
	}
	r.lines = append(r.lines, line)
}

func (r *stderrRing) tail() string {
	return strings.Join(r.lines, "\n")
}
