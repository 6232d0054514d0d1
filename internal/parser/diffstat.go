package parser

import (
	"adw/cli/internal/model"
)

// DiffStat is an authoritative change count, typically from the version
// control system after the agent finished.
type DiffStat struct {
	FilesChanged int `json:"files_changed"`
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
}

// ParseShortStat parses `git diff --shortstat` style output such as
// "3 files changed, 10 insertions(+), 2 deletions(-)". It reports false
// when no summary is present.
func ParseShortStat(s string) (DiffStat, bool) {
	sums := reSummary.FindAllStringSubmatch(s, -1)
	if len(sums) == 0 {
		return DiffStat{}, false
	}
	var st DiffStat
	for _, sm := range sums {
		st.FilesChanged += atoi(sm[1])
		st.LinesAdded += atoi(sm[2])
		st.LinesRemoved += atoi(sm[3])
	}
	return st, true
}

// Reconcile combines heuristic metrics with an authoritative diff stat.
// With a stat present its file and line counts replace the heuristic ones
// field by field; tool counts always come from the heuristic side.
func Reconcile(heuristic model.Metrics, authoritative *DiffStat) model.Metrics {
	if authoritative == nil {
		return heuristic
	}
	out := heuristic
	out.FilesChanged = authoritative.FilesChanged
	out.LinesAdded = authoritative.LinesAdded
	out.LinesRemoved = authoritative.LinesRemoved
	return out
}
