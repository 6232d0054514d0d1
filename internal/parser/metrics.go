package parser

import (
	"regexp"
	"strconv"
	"strings"

	"adw/cli/internal/model"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// maxScan bounds how much of a single tool output is scanned.
const maxScan = 1 << 20

var (
	reGitHeader  = regexp.MustCompile(`(?m)^diff --git a/(\S+) b/(\S+)`)
	rePlusFile   = regexp.MustCompile(`(?m)^\+\+\+ (?:b/)?(\S+)`)
	rePatchFile  = regexp.MustCompile(`(?m)^\*\*\* (?:Add|Update|Delete) File: (.+)$`)
	reStatLine   = regexp.MustCompile(`(?m)^\s*(\S+)\s+\|\s+\d+\s*[+-]*\s*$`)
	reStatusLine = regexp.MustCompile(`(?m)^\s*(?:modified|new file|deleted):\s+(\S+)\s*$`)
	reVerbFile   = regexp.MustCompile("(?i)\\b(?:wrote|created|updated|edited|modified)\\s+(?:file\\s+)?[`'\"]?([\\w./-]+\\.\\w+)")
	reSummary    = regexp.MustCompile(`(\d+) files? changed(?:, (\d+) insertions?\(\+\))?(?:, (\d+) deletions?\(-\))?`)
	rePlusMinus  = regexp.MustCompile(`(?:^|[\s(\[])\+(\d+)\s*/?\s*-(\d+)(?:\s|$|[,.;)\]])`)
	reHunk       = regexp.MustCompile(`(?m)^@@ `)
)

// editTools are the tools whose input alone describes a file change.
var editTools = map[string]bool{
	"edit":      true,
	"write":     true,
	"multiedit": true,
	"patch":     true,
}

// estimate accumulates evidence across parts.
type estimate struct {
	files        map[string]struct{}
	summaryFiles int
	added        int
	removed      int
}

func (e *estimate) addFile(p string) {
	p = strings.Trim(strings.TrimSpace(p), "`'\"")
	if p == "" || p == "/dev/null" {
		return
	}
	e.files[p] = struct{}{}
}

// EstimateMetrics derives change metrics from a reply.
//
// Files come from edit-tool inputs and from file-path patterns in tool
// outputs (diff headers, diff stats, git status lines, "wrote <file>").
// Line counts come from edit-tool inputs, "N files changed" summaries,
// "+N/-N" markers and unified diff bodies. When no file is recognized,
// fallbackCount (typically from an external diff) is used as FilesChanged.
//
// EstimateMetrics never panics; anything unexpected yields zero Metrics.
func EstimateMetrics(parts []model.Part, fallbackCount int) (m model.Metrics) {
	defer func() {
		if recover() != nil {
			m = model.Metrics{UniqueTools: []string{}}
		}
	}()

	act := ExtractToolActivity(parts)
	est := &estimate{files: map[string]struct{}{}}
	for _, p := range parts {
		switch p.Type {
		case model.PartToolUse:
			if editTools[strings.ToLower(p.Tool)] {
				est.scanEditInput(strings.ToLower(p.Tool), p.Input)
			}
		case model.PartToolResult:
			est.scanOutput(p.Output)
		}
	}

	m = model.Metrics{
		FilesChanged:        len(est.files),
		LinesAdded:          est.added,
		LinesRemoved:        est.removed,
		ToolInvocationCount: act.InvocationCount,
		UniqueTools:         act.UniqueTools,
	}
	if est.summaryFiles > m.FilesChanged {
		m.FilesChanged = est.summaryFiles
	}
	if m.FilesChanged == 0 && fallbackCount > 0 {
		m.FilesChanged = fallbackCount
	}
	return m
}

func (e *estimate) scanEditInput(tool string, in map[string]any) {
	path := firstString(in, "filePath", "file_path", "path")
	switch tool {
	case "edit":
		if path == "" {
			return
		}
		e.addFile(path)
		a, r := lineDelta(firstString(in, "oldString", "old_string"), firstString(in, "newString", "new_string"))
		e.added += a
		e.removed += r
	case "write":
		if path == "" {
			return
		}
		e.addFile(path)
		e.added += countLines(firstString(in, "content"))
	case "multiedit":
		if path == "" {
			return
		}
		e.addFile(path)
		edits, _ := in["edits"].([]any)
		for _, raw := range edits {
			ed, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			a, r := lineDelta(firstString(ed, "oldString", "old_string"), firstString(ed, "newString", "new_string"))
			e.added += a
			e.removed += r
		}
	case "patch":
		text := firstString(in, "patchText", "patch", "diff")
		files, a, r := scanDiffBody(text)
		for _, f := range files {
			e.addFile(f)
		}
		e.added += a
		e.removed += r
	}
}

// scanOutput reads one tool result. A "files changed" summary is trusted
// over line markers in the same output, and markers over a raw diff body.
func (e *estimate) scanOutput(out string) {
	if len(out) > maxScan {
		out = out[:maxScan]
	}
	for _, re := range []*regexp.Regexp{rePlusFile, rePatchFile, reStatLine, reStatusLine, reVerbFile} {
		for _, sm := range re.FindAllStringSubmatch(out, -1) {
			e.addFile(sm[1])
		}
	}
	for _, sm := range reGitHeader.FindAllStringSubmatch(out, -1) {
		e.addFile(sm[2])
	}

	if sums := reSummary.FindAllStringSubmatch(out, -1); len(sums) > 0 {
		for _, sm := range sums {
			e.summaryFiles += atoi(sm[1])
			e.added += atoi(sm[2])
			e.removed += atoi(sm[3])
		}
		return
	}
	if isDiff(out) {
		_, a, r := scanDiffBody(out)
		e.added += a
		e.removed += r
		return
	}
	for _, sm := range rePlusMinus.FindAllStringSubmatch(out, -1) {
		e.added += atoi(sm[1])
		e.removed += atoi(sm[2])
	}
}

func isDiff(s string) bool {
	return reGitHeader.MatchString(s) || reHunk.MatchString(s) || rePatchFile.MatchString(s)
}

// scanDiffBody counts added and removed lines of a unified diff or an
// apply_patch envelope, and collects the files it names.
func scanDiffBody(s string) (files []string, added, removed int) {
	for _, sm := range rePlusFile.FindAllStringSubmatch(s, -1) {
		files = append(files, sm[1])
	}
	for _, sm := range rePatchFile.FindAllStringSubmatch(s, -1) {
		files = append(files, sm[1])
	}
	for _, line := range strings.Split(s, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return files, added, removed
}

// lineDelta counts inserted and deleted lines between two texts.
func lineDelta(before, after string) (added, removed int) {
	if before == after {
		return 0, 0
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += countLines(d.Text)
		}
	}
	return added, removed
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

func firstString(in map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := in[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
