package interactionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSink writes one JSON file per entry under
// <root>/<adw_id>/<agent_name>/<timestamp>-<id>.json. Names are unique by
// construction, so concurrent writers never collide and no locking is needed.
type FileSink struct {
	root string
}

// NewFileSink creates a sink rooted at dir.
func NewFileSink(dir string) *FileSink { return &FileSink{root: dir} }

func (s *FileSink) Name() string { return "file" }

// Path returns where e is written.
func (s *FileSink) Path(e Entry) string {
	op := safeSegment(e.Context.ADWID, "adhoc")
	agent := safeSegment(e.Context.AgentName, "agent")
	name := fmt.Sprintf("%s-%s.json", e.Timestamp.UTC().Format("20060102T150405.000Z"), e.ID)
	return filepath.Join(s.root, op, agent, name)
}

func (s *FileSink) Write(_ context.Context, e Entry) error {
	p := s.Path(e)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// safeSegment keeps a caller-supplied name inside its directory.
func safeSegment(s, fallback string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return fallback
	}
	return s
}
