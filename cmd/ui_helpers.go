package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// spinnerFrames are the stick-style animation frames used by every spinner.
var spinnerFrames = []string{"|", "/", "-", "\\"}

// spinnerInterval is the delay between animation frames.
const spinnerInterval = 120 * time.Millisecond

// stdoutIsTerminal reports whether animations can be drawn on stdout.
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// startInlineSpinner starts a simple inline spinner animation on a single line.
// It displays rotating animation frames followed by the provided text, updating
// the same line in the terminal. The returned function stops the spinner and
// clears the line.
func startInlineSpinner(w io.Writer, text string) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				line := fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text)
				// Clear the spinner line completely, then return
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], text)
				i++
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
	}
}

// areaSpinner animates a status line inside a pterm area. The status text may
// be changed from any goroutine while the spinner runs.
type areaSpinner struct {
	mu     sync.Mutex
	status string
	frame  int

	area *pterm.AreaPrinter
	stop chan struct{}
	wg   sync.WaitGroup
}

// startAreaSpinner hides the cursor, opens an area and starts animating it.
// It returns nil when the area cannot be started.
func startAreaSpinner(status string) *areaSpinner {
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return nil
	}
	s := &areaSpinner{status: status, area: area, stop: make(chan struct{})}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(spinnerInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.mu.Lock()
				s.frame++
				line := fmt.Sprintf("%s %s", spinnerFrames[s.frame%len(spinnerFrames)], s.status)
				s.mu.Unlock()
				area.Update(line)
			case <-s.stop:
				return
			}
		}
	}()
	return s
}

// SetStatus replaces the text shown next to the spinner.
func (s *areaSpinner) SetStatus(status string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Stop ends the animation, removes the area and shows the cursor again.
// It is safe to call more than once.
func (s *areaSpinner) Stop() {
	if s == nil || s.area == nil {
		return
	}
	close(s.stop)
	s.wg.Wait()
	_ = s.area.Stop()
	s.area = nil
	cursor.Show()
}
