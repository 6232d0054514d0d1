// Package terminal holds console helpers for interactive commands: reading
// secrets without echo and erasing prompts once they have been answered.
package terminal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const fallbackWidth = 80

// ClearPreviousLines erases the rows occupied by textLength characters of
// prompt and input, plus the empty row Enter left the cursor on, so the
// answer does not stay on screen.
func ClearPreviousLines(textLength int) {
	clearLines(os.Stdout, rowsFor(textLength, width()))
}

func width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return fallbackWidth
}

// rowsFor returns the rows n characters wrap onto at width w, counting the
// row below the input.
func rowsFor(n, w int) int {
	if w <= 0 {
		w = fallbackWidth
	}
	rows := (n + w - 1) / w
	if rows < 1 {
		rows = 1
	}
	return rows + 1
}

// clearLines clears n rows upwards, finishing at the start of the top one.
func clearLines(w io.Writer, n int) {
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < n-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}
