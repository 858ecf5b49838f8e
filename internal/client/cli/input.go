package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// stdoutIsTerminal reports whether progress can be redrawn in place.
func stdoutIsTerminal() bool {
	return isTerminal(int(os.Stdout.Fd()))
}

// GetSimpleText prints a prompt to w and reads a single line from sc. The
// line is trimmed. ok is false when the input ended.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(sc *bufio.Scanner, prompt string, w io.Writer) (string, bool) {
	fmt.Fprint(w, prompt+"\n> ")
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// GetMultiline prints a prompt to w and reads lines until an empty line
// (the user presses Enter twice) or the end of input. Lines are joined with
// '\n'; surrounding whitespace of the whole text is trimmed.
func GetMultiline(sc *bufio.Scanner, prompt string, w io.Writer) string {
	fmt.Fprint(w, prompt+"\n(press Enter on an empty line to finish)\n")

	var lines []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			break
		}
		lines = append(lines, line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Confirm asks a yes/no question; anything but y or yes is a no.
func Confirm(sc *bufio.Scanner, prompt string, w io.Writer) bool {
	answer, ok := GetSimpleText(sc, prompt+" [y/N]", w)
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
