package cli

import (
	"io"
	"sync"
)

const clearLine = "\r\033[K"

// syncWriter serialises the REPL output with notices printed from
// controller goroutines. On a terminal it keeps one progress line that is
// redrawn in place and erased before any other output.
type syncWriter struct {
	mu       sync.Mutex
	w        io.Writer
	inPlace  bool
	progress bool
}

func newSyncWriter(w io.Writer, inPlace bool) *syncWriter {
	return &syncWriter{w: w, inPlace: inPlace}
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eraseLocked()
	return s.w.Write(p)
}

// Notice prints msg on a line of its own.
func (s *syncWriter) Notice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eraseLocked()
	if s.inPlace {
		io.WriteString(s.w, "\n")
	}
	io.WriteString(s.w, msg+"\n")
}

// Progress replaces the progress line; an empty line removes it. Without a
// terminal progress is not shown.
func (s *syncWriter) Progress(line string) {
	if !s.inPlace {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.eraseLocked()
	if line == "" {
		return
	}
	io.WriteString(s.w, line)
	s.progress = true
}

func (s *syncWriter) eraseLocked() {
	if s.progress {
		io.WriteString(s.w, clearLine)
		s.progress = false
	}
}
