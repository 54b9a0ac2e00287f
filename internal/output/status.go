// Package output writes status lines for the bar host.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// StatusWriter writes one {"text": ...} object per line and flushes after
// each one so the host sees updates immediately.
type StatusWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewStatusWriter creates a writer on w
func NewStatusWriter(w io.Writer) *StatusWriter {
	return &StatusWriter{w: bufio.NewWriter(w)}
}

// NewStdoutWriter creates a writer on the process's standard output
func NewStdoutWriter() *StatusWriter {
	return NewStatusWriter(os.Stdout)
}

// Emit writes text verbatim inside the envelope. Callers are responsible for
// escaping; see display.Escape.
func (s *StatusWriter) Emit(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.WriteString(`{"text":"`); err != nil {
		return fmt.Errorf("failed to write status line: %w", err)
	}
	if _, err := s.w.WriteString(text); err != nil {
		return fmt.Errorf("failed to write status line: %w", err)
	}
	if _, err := s.w.WriteString("\"}\n"); err != nil {
		return fmt.Errorf("failed to write status line: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush status line: %w", err)
	}
	return nil
}
