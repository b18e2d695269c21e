package logging

import (
	"io"
	"log"
	"os"
)

func New() *log.Logger {
	return log.New(os.Stderr, "[whisper] ", log.LstdFlags)
}

// NewFile returns a logger appending to path. The TUI owns the terminal, so
// interactive sessions log to a file; an empty path discards everything.
func NewFile(path string) *log.Logger {
	if path == "" {
		return log.New(io.Discard, "", 0)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return log.New(io.Discard, "", 0)
	}
	return log.New(f, "[whisper] ", log.LstdFlags)
}
