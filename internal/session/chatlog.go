package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coder/quartz"
)

// ErrNotOpen is returned by ChatLog.Close when the log was never opened.
var ErrNotOpen = errors.New("chat log not open")

// ChatLog appends player chat to a per-account, per-hour text file.
type ChatLog struct {
	dir    string
	prefix string
	clock  quartz.Clock

	file *os.File
	path string
}

// NewChatLog creates a chat log that will live in dir
func NewChatLog(dir, prefix string, clock quartz.Clock) *ChatLog {
	return &ChatLog{dir: dir, prefix: prefix, clock: clock}
}

// Open opens <prefix>-<account>-<YYYY-MM-DD-HH>.txt for appending. Only the
// first call opens a file; later calls return nil.
func (l *ChatLog) Open(account string) error {
	if l.isOpen() {
		return nil
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create log folder: %w", err)
	}

	name := fmt.Sprintf("%s-%s-%s.txt", l.prefix, account, l.clock.Now().Format("2006-01-02-15"))
	path := filepath.Join(l.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open chat log: %w", err)
	}

	l.file = file
	l.path = path
	return nil
}

// isOpen reports whether Open succeeded.
func (l *ChatLog) isOpen() bool {
	return l.file != nil
}

// Path returns the file being written, or "" before Open
func (l *ChatLog) Path() string {
	return l.path
}

// Write appends "[HH:MM:SS] <user> message". Lines are dropped while the log
// is not open.
func (l *ChatLog) Write(user, message string) error {
	if !l.isOpen() {
		return nil
	}
	_, err := fmt.Fprintf(l.file, "[%s] <%s> %s\n", l.clock.Now().Format("15:04:05"), user, message)
	return err
}

// Close closes the file. It returns ErrNotOpen if Open never succeeded.
func (l *ChatLog) Close() error {
	if !l.isOpen() {
		return ErrNotOpen
	}
	err := l.file.Close()
	l.file = nil
	return err
}
