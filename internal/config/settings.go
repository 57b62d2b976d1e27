// Package config loads the files that drive a chat bot run: the key=value
// settings file, the message list, the optional HCL client options and the
// first-run config folder.
package config

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Unlimited is the sentinel accepted by message_count and reconnect_tries.
const Unlimited = -1

// DefaultPort is the game's well-known port. The settings summary omits it.
const DefaultPort = 25565

// File names inside the config folder.
const (
	SettingsFile = "settings.txt"
	MessagesFile = "messages.txt"
	OptionsFile  = "options.hcl"
	LogsDir      = "logs"
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// Credentials identify the bot's account
type Credentials struct {
	Username string
	Password string
}

// Settings is the validated configuration of a run. It is built as a unit by
// Load and never modified afterwards.
type Settings struct {
	Server  string
	Port    int
	Version string

	// Messages is sent cyclically, in order. Never empty.
	Messages     []string
	MessageDelay time.Duration
	// MessageCount is the completion threshold, or Unlimited.
	MessageCount int

	ReconnectDelay time.Duration
	// ReconnectTries bounds reconnect attempts, or is Unlimited.
	ReconnectTries int

	Credentials Credentials

	// Dir is the config folder; chat logs go to Dir/logs.
	Dir string
}

// ValidationError reports a malformed settings or messages file. Line is
// 1-based; zero means the problem is not tied to a single line.
type ValidationError struct {
	File   string
	Line   int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

// fields collects values while scanning; nil means the key was never set.
type fields struct {
	server, version              *string
	port, messageDelay           *int
	messageCount, reconnectDelay *int
	reconnectTries               *int
}

// Load reads settings.txt and messages.txt from dir
func Load(dir string) (*Settings, error) {
	f, err := os.Open(filepath.Join(dir, SettingsFile))
	if err != nil {
		return nil, &ValidationError{File: SettingsFile, Reason: fmt.Sprintf("failed to read file: %v", err)}
	}
	defer f.Close()

	settings, err := ParseSettings(f, SettingsFile)
	if err != nil {
		return nil, err
	}

	messages, err := LoadMessages(filepath.Join(dir, MessagesFile))
	if err != nil {
		return nil, err
	}
	settings.Messages = messages
	settings.Dir = dir
	return settings, nil
}

// ParseSettings parses key=value settings. name is used in diagnostics.
// The returned Settings has no messages, credentials or folder yet.
func ParseSettings(r io.Reader, name string) (*Settings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ValidationError{File: name, Reason: fmt.Sprintf("failed to read file: %v", err)}
	}

	var fs fields
	for i, raw := range lineBreak.Split(string(data), -1) {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lineNumber := i + 1

		idx := strings.Index(line, "=")
		if idx < 0 {
			return nil, &ValidationError{File: name, Line: lineNumber, Reason: "invalid settings syntax"}
		}
		key := strings.TrimRightFunc(line[:idx], unicode.IsSpace)
		value := strings.TrimLeftFunc(line[idx+1:], unicode.IsSpace)
		if value == "" {
			return nil, &ValidationError{File: name, Line: lineNumber, Reason: "invalid settings syntax"}
		}

		if err := fs.set(key, value); err != nil {
			return nil, &ValidationError{File: name, Line: lineNumber, Reason: err.Error()}
		}
	}

	return fs.build(name)
}

func (fs *fields) set(key, value string) error {
	switch key {
	case "server":
		fs.server = &value
	case "version":
		fs.version = &value
	case "port":
		n, err := parseInt(value, func(n int) bool { return n >= 0 && n <= 65535 })
		if err != nil {
			return fmt.Errorf("invalid port: %s", value)
		}
		fs.port = &n
	case "message_delay":
		n, err := parseInt(value, validDelay)
		if err != nil {
			return fmt.Errorf("invalid message delay: %s", value)
		}
		fs.messageDelay = &n
	case "message_count":
		n, err := parseInt(value, func(n int) bool { return n > 0 || n == Unlimited })
		if err != nil {
			return fmt.Errorf("invalid message count: %s", value)
		}
		fs.messageCount = &n
	case "reconnect_delay":
		n, err := parseInt(value, validDelay)
		if err != nil {
			return fmt.Errorf("invalid reconnect delay: %s", value)
		}
		fs.reconnectDelay = &n
	case "reconnect_tries":
		n, err := parseInt(value, func(n int) bool { return n >= 0 || n == Unlimited })
		if err != nil {
			return fmt.Errorf("invalid reconnect tries: %s", value)
		}
		fs.reconnectTries = &n
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func (fs *fields) build(name string) (*Settings, error) {
	if fs.server == nil || fs.port == nil || fs.version == nil {
		return nil, &ValidationError{File: name, Reason: "you must specify your server, port, and version"}
	}
	if fs.messageDelay == nil || fs.messageCount == nil {
		return nil, &ValidationError{File: name, Reason: "you must specify your message_delay and message_count"}
	}
	if fs.reconnectDelay == nil || fs.reconnectTries == nil {
		return nil, &ValidationError{File: name, Reason: "you must specify your reconnect_delay and reconnect_tries"}
	}

	return &Settings{
		Server:         *fs.server,
		Port:           *fs.port,
		Version:        *fs.version,
		MessageDelay:   time.Duration(*fs.messageDelay) * time.Millisecond,
		MessageCount:   *fs.messageCount,
		ReconnectDelay: time.Duration(*fs.reconnectDelay) * time.Millisecond,
		ReconnectTries: *fs.reconnectTries,
	}, nil
}

// maxSafeInteger keeps values exactly representable when they are echoed back
// to the operator or compared against counters.
const maxSafeInteger = 1<<53 - 1

func parseInt(value string, valid func(int) bool) (int, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	if n > maxSafeInteger || n < -maxSafeInteger || !valid(int(n)) {
		return 0, fmt.Errorf("out of range")
	}
	return int(n), nil
}

// validDelay accepts positive millisecond counts that fit in a time.Duration.
func validDelay(n int) bool {
	return n > 0 && int64(n) <= math.MaxInt64/int64(time.Millisecond)
}

// WithCredentials returns a copy of s carrying c
func (s *Settings) WithCredentials(c Credentials) *Settings {
	out := *s
	out.Messages = append([]string(nil), s.Messages...)
	out.Credentials = c
	return &out
}

// Summary describes the settings in the words shown to the operator.
func (s *Settings) Summary() string {
	var b strings.Builder
	b.WriteString("Using these settings:\n")

	addr := s.Server
	if s.Port != DefaultPort {
		addr += ":" + strconv.Itoa(s.Port)
	}
	fmt.Fprintf(&b, "On server %s with version %s.\n", addr, s.Version)
	fmt.Fprintf(&b, "Will send %s with a delay of %dms.\n",
		countOf(s.MessageCount, "message"), s.MessageDelay.Milliseconds())
	fmt.Fprintf(&b, "Will attempt to reconnect %s with a delay of %dms.",
		countOf(s.ReconnectTries, "time"), s.ReconnectDelay.Milliseconds())
	return b.String()
}

func countOf(n int, noun string) string {
	if n == Unlimited {
		return "unlimited " + noun + "s"
	}
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
