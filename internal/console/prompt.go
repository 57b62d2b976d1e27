package console

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ErrNoInput is returned when the input ends before an answer is read.
var ErrNoInput = errors.New("no input")

// Prompter asks the operator questions before a front-end owns the terminal.
// It reads one byte at a time so nothing meant for the front-end is buffered
// away.
type Prompter struct {
	in  io.Reader
	out *termenv.Output
	fd  int
	tty bool
}

// NewPrompter creates a prompter on in and out
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: in, out: termenv.NewOutput(out), fd: -1}
	if f, ok := in.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// interactive reports whether the input is a terminal.
func (p *Prompter) interactive() bool {
	return p.tty
}

// Line prints prompt and reads one line of input
func (p *Prompter) Line(prompt string) (string, error) {
	p.ask(prompt)
	return p.readLine()
}

// Secret prints prompt and reads one line without echoing it.
func (p *Prompter) Secret(prompt string) (string, error) {
	p.ask(prompt)
	if !p.interactive() {
		return p.readLine()
	}

	secret, err := term.ReadPassword(p.fd)
	_, _ = p.out.WriteString("\n")
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return string(secret), nil
}

// WaitForKey prints prompt, if any, and waits for a single key press
func (p *Prompter) WaitForKey(prompt string) error {
	if prompt != "" {
		_, _ = p.out.WriteString(prompt + "\n")
	}
	if !p.interactive() {
		// nobody to press a key
		return nil
	}

	state, err := term.MakeRaw(p.fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() { _ = term.Restore(p.fd, state) }()

	var key [1]byte
	_, err = p.in.Read(key[:])
	return err
}

func (p *Prompter) ask(prompt string) {
	_, _ = p.out.WriteString(p.out.String(prompt).Foreground(termenv.ANSIMagenta).String() + " ")
}

func (p *Prompter) readLine() (string, error) {
	var b strings.Builder
	var buf [1]byte
	for {
		n, err := p.in.Read(buf[:])
		if n == 1 {
			if buf[0] == '\n' {
				return strings.TrimSuffix(b.String(), "\r"), nil
			}
			b.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			if b.Len() == 0 {
				return "", ErrNoInput
			}
			return strings.TrimSuffix(b.String(), "\r"), nil
		}
		if err != nil {
			return "", err
		}
	}
}
