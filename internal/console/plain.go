package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/muesli/cancelreader"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Frontend is a Display that also reads operator input.
type Frontend interface {
	Display
	// Run reads operator lines into lines until the input ends or ctx is
	// cancelled, then closes lines.
	Run(ctx context.Context, lines chan<- string) error
}

// Plain is a line-oriented front-end for ordinary terminals and pipes. On a
// terminal it clears the prompt line before each status line and redraws the
// prompt afterwards.
//
// The terminal stays in cooked mode, so text the operator has half typed is
// not redrawn after a status line; it is still in the line buffer and Enter
// sends it. The TUI front-end keeps the edit line intact.
type Plain struct {
	in     io.Reader
	out    *termenv.Output
	prompt string
	tty    bool

	mu        sync.Mutex
	prompting bool
}

// NewPlain creates a plain front-end reading from in and writing to out
func NewPlain(in io.Reader, out io.Writer, prompt string) *Plain {
	var tty bool
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return newPlain(in, out, prompt, tty)
}

func newPlain(in io.Reader, out io.Writer, prompt string, tty bool, opts ...termenv.OutputOption) *Plain {
	return &Plain{
		in:     in,
		out:    termenv.NewOutput(out, opts...),
		prompt: prompt,
		tty:    tty,
	}
}

func (p *Plain) Info(text string) {
	p.line(p.out.String(text).Foreground(termenv.ANSIMagenta).String())
}

func (p *Plain) Success(text string) {
	p.line(p.out.String(text).Foreground(termenv.ANSIGreen).String())
}

func (p *Plain) Error(text string) {
	p.line(p.out.String(text).Foreground(termenv.ANSIRed).String())
}

func (p *Plain) Print(text string) {
	p.line(text)
}

func (p *Plain) line(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tty && p.prompting {
		// wipe the prompt, the line goes where it was
		_, _ = p.out.WriteString("\r")
		p.out.ClearLine()
	}
	_, _ = p.out.WriteString(text + "\n")
	if p.tty && p.prompting {
		p.writePrompt()
	}
}

func (p *Plain) showPrompt() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prompting = true
	if p.tty {
		p.writePrompt()
	}
}

func (p *Plain) hidePrompt() {
	p.mu.Lock()
	p.prompting = false
	p.mu.Unlock()
}

func (p *Plain) writePrompt() {
	_, _ = p.out.WriteString(p.out.String(p.prompt).Foreground(termenv.ANSIMagenta).String())
}

// Run implements Frontend. Cancelling ctx cancels a pending read where the
// platform allows it; otherwise the read is abandoned.
func (p *Plain) Run(ctx context.Context, lines chan<- string) error {
	defer close(lines)
	defer p.hidePrompt()

	reader, err := cancelreader.NewReader(p.in)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer reader.Close()
	defer reader.Cancel()

	stop := make(chan struct{})
	defer close(stop)

	scanned := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(scanned)
		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			select {
			case scanned <- scanner.Text():
			case <-stop:
				return
			}
		}
		errc <- scanner.Err()
	}()

	p.showPrompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-scanned:
			if !ok {
				select {
				case err := <-errc:
					if errors.Is(err, cancelreader.ErrCanceled) {
						return nil
					}
					return err
				default:
					return nil
				}
			}
			p.hidePrompt()
			select {
			case lines <- line:
			case <-ctx.Done():
				return nil
			}
			p.showPrompt()
		}
	}
}
