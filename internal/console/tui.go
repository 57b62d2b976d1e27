package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const pendingLines = 64

// TUI is the interactive front-end: a bubbletea program whose only view is
// the editable prompt. Status lines are printed above it with Println, so they
// never disturb what the operator is typing.
type TUI struct {
	program *tea.Program
	out     io.Writer
	pending chan string
	exited  atomic.Bool
	mu      sync.Mutex // guards writes to out after the program exits
}

// NewTUI creates an interactive front-end on in and out.
func NewTUI(in io.Reader, out io.Writer, prompt string) *TUI {
	t := &TUI{
		out:     out,
		pending: make(chan string, pendingLines),
	}
	t.program = tea.NewProgram(newPromptModel(prompt, t.pending),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	return t
}

func (t *TUI) Info(text string)    { t.println(InfoStyle.Render(text)) }
func (t *TUI) Success(text string) { t.println(SuccessStyle.Render(text)) }
func (t *TUI) Error(text string)   { t.println(ErrorStyle.Render(text)) }
func (t *TUI) Print(text string)   { t.println(text) }

// println hands the line to the running program, or writes it directly once
// the program has exited.
func (t *TUI) println(text string) {
	if !t.exited.Load() {
		t.program.Println(text)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintln(t.out, text)
}

// Run implements Frontend. Cancelling ctx quits the program after the lines
// already printed have been flushed.
func (t *TUI) Run(ctx context.Context, lines chan<- string) error {
	defer close(lines)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			t.program.Quit()
		case <-done:
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case line := <-t.pending:
				select {
				case lines <- line:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	_, err := t.program.Run()
	t.exited.Store(true)
	close(done)
	wg.Wait()

	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

type promptModel struct {
	input   textinput.Model
	pending chan<- string
}

func newPromptModel(prompt string, pending chan<- string) promptModel {
	input := textinput.New()
	input.Prompt = prompt
	input.PromptStyle = PromptStyle
	input.CharLimit = 256
	input.Focus()
	return promptModel{input: input, pending: pending}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			echo := tea.Println(m.input.PromptStyle.Render(m.input.Prompt) + line)
			select {
			case m.pending <- line:
				return m, echo
			default:
				return m, tea.Sequence(echo, tea.Println(ErrorStyle.Render("Input is busy, line dropped.")))
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	return m.input.View()
}
