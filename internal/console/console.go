// Package console is the operator side of the chat bot. It owns the
// categorized status output, the persistent input prompt and the dot-command
// dispatcher that turns operator lines into session actions.
package console

import (
	"fmt"
	"strings"
)

// CommandPrefix marks a console line as a command rather than chat.
const CommandPrefix = "."

const helpText = `
AutoChat Help:
The prefix is "."

.help - Display this message
.quit - Leave the server
.messages - See how many messages you have sent so far
`

// Display shows status lines to the operator. Implementations print the line
// above the input prompt and leave the prompt visible when a line arrives
// asynchronously.
type Display interface {
	// Info prints an informational line (magenta).
	Info(text string)
	// Success prints a success line (green).
	Success(text string)
	// Error prints an error line (red).
	Error(text string)
	// Print prints text as is, for chat lines that carry their own colors.
	Print(text string)
}

// Handler receives the actions the operator asks for.
type Handler interface {
	// Chat sends text as a chat message.
	Chat(text string)
	// Quit ends the session.
	Quit()
	// Progress reports how many configured messages were confirmed sent and
	// the threshold that ends the run (-1 for none).
	Progress() (sent, threshold int)
}

// Console dispatches operator lines
type Console struct {
	display Display
	handler Handler
}

// New creates a console that prints to display and acts through handler
func New(display Display, handler Handler) *Console {
	return &Console{display: display, handler: handler}
}

// Handle processes one line of operator input
func (c *Console) Handle(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	if !strings.HasPrefix(trimmed, CommandPrefix) {
		c.handler.Chat(line)
		return
	}

	var command string
	if fields := strings.Fields(trimmed[len(CommandPrefix):]); len(fields) > 0 {
		command = fields[0]
	}

	switch command {
	case "help":
		c.display.Success(helpText)
	case "quit":
		c.display.Success("Quitting...")
		c.handler.Quit()
	case "messages":
		c.display.Success(progressText(c.handler.Progress()))
	default:
		c.display.Success(fmt.Sprintf("Unknown command: %q", command))
	}
}

func progressText(sent, threshold int) string {
	if threshold < 0 {
		return fmt.Sprintf("You have sent %d %s so far.", sent, plural(sent, "message"))
	}
	return fmt.Sprintf("You have sent %d of %d %s so far.", sent, threshold, plural(threshold, "message"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
