package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoadMessages reads the message list, one message per line. Empty lines are
// dropped; every other line is kept verbatim, surrounding spaces included.
func LoadMessages(path string) ([]string, error) {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ValidationError{File: name, Reason: fmt.Sprintf("failed to read file: %v", err)}
	}

	messages := ParseMessages(string(data))
	if len(messages) == 0 {
		return nil, &ValidationError{File: name, Reason: "you must specify at least one message"}
	}
	return messages, nil
}

// ParseMessages splits text on line breaks and drops empty lines.
func ParseMessages(text string) []string {
	var messages []string
	for _, line := range lineBreak.Split(text, -1) {
		if line != "" {
			messages = append(messages, line)
		}
	}
	return messages
}
