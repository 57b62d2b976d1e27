package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lox/autochat/internal/fileutil"
)

//go:embed templates
var templates embed.FS

// SetupResult describes what Setup did to the config folder.
type SetupResult struct {
	// Created is true when the folder did not exist before.
	Created bool
	// Problems lists the pieces that could not be created. None of them stop
	// the run; loading the settings reports what is actually missing.
	Problems []error
}

// DefaultDir returns the config folder used when none is given.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, "Documents", "AutoChat"), nil
}

// Setup prepares dir on first use: it creates the folder, its logs folder and
// template settings, messages and options files. An existing folder is left
// alone.
func Setup(dir string) (SetupResult, error) {
	var result SetupResult

	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return result, fmt.Errorf("failed to create %s: %w", filepath.Dir(dir), err)
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return result, nil
		}
		return result, fmt.Errorf("failed to create config folder: %w", err)
	}
	result.Created = true

	if err := os.Mkdir(filepath.Join(dir, LogsDir), 0755); err != nil {
		result.Problems = append(result.Problems, fmt.Errorf("failed to create the %s folder: %w", LogsDir, err))
	}

	for _, name := range []string{SettingsFile, MessagesFile, OptionsFile} {
		data, err := templates.ReadFile("templates/" + name)
		if err == nil {
			err = fileutil.WriteNew(filepath.Join(dir, name), data, 0644)
		}
		if err != nil {
			result.Problems = append(result.Problems, fmt.Errorf("failed to create the %s file: %w", name, err))
		}
	}

	return result, nil
}
