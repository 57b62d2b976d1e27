package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lox/autochat/internal/client"
	"github.com/lox/autochat/internal/config"
	"github.com/lox/autochat/internal/console"
)

var version = "dev"

var CLI struct {
	Dir      string           `short:"d" default:"${default_dir}" help:"Config folder holding settings.txt and messages.txt"`
	Username string           `short:"u" env:"AUTOCHAT_USERNAME" help:"Account email (prompted for when empty)"`
	Password string           `env:"AUTOCHAT_PASSWORD" help:"Account password (prompted for when empty)"`
	LogLevel string           `short:"l" long:"log-level" help:"Log level (overrides options.hcl)"`
	Plain    bool             `help:"Use the plain line console instead of the interactive one"`
	NoHold   bool             `long:"no-hold" help:"Exit without waiting for a key press"`
	Version  kong.VersionFlag `short:"v" help:"Print version and exit"`
}

func main() {
	defaultDir, err := config.DefaultDir()
	if err != nil {
		defaultDir = "AutoChat"
	}

	kctx := kong.Parse(&CLI,
		kong.Name("autochat"),
		kong.Description("Keeps a game account chatting on a schedule."),
		kong.UsageOnError(),
		kong.Vars{
			"version":     version,
			"default_dir": defaultDir,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, client.Config{
		Dir:      CLI.Dir,
		Username: CLI.Username,
		Password: CLI.Password,
		LogLevel: CLI.LogLevel,
		Plain:    CLI.Plain,
		Version:  version,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
	})
	stop()

	status := console.NewPlain(os.Stdin, os.Stdout, "")
	if err != nil && !errors.Is(err, client.ErrConfig) {
		status.Error("There was an unhandled error while running AutoChat. Please report this issue:")
		status.Error(err.Error())
	}

	status.Success("\n\nThanks for using AutoChat. Press any key to exit...")
	if !CLI.NoHold {
		_ = console.NewPrompter(os.Stdin, os.Stdout).WaitForKey("")
	}

	if err != nil {
		kctx.Exit(1)
	}
}

// run reports a panic as an error so the exit hold still happens.
func run(ctx context.Context, cfg client.Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return client.Run(ctx, cfg)
}
