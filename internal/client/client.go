// Package client wires one AutoChat run together: first-run setup, settings,
// credentials, the diagnostic log, the console front-end and the session.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/coder/quartz"
	"github.com/lox/autochat/internal/config"
	"github.com/lox/autochat/internal/console"
	"github.com/lox/autochat/internal/gateway"
	"github.com/lox/autochat/internal/session"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// ErrConfig is returned when the run could not start because of the config
// folder. The problem has already been shown to the operator.
var ErrConfig = errors.New("invalid configuration")

const banner = `    _         _         ____ _           _
   / \  _   _| |_ ___  / ___| |__   __ _| |_
  / _ \| | | | __/ _ \| |   | '_ \ / _' | __|
 / ___ \ |_| | || (_) | |___| | | | (_| | |_
/_/   \_\__,_|\__\___/ \____|_| |_|\__,_|\__|`

// Config is everything a run needs from the command line.
type Config struct {
	Dir      string
	Username string
	Password string
	// LogLevel overrides the options file when set.
	LogLevel string
	// Plain forces the line-oriented front-end.
	Plain   bool
	Version string

	Stdin  *os.File
	Stdout *os.File

	// Dialer and Clock replace the websocket gateway and the real clock.
	Dialer gateway.Dialer
	Clock  quartz.Clock
}

// Run performs one run and returns when the session has ended
func Run(ctx context.Context, cfg Config) error {
	status := console.NewPlain(cfg.Stdin, cfg.Stdout, "")
	prompter := console.NewPrompter(cfg.Stdin, cfg.Stdout)

	status.Info("\n" + banner + "\n")
	status.Info(fmt.Sprintf("AutoChat %s\n", cfg.Version))

	// Create the config folder on first use
	if err := firstRun(cfg.Dir, status, prompter); err != nil {
		return err
	}

	// Load options before settings so the log file exists for settings errors
	opts, err := config.LoadOptions(filepath.Join(cfg.Dir, config.OptionsFile))
	if err == nil {
		applyOverrides(opts, cfg)
		err = opts.Validate()
	}
	if err != nil {
		status.Error(fmt.Sprintf("Problem in the %s file: %v", config.OptionsFile, err))
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	logPath := opts.LogFile
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(cfg.Dir, logPath)
	}
	logger, closeLog, err := openLogFile(logPath, opts.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info("Starting AutoChat", "version", cfg.Version, "dir", cfg.Dir)

	settings, err := config.Load(cfg.Dir)
	if err != nil {
		logger.Error("Failed to load settings", "error", err)
		status.Error(describeConfigError(err))
		status.Info(fmt.Sprintf("Your config folder is at %s.", cfg.Dir))
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	status.Success(settings.Summary() + "\n")

	// Ask for whatever the flags did not provide
	creds, err := credentials(cfg, prompter)
	if err != nil {
		return err
	}
	settings = settings.WithCredentials(creds)

	dialer := cfg.Dialer
	if dialer == nil {
		ws := gateway.NewWSDialer(logger)
		ws.Path = opts.Gateway.Path
		ws.TLS = opts.Gateway.TLS
		ws.HandshakeTimeout = opts.HandshakeTimeout()
		dialer = ws
	}

	// Set up the front-end and session
	front := newFrontend(cfg, opts)
	lines := make(chan string)
	ctrl := session.New(session.Options{
		Settings:      *settings,
		Dialer:        dialer,
		Display:       front,
		Input:         lines,
		ChatLogDir:    filepath.Join(cfg.Dir, config.LogsDir),
		ChatLogPrefix: opts.ChatLogPrefix,
		Clock:         cfg.Clock,
		Logger:        logger,
	})

	// The session ending stops the console; the console ending closes lines, which quits the session
	g, gctx := errgroup.WithContext(ctx)
	frontCtx, stopFront := context.WithCancel(gctx)
	defer stopFront()

	g.Go(recovered("session", func() error {
		defer stopFront()
		return ctrl.Run(gctx)
	}))
	g.Go(recovered("console", func() error {
		if err := front.Run(frontCtx, lines); err != nil {
			return fmt.Errorf("console failed: %w", err)
		}
		return nil
	}))

	if err := g.Wait(); err != nil {
		logger.Error("Run failed", "reason", ctrl.Reason(), "attempts", ctrl.Attempts(), "error", err)
		return err
	}
	logger.Info("Run finished", "reason", ctrl.Reason(), "attempts", ctrl.Attempts())
	return nil
}

// recovered turns a panic in fn into an error, since main cannot recover
// panics raised on errgroup goroutines
func recovered(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v\n%s", name, r, debug.Stack())
			}
		}()
		return fn()
	}
}

// firstRun creates the config folder the first time and waits for the
// operator to read the instructions.
func firstRun(dir string, status console.Display, prompter *console.Prompter) error {
	result, err := config.Setup(dir)
	if err != nil {
		status.Error(fmt.Sprintf("Failed to create the config folder: %v", err))
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if !result.Created {
		return nil
	}

	status.Success("It looks like it's your first time running AutoChat.")
	for _, problem := range result.Problems {
		status.Error(problem.Error())
	}
	status.Success(fmt.Sprintf("Your config folder is at %s.", dir))
	status.Success(fmt.Sprintf("We've created a %s and a %s file there, so be sure to check that out.", config.SettingsFile, config.MessagesFile))
	status.Success(fmt.Sprintf("Your logs will be saved in the %s folder.\n", config.LogsDir))
	status.Error("Please make sure your account is safe before leaving it unattended.\n")

	return prompter.WaitForKey("Press any key to continue...")
}

func applyOverrides(opts *config.Options, cfg Config) {
	if cfg.LogLevel != "" {
		opts.LogLevel = cfg.LogLevel
	}
	if cfg.Plain {
		opts.Interface = config.InterfacePlain
	}
}

func credentials(cfg Config, prompter *console.Prompter) (config.Credentials, error) {
	creds := config.Credentials{Username: cfg.Username, Password: cfg.Password}

	var err error
	if creds.Username == "" {
		creds.Username, err = prompter.Line("Please enter your account email:")
		if err != nil {
			return creds, fmt.Errorf("failed to read account email: %w", err)
		}
	}
	if creds.Password == "" {
		creds.Password, err = prompter.Secret("Please enter your account password (will be hidden):")
		if err != nil {
			return creds, fmt.Errorf("failed to read account password: %w", err)
		}
	}
	return creds, nil
}

func newFrontend(cfg Config, opts *config.Options) console.Frontend {
	if opts.Interface == config.InterfaceTUI && isTerminal(cfg.Stdin) && isTerminal(cfg.Stdout) {
		return console.NewTUI(cfg.Stdin, cfg.Stdout, opts.Prompt)
	}
	return console.NewPlain(cfg.Stdin, cfg.Stdout, opts.Prompt)
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// describeConfigError turns a settings problem into the operator message
func describeConfigError(err error) string {
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Sprintf("Failed to load your settings: %v", err)
	}
	if verr.Line > 0 {
		return fmt.Sprintf("Problem in the %s file on line %d: %s.", verr.File, verr.Line, verr.Reason)
	}
	return fmt.Sprintf("Problem in the %s file: %s.", verr.File, verr.Reason)
}
