package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Options holds client preferences from the optional options.hcl file.
type Options struct {
	LogLevel      string          `hcl:"log_level,optional"`
	LogFile       string          `hcl:"log_file,optional"`
	ChatLogPrefix string          `hcl:"chat_log_prefix,optional"`
	Prompt        string          `hcl:"prompt,optional"`
	Interface     string          `hcl:"interface,optional"`
	Gateway       *GatewayOptions `hcl:"gateway,block"`
}

// GatewayOptions tunes the websocket connection to the game server.
type GatewayOptions struct {
	Path             string `hcl:"path,optional"`
	TLS              bool   `hcl:"tls,optional"`
	HandshakeTimeout int    `hcl:"handshake_timeout,optional"`
}

// Interface names.
const (
	InterfaceTUI   = "tui"
	InterfacePlain = "plain"
)

// DefaultOptions returns the options used when options.hcl is absent.
func DefaultOptions() *Options {
	return &Options{
		LogLevel:      "warn",
		LogFile:       "autochat.log",
		ChatLogPrefix: "ChatLog",
		Prompt:        "autochat> ",
		Interface:     InterfaceTUI,
		Gateway: &GatewayOptions{
			Path:             "/chat",
			HandshakeTimeout: 10,
		},
	}
}

// LoadOptions loads client options from an HCL file. A missing file yields
// DefaultOptions.
func LoadOptions(filename string) (*Options, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultOptions(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var opts Options
	diags = gohcl.DecodeBody(file.Body, nil, &opts)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultOptions()
	if opts.LogLevel == "" {
		opts.LogLevel = defaults.LogLevel
	}
	if opts.LogFile == "" {
		opts.LogFile = defaults.LogFile
	}
	if opts.ChatLogPrefix == "" {
		opts.ChatLogPrefix = defaults.ChatLogPrefix
	}
	if opts.Prompt == "" {
		opts.Prompt = defaults.Prompt
	}
	if opts.Interface == "" {
		opts.Interface = defaults.Interface
	}
	if opts.Gateway == nil {
		opts.Gateway = defaults.Gateway
	} else {
		if opts.Gateway.Path == "" {
			opts.Gateway.Path = defaults.Gateway.Path
		}
		if opts.Gateway.HandshakeTimeout == 0 {
			opts.Gateway.HandshakeTimeout = defaults.Gateway.HandshakeTimeout
		}
	}

	return &opts, nil
}

// Validate validates the client options.
func (o *Options) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[o.LogLevel] {
		return fmt.Errorf("invalid log level: %s", o.LogLevel)
	}

	if o.Interface != InterfaceTUI && o.Interface != InterfacePlain {
		return fmt.Errorf("invalid interface: %s", o.Interface)
	}

	if o.Gateway != nil && o.Gateway.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake timeout cannot be negative")
	}

	return nil
}

// HandshakeTimeout returns the websocket handshake timeout.
func (o *Options) HandshakeTimeout() time.Duration {
	if o.Gateway == nil {
		return 0
	}
	return time.Duration(o.Gateway.HandshakeTimeout) * time.Second
}
