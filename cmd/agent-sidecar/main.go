// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

// agent-sidecar is a long-lived companion process for a desktop UI.
// It reads control messages as JSON lines on stdin, drives at most one
// agent conversation at a time through the Claude Code CLI, and
// streams the conversation's output back as JSON lines on stdout,
// tagged with the request's correlation id.
//
// stdout carries protocol lines only; all logging goes to stderr.
// The process exits 0 on a shutdown message, on stdin closing, and on
// the forced-exit grace timer — a failing request is reported over the
// protocol, never via the exit code.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/hbanerjee74/agent-sidecar/lib/agentquery"
	"github.com/hbanerjee74/agent-sidecar/lib/config"
	"github.com/hbanerjee74/agent-sidecar/lib/process"
	"github.com/hbanerjee74/agent-sidecar/lib/sidecar"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("agent-sidecar", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to the YAML settings file (default: $AGENT_SIDECAR_CONFIG)")
	logLevel := flagSet.String("log-level", "", "minimum log level: debug, info, warn, error")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	level := settings.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	slogLevel, err := parseLevel(level)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)

	capability := &agentquery.CLICapability{
		DefaultExecutable: settings.ExecutablePath,
		MaxLineBytes:      settings.MaxLineBytes,
	}

	options := []sidecar.Option{
		sidecar.WithLogger(logger),
		sidecar.WithMaxLineBytes(settings.MaxLineBytes),
	}
	if settings.ShutdownGraceSeconds > 0 {
		options = append(options,
			sidecar.WithShutdownGrace(time.Duration(settings.ShutdownGraceSeconds)*time.Second))
	}

	agentRuntime := sidecar.New(capability, os.Stdin, os.Stdout, options...)

	// SIGINT/SIGTERM take the same bounded graceful path as a
	// shutdown control message.
	signalChannel := make(chan os.Signal, 2)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range signalChannel {
			agentRuntime.RequestShutdown()
		}
	}()
	defer signal.Stop(signalChannel)

	return agentRuntime.Run(context.Background())
}

// parseLevel maps a settings string onto a slog level.
func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "agent-sidecar — JSON-lines agent request runtime")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Reads control messages on stdin, writes protocol lines to stdout.")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprint(os.Stderr, flagSet.FlagUsages())
}
