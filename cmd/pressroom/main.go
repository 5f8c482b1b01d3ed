package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/eringen/pressroom"
	"github.com/eringen/pressroom/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	case "hash-password":
		if err := runHashPassword(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("pressroom %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := pressroom.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := pressroom.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := pressroom.New(cfg, views.Default(), pressroom.WithLogger(logger))
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close resources")
		}
	}()
	return app.Start(ctx)
}

// runHashPassword reads a password from stdin and prints its bcrypt hash.
func runHashPassword() error {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	hash, err := pressroom.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func printUsage() {
	fmt.Println(`pressroom - An editorial blogging platform built with Go, Echo, and templ

Usage:
  pressroom <command>

Commands:
  serve           Start the server (configured through environment variables)
  hash-password   Read a password from stdin and print its bcrypt hash
  version         Print the pressroom version
  help            Show this help message

Examples:
  echo 'secret' | pressroom hash-password
  PRESSROOM_AUTHORS="alice:<hash>" SESSION_SECRET=... pressroom serve`)
}
