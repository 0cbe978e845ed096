// sesctl hardens an emulated host runtime and confines programs in it.
//
// Usage:
//
//	sesctl init    [hardening flags]            initialize and print the report
//	sesctl confine [hardening flags] [--bind k=v ...] <source>
//	sesctl module  [hardening flags] <file.wasm>
//	sesctl schema  [config|policy]              print a JSON Schema
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
)

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err == nil {
		return
	}
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	detail, _ := json.Marshal(domainerrors.ToErrorDetail(err))
	fmt.Fprintf(os.Stderr, "error: %v\n%s\n", err, detail)
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		os.Exit(coder.ExitCode())
	}
	os.Exit(1)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return &exitError{code: 2, err: fmt.Errorf("missing command")}
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		return runInit(ctx, rest, stdout, stderr)
	case "confine":
		return runConfine(ctx, rest, stdout, stderr)
	case "module":
		return runModule(ctx, rest, stdout, stderr)
	case "schema":
		return runSchema(rest, stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return &exitError{code: 2, err: fmt.Errorf("unknown command %q", cmd)}
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `sesctl hardens an emulated host runtime and confines programs in it.

Usage:
  sesctl init    [flags]                         initialize and print the report
  sesctl confine [flags] [--bind k=v ...] <src>  evaluate src in a fresh realm
  sesctl module  [flags] <file.wasm>             run a module's "run" export
  sesctl schema  [config|policy]                 print a JSON Schema

Run "sesctl <command> --help" for the flags of a command.
`)
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
