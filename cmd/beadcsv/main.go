// beadcsv reads, combines and rewrites bead-array instrument CSV exports.
//
//	beadcsv inspect FILE                      summary of one export
//	beadcsv merge TARGET SOURCE... -o OUT     append the rows of each source
//	beadcsv update TARGET SOURCE -o OUT       replace target rows by well or by pair
//	beadcsv combine DIR -o OUT                merge every export in DIR, oldest first
//	beadcsv export FILE -o OUT                rewrite as csv, xlsx or long-format csv
//	beadcsv collaborators FILE... -o OUT      join collaborator allele tables
//	beadcsv serve                             run the HTTP API
//
// Every command accepts --config and --log-level. Logs go to stderr, results
// to stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"beadcsv/internal/app"
	"beadcsv/internal/config"
	"beadcsv/internal/infrastructure"
	"beadcsv/internal/validation"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// usageError reports bad arguments; the process exits with status 2.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) || errors.Is(err, pflag.ErrHelp) {
		return 2
	}
	return 1
}

type command struct {
	summary string
	run     func(c *cli, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"inspect":       {"print the header, samples and blocks of an export", (*cli).inspect},
	"merge":         {"append the rows of source exports to a target", (*cli).merge},
	"update":        {"replace rows of a target with rows of a source", (*cli).update},
	"combine":       {"merge every export in a directory", (*cli).combine},
	"export":        {"rewrite an export as csv, xlsx or long-format csv", (*cli).export},
	"collaborators": {"join collaborator allele tables into one report", (*cli).collaborators},
	"serve":         {"run the HTTP API", (*cli).serve},
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{stdout: stdout, stderr: stderr}

	if len(args) == 0 {
		c.printUsage()
		return usagef("no command given")
	}
	switch args[0] {
	case "-h", "--help", "help":
		c.printUsage()
		return nil
	case "--version", "version":
		fmt.Fprintf(stdout, "%s %s\n", app.AppName, app.Version)
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		c.printUsage()
		return usagef("unknown command %q", args[0])
	}
	return cmd.run(c, infrastructure.EnsureTraceID(ctx), args[1:])
}

// cli carries the streams and the per-invocation configuration
type cli struct {
	stdout io.Writer
	stderr io.Writer

	configFile string
	logLevel   string

	cfg       *config.Config
	logger    *slog.Logger
	validator *validation.FileValidator
}

func (c *cli) printUsage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(c.stderr, "usage: %s <command> [flags] [args]\n\ncommands:\n", app.AppName)
	for _, name := range names {
		fmt.Fprintf(c.stderr, "  %-14s %s\n", name, commands[name].summary)
	}
}

func (c *cli) flagSet(name, usage string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&c.configFile, "config", "", "YAML config file (default: beadcsv.yaml or configs/beadcsv.yaml)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error (default warn, info for serve)")
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "usage: %s %s %s\n\nflags:\n%s", app.AppName, name, usage, fs.FlagUsages())
	}
	return fs
}

// parse parses flags, checks the positional count (max < 0 means no
// limit) and loads the configuration.
func (c *cli) parse(fs *pflag.FlagSet, args []string, min, max int) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usagef("%s: %v", fs.Name(), err)
	}
	if n := fs.NArg(); n < min || (max >= 0 && n > max) {
		fs.Usage()
		return usagef("%s: wrong number of arguments", fs.Name())
	}

	cfg, err := loadConfig(c.configFile)
	if err != nil {
		return err
	}
	switch {
	case c.logLevel != "":
		cfg.Logging.Level = c.logLevel
	case fs.Name() != "serve":
		cfg.Logging.Level = "warn"
	}
	c.cfg = cfg
	c.logger = infrastructure.NewLogger(cfg.Logging, c.stderr).
		With(slog.String("command", fs.Name()))
	c.validator = validation.NewFileValidator(c.logger)
	return nil
}

func loadConfig(file string) (*config.Config, error) {
	if file == "" {
		return config.Load()
	}
	return config.LoadFrom(file)
}

// requireOutput fails when a command's -o flag is missing
func requireOutput(fs *pflag.FlagSet, out string) error {
	if strings.TrimSpace(out) == "" {
		fs.Usage()
		return usagef("%s: --output is required", fs.Name())
	}
	return nil
}
