package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/kirillkom/complaint-desk/internal/bootstrap"
	"github.com/kirillkom/complaint-desk/internal/config"
	"github.com/kirillkom/complaint-desk/internal/observability/logging"
)

type command struct {
	summary string
	// staff commands need a live session.
	staff bool
	run   func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"login":    {summary: "start a staff session", run: runLogin},
	"logout":   {summary: "end the staff session", run: runLogout},
	"whoami":   {summary: "show the logged in user", run: runWhoami},
	"submit":   {summary: "file a complaint with optional images", run: runSubmit},
	"receipts": {summary: "list tracking codes of complaints sent from this machine", run: runReceipts},
	"list":     {summary: "list complaints page by page", staff: true, run: runList},
	"search":   {summary: "search complaints by filters or free text", staff: true, run: runSearch},
	"find":     {summary: "show one complaint by tracking code", staff: true, run: runFind},
	"images":   {summary: "list or download the evidence of a complaint", staff: true, run: runImages},
	"stats":    {summary: "show complaint counters", staff: true, run: runStats},
	"export":   {summary: "export complaints to an xlsx workbook", staff: true, run: runExport},
	"browse":   {summary: "interactive complaint directory", staff: true, run: runBrowse},
}

// cli carries the wired application and the process streams.
type cli struct {
	app    *bootstrap.App
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// errUsage means the flag set already reported the problem.
var errUsage = errors.New("usage")

func (c *cli) parse(name string, args []string, define func(fs *flag.FlagSet)) (*flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	define(fs)
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	return fs, nil
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.stdout, format, args...)
}

func (c *cli) msg(key string, params map[string]string) {
	fmt.Fprintln(c.stdout, c.app.Catalog.Message(key, params))
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg := config.Load()
	logger := logging.NewLogger("complaintctl", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, logger, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		fmt.Fprintf(stderr, "startup failed: %v\n", err)
		return 1
	}
	defer app.Close()
	app.ServeMetrics()

	c := &cli{app: app, stdin: stdin, stdout: stdout, stderr: stderr}
	if cmd.staff && !app.Credentials.IsAuthenticated(ctx) {
		fmt.Fprintln(stderr, app.Catalog.Message("error.unauthorized", nil))
		return 1
	}
	if err := cmd.run(ctx, c, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		logger.Debug("command_failed", "command", args[0], "error", err)
		fmt.Fprintln(stderr, app.Catalog.Error(err))
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: complaintctl <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].summary)
	}
}
