// Command interviewroom runs live mock interviews from the terminal.
//
// Usage:
//
//	interviewroom [global flags] <command> [flags]
//
// Commands:
//
//	login      sign in and save the access token
//	logout     forget the saved login
//	whoami     show the signed-in candidate
//	start      run an interview in the terminal room
//	results    show the scored summary of an interview
//	recover    end sessions a crash left open, or list them with --list
//	config     show, set, or unset configuration
//
// Global flags override config files and INTERVIEWROOM_* variables.
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
	"path/filepath"
	"syscall"

	"github.com/randalmurphal/interviewroom/config"
	ircontext "github.com/randalmurphal/interviewroom/context"
	cerrors "github.com/randalmurphal/interviewroom/errors"
)

type command struct {
	name    string
	summary string
	// needsServices is false for commands that only touch config files.
	needsServices bool
	run           func(ctx context.Context, args []string) error
}

var commands = []command{
	{"login", "sign in and save the access token", true, runLogin},
	{"logout", "forget the saved login", true, runLogout},
	{"whoami", "show the signed-in candidate", true, runWhoami},
	{"start", "run an interview in the terminal room", true, runStart},
	{"results", "show the scored summary of an interview", true, runResults},
	{"recover", "end sessions a crash left open", true, runRecover},
	{"config", "show, set, or unset configuration", false, runConfig},
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("interviewroom", flag.ContinueOnError)
	global.SetOutput(stderr)
	apiURL := global.String("api-url", "", "backend origin")
	dataDir := global.String("data-dir", "", "local data directory")
	logLevel := global.String("log-level", "", "debug, info, warn, or error")
	global.Usage = func() { usage(stderr, global) }

	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		usage(stderr, global)
		return errors.New("no command given")
	}

	name, rest := global.Arg(0), global.Args()[1:]
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		usage(stderr, global)
		return fmt.Errorf("unknown command %q", name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = withOutput(ctx, stdout)

	if !cmd.needsServices {
		return cmd.run(ctx, rest)
	}

	cfg, err := config.Load(map[string]string{
		config.KeyAPIURL:   *apiURL,
		config.KeyDataDir:  *dataDir,
		config.KeyLogLevel: *logLevel,
	})
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg, name, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	services, err := ircontext.NewServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	return cerrors.Wrap(cmd.run(services.InjectAll(ctx), rest), cfg.APIURL)
}

// newLogger writes to stderr, except for the interview room whose screen
// owns the terminal; its log goes to data_dir/interviewroom.log.
func newLogger(cfg *config.Client, command string, stderr io.Writer) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if command != "start" {
		return slog.New(slog.NewTextHandler(stderr, opts)), func() {}, nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(cfg.DataDir, "interviewroom.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, opts)), func() { f.Close() }, nil
}

func usage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: interviewroom [global flags] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	global.PrintDefaults()
}

type outputKey struct{}

func withOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

func output(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok {
		return w
	}
	return os.Stdout
}
