// Command sv is a terminal client for the shopverse storefront.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/and161185/shopverse/internal/app"
	"github.com/and161185/shopverse/internal/config"
	"github.com/and161185/shopverse/internal/logging"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// errUsage makes main exit with status 2.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintf(w, `sv CLI
Usage:
  sv [-api URL] [-assets URL] [-backend file|memory|redis|postgres] [-dir DIR] [-seal=true] <cmd> [args]

Commands:
  version
  login      [-role user|seller|admin] -e <email> -p <password>
  register   [-role user|seller|admin] -name <name> -e <email> -p <password> [-shop <shop name>]
  logout
  whoami     [-refresh]
  profile    -set key=value [-set key=value ...]
  cart
  cart-add   -id <product id> [-qty N]
  cart-rm    -id <product id>
  cart-set   -id <product id> -qty N                  (N <= 0 removes the line)
  cart-clear
  guard      [-role user|seller|admin]
`)
}

// main loads .env, runs the command and maps errors to exit codes.
func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fail(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses global flags, builds the application and dispatches one command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("sv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	fs.StringVar(&cfg.API.URL, "api", cfg.API.URL, "API base URL")
	fs.StringVar(&cfg.API.AssetURL, "assets", cfg.API.AssetURL, "asset host for image paths")
	fs.DurationVar(&cfg.API.Timeout, "timeout", cfg.API.Timeout, "per-request timeout")
	fs.StringVar(&cfg.Storage.Backend, "backend", cfg.Storage.Backend, "device storage backend")
	fs.StringVar(&cfg.Storage.Dir, "dir", cfg.Storage.Dir, "config dir")
	fs.BoolVar(&cfg.Storage.Seal, "seal", cfg.Storage.Seal, "encrypt stored values")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level")
	fs.BoolVar(&cfg.Log.Dev, "dev", cfg.Log.Dev, "human-readable logs")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return errUsage
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	if cmd == "version" {
		fmt.Fprintf(stdout, "sv %s (%s)\n", version, buildDate)
		return nil
	}
	h, ok := commands[cmd]
	if !ok {
		usage(stderr)
		return errUsage
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Debug("starting", zap.String("version", version), zap.String("cmd", cmd))

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(ctx, 2*cfg.API.Timeout+5*time.Second)
	defer cancel()
	if err := a.Initialize(ctx); err != nil {
		log.Warn("initialize", zap.Error(err))
	}
	return h(ctx, &env{app: a, args: rest, out: stdout, errOut: stderr})
}

// env is what a command handler gets.
type env struct {
	app    *app.App
	args   []string
	out    io.Writer
	errOut io.Writer
}

func (e *env) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.errOut)
	return fs
}

func (e *env) printJSON(v any) {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// fail prints the server's message when it sent one.
func fail(w io.Writer, err error) {
	fmt.Fprintln(w, app.Message(err, err.Error()))
}
