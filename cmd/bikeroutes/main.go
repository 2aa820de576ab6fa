// Package main is the bikeroutes command-line client.
// It wires config, the local store, the session manager, and the route
// services together, then dispatches to one subcommand. Command output goes
// to stdout; logs go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/GadCoder/BikeRoutes/internal/apiclient"
	"github.com/GadCoder/BikeRoutes/internal/config"
	"github.com/GadCoder/BikeRoutes/internal/routecache"
	"github.com/GadCoder/BikeRoutes/internal/service"
	"github.com/GadCoder/BikeRoutes/internal/session"
	"github.com/GadCoder/BikeRoutes/internal/store"
)

const usage = `usage: bikeroutes <command> [flags] [args]

commands:
  register   -email E [-password P]   create an account and sign in
  login      -email E [-password P]   sign in
  logout                              forget the stored session
  whoami                              print the signed-in user
  routes     [-q QUERY]               list routes (cached when offline)
  show       ROUTE_ID                 print one route with its markers
  delete     ROUTE_ID                 delete a route
  import-gpx -title T [-public] FILE  create a route from a GPX track

The password is read from stdin when -password is omitted.
`

// errUsage is returned for a bad command line; usage has been printed.
var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "bikeroutes:", err)
		}
		os.Exit(1)
	}
}

// app holds the wired collaborators of one invocation.
type app struct {
	logger  *slog.Logger
	session *session.Manager
	routes  *service.RouteService
	editor  *service.EditorService
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return errUsage
	}

	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelWarn
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	// --- Local store ------------------------------------------------------
	kv, err := store.Open(ctx, cfg.Store, store.Options{
		Dir:         cfg.DataDir,
		DatabaseURL: cfg.DatabaseURL,
		RedisAddr:   cfg.RedisAddr,
		Namespace:   "bikeroutes",
	})
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	// --- Services ---------------------------------------------------------
	api := apiclient.NewClient(cfg.APIURL,
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithLogger(logger),
	)
	cache := routecache.New(kv, routecache.WithLogger(logger))
	manager := session.NewManager(api, session.NewTokenStore(kv, logger), logger)

	a := &app{
		logger:  logger,
		session: manager,
		routes:  service.NewRouteService(api, manager, cache, logger),
		editor:  service.NewEditorService(api, manager, cache, logger),
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}
	if err := cmd(ctx, a, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage)
		}
		return err
	}
	return nil
}
