// Package main wires the cobra+fang command surface for the gateway,
// following the pattern in localbase's cli/root.go: a root command with
// persistent flags, a single serve subcommand, and fang.Execute for
// styled help/error output.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/go-mizu/s3gw"
	"github.com/go-mizu/s3gw/internal/backend"
	"github.com/go-mizu/s3gw/internal/backendauth"
	"github.com/go-mizu/s3gw/internal/gateway"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

var (
	listenAddr    string
	backendURL    string
	backendSecret string
	location      string
	logRoute      string
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "s3gw",
		Short:         "s3gw - S3 REST gateway for a Swift-style backend",
		Long:          "s3gw translates a subset of the Amazon S3 REST API into account/container/object operations against a Swift-style storage backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate("s3gw {{.Version}}\n")
	root.Version = versionString()
	root.PersistentFlags().StringVar(&backendURL, "backend-url", "http://127.0.0.1:8080", "Base URL of the account/container/object backend")
	root.PersistentFlags().StringVar(&backendSecret, "backend-secret", "", "Shared secret for signing backend JWTs; empty forwards the canonicalized token directly")
	root.PersistentFlags().StringVar(&location, "location", "US", "Value reported by GET ?location")
	root.PersistentFlags().StringVar(&logRoute, "log-route", "s3gw", "Logger category name")

	root.AddCommand(newServeCommand())
	return root
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", ":9000", "Address to listen on")
	return cmd
}

func runServe(ctx context.Context) error {
	log := slog.Default()

	cfg := gateway.Config{
		Location: location,
		LogRoute: logRoute,
		Backend:  backend.New(backendURL, nil),
		Logger:   log,
	}
	if backendSecret != "" {
		cfg.BackendAuth = backendauth.NewSigner([]byte(backendSecret), time.Minute)
	}

	gw := gateway.New(cfg)
	app := mizu.New(mizu.WithLogger(log))
	app.Use(mizu.Logger(mizu.LoggerOptions{
		Logger:       log,
		RequestIDGen: uuid.NewString,
	}))
	gateway.Register(app.Router, "/", gw)

	log.Info("s3gw backend configured", slog.String("backend", backendURL))
	return app.Listen(listenAddr)
}

func versionString() string {
	if strings.TrimSpace(Version) != "" && Version != "dev" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			return bi.Main.Version
		}
	}
	return "dev"
}

func execute(ctx context.Context) error {
	root := newRootCommand()
	if err := fang.Execute(ctx, root, fang.WithVersion(Version), fang.WithCommit(Commit)); err != nil {
		fmt.Fprintln(os.Stderr, "s3gw: "+err.Error())
		return err
	}
	return nil
}
