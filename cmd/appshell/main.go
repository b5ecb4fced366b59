package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taaskr/taaskr-shell/cmd/appshell/cli"
	"github.com/taaskr/taaskr-shell/internal/app"
	"github.com/taaskr/taaskr-shell/internal/gateway"
	"github.com/taaskr/taaskr-shell/internal/guard"
	"github.com/taaskr/taaskr-shell/internal/observability"
	"github.com/taaskr/taaskr-shell/internal/session"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "auth" {
		if err := runAuth(ctx, os.Args[2:]); err != nil {
			slog.Default().Error("auth command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx); err != nil {
		slog.Default().Error("serve", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)

	proxy, err := app.NewAPIProxy(gateway.ResolveBaseURL(cfg.APIOrigin), logger)
	if err != nil {
		return err
	}

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		Guard: guard.Guard{
			CookieName: cfg.AccessCookieName,
			LoginPath:  cfg.LoginPath,
		},
		Proxy:   proxy,
		Metrics: observability.NewMetrics(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("variant", cfg.AppVariant),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

// runAuth dispatches the operational auth subcommands: login, status,
// logout, permissions.
func runAuth(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("auth", flag.ContinueOnError)
	origin := flags.String("origin", "", "backend origin (defaults to TAASKR_API_ORIGIN)")
	variant := flags.String("variant", string(session.VariantCustomer), "app variant: admin, customer or taaskr")
	email := flags.String("email", "", "email for login")
	password := flags.String("password", "", "password for login")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() < 1 {
		return errors.New("usage: appshell auth <login|status|logout|permissions>")
	}

	ops, err := cli.NewAuthOpsCLI(cli.AuthOpsOptions{
		APIOrigin: *origin,
		Variant:   session.Variant(*variant),
		Logger:    slog.Default(),
	})
	if err != nil {
		return err
	}

	switch command := flags.Arg(0); command {
	case "login":
		return ops.Login(ctx, *email, *password)
	case "status":
		return ops.Status(ctx)
	case "logout":
		return ops.Logout(ctx)
	case "permissions":
		return ops.PermissionMatrix(ctx)
	default:
		return fmt.Errorf("unknown auth command %q", command)
	}
}
