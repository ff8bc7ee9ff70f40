package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/siren/internal/core/auth"
	"github.com/solatis/siren/internal/core/config"
	"github.com/solatis/siren/internal/core/server"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC catalog endpoints",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	flags := serveCmd.Flags()
	flags.String("http-host", "", "HTTP listen host")
	flags.Int("http-port", 0, "HTTP listen port")
	flags.String("grpc-host", "", "gRPC listen host")
	flags.Int("grpc-port", 0, "gRPC listen port (0 in config disables gRPC)")
	flags.Bool("require-auth", false, "require an API key on catalog routes")
	_ = v.BindPFlag("http.host", flags.Lookup("http-host"))
	_ = v.BindPFlag("http.port", flags.Lookup("http-port"))
	_ = v.BindPFlag("grpc.host", flags.Lookup("grpc-host"))
	_ = v.BindPFlag("grpc.port", flags.Lookup("grpc-port"))
	_ = v.BindPFlag("require_auth", flags.Lookup("require-auth"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := requireMigrated(database); err != nil {
		return err
	}

	service, err := newService(cfg, database, queries)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	var authenticator *auth.Authenticator
	if cfg.RequireAuth {
		secrets, err := config.HMACSecrets()
		if err != nil {
			return fmt.Errorf("failed to load HMAC secrets: %w", err)
		}
		if len(secrets) == 0 {
			return fmt.Errorf("require_auth set but no HMAC secrets configured (set SIREN_HMAC_SECRET environment variable)")
		}
		authenticator = auth.NewAuthenticator(secrets, queries, logger.Named("auth"))
	}

	httpServer, err := server.NewHTTPServer(cfg.HTTP, service.Handler(authenticator), logger)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}
	var grpcServer *server.GRPCServer
	if cfg.GRPC.Enabled() {
		if grpcServer, err = server.NewGRPCServer(cfg.GRPC, service, authenticator, logger); err != nil {
			return fmt.Errorf("failed to create grpc server: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting siren",
		zap.String("version", Version),
		zap.String("http", cfg.HTTP.Addr()),
		zap.Bool("grpc", cfg.GRPC.Enabled()),
		zap.Bool("require_auth", cfg.RequireAuth))

	errChan := make(chan error, 2)
	go func() { errChan <- httpServer.Start(ctx) }()
	if grpcServer != nil {
		go func() { errChan <- grpcServer.Start(ctx) }()
	}

	var serveErr error
	select {
	case serveErr = <-errChan:
		logger.Error("server stopped", zap.Error(serveErr))
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	errs := []error{serveErr, httpServer.Shutdown(shutdownCtx)}
	if grpcServer != nil {
		errs = append(errs, grpcServer.Shutdown(shutdownCtx))
	}
	return errors.Join(errs...)
}
