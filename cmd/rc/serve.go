package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"recount/internal/server"
)

func serveCmd() *cobra.Command {
	var healthInterval time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (and gRPC health endpoint when grpc_addr is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if healthInterval <= 0 {
				return fmt.Errorf("--health-interval must be positive, got %s", healthInterval)
			}
			secret := os.Getenv("RECOUNT_JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("RECOUNT_JWT_SECRET is required for bearer auth")
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			cfg := a.Config

			handler, err := server.New(server.Config{
				Engine:   a.Engine,
				BasePath: cfg.Server.BasePath,
				Auth:     server.AuthConfig{JWTSecret: secret, TokenTTL: cfg.Auth.TokenTTL},
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

			// gRPC binds before any goroutine starts.
			var lis net.Listener
			if cfg.Server.GRPCAddr != "" {
				lis, err = net.Listen("tcp", cfg.Server.GRPCAddr)
				if err != nil {
					return fmt.Errorf("grpc listen: %w", err)
				}
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				logger.Info("serving http",
					zap.String("addr", cfg.Server.Addr),
					zap.String("base_path", cfg.Server.BasePath))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if lis != nil {
				gs, hs := server.NewGRPC()
				g.Go(func() error {
					logger.Info("serving grpc health", zap.String("addr", cfg.Server.GRPCAddr))
					return gs.Serve(lis)
				})
				g.Go(func() error {
					server.WatchHealth(ctx, a.DB, hs, healthInterval, logger)
					hs.Shutdown()
					gs.GracefulStop()
					return nil
				})
			}
			fmt.Printf("Serving Recount API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", cfg.Server.Addr, cfg.Server.BasePath)
			return g.Wait()
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	cmd.Flags().String("base-path", "", "API base path (overrides server.base_path)")
	cmd.Flags().String("grpc-addr", "", "gRPC health listen address (overrides server.grpc_addr)")
	cmd.Flags().DurationVar(&healthInterval, "health-interval", server.DefaultHealthInterval, "database health check interval")
	for _, name := range []string{"addr", "base-path", "grpc-addr"} {
		_ = viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}
