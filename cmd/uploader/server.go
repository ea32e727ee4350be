package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/upload/presign"
)

func newPresignServerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presign-server",
		Short: "Serve presigned S3 upload URLs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := presign.NewServiceFromConfig(ctx, a.cfg.S3, presign.WithLogger(a.logger))
			if err != nil {
				return err
			}
			return serve(ctx, a, newServerRouter(a, svc))
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func newServerRouter(a *app, p presign.Presigner) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := presign.NewRouter(presign.NewHandler(p, a.logger), a.cfg.Server.CORSOrigins...)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if a.cfg.Server.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	return router
}

func serve(ctx context.Context, a *app, handler http.Handler) error {
	srv := &http.Server{
		Addr:    a.cfg.Server.Addr,
		Handler: handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("presign server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		a.logger.Info("presign server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
