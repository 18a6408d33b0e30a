package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/vulnprobe/internal/app"
	"github.com/raysh454/vulnprobe/internal/logging"
	"github.com/raysh454/vulnprobe/internal/server"
)

type serveOptions struct {
	addr   string
	dbPath string
}

func newServeCommand(root *rootOptions, errOut io.Writer) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the asynchronous scan API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}
			if opts.dbPath != "" {
				cfg.DBPath = opts.dbPath
			}
			logger, err := newLogger(cfg, errOut)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite report database (default from config)")
	return cmd
}

// serve runs the API until ctx is canceled, then drains running scans.
func serve(ctx context.Context, cfg *app.Config, logger logging.Logger) error {
	a, err := app.NewApplication(cfg, logger, nil)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(server.Config{
		ListenAddr:  cfg.Server.Addr,
		SubmitRate:  cfg.Server.SubmitRate,
		SubmitBurst: cfg.Server.SubmitBurst,
		Logger:      logger,
	}, a)
	if err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}
	httpSrv := srv.HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", logging.Field{Key: "addr", Value: cfg.Server.Addr})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", logging.Field{Key: "error", Value: err})
	}
	return a.Shutdown(shutdownCtx)
}
