package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/schardosin/odataroute/examples/routing/model"
	"github.com/schardosin/odataroute/pkg/odata"
)

const shutdownTimeout = 5 * time.Second

func main() {
	rootCmd, err := newRootCmd()
	if err != nil {
		log.Fatal(err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}

	rootCmd := &cobra.Command{
		Use:          "odata-routing-model",
		Short:        "Print or serve the CSDL metadata of the routing model",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "URL prefix of the OData service")
	rootCmd.AddCommand(newMetadataCmd(), newServeCmd(&cfg))
	return rootCmd, nil
}

func newMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Write the CSDL document to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := model.GetModel(odata.WithLogger(nil))
			if err != nil {
				return fmt.Errorf("model not built: %w", err)
			}
			metadata, err := odata.GenerateMetadata(m)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), metadata)
			return err
		},
	}
}

func newServeCmd(cfg *Config) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve $metadata and the service document over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			router, err := newRouter(cfg.Prefix)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg.Addr, router)
		},
	}
	serveCmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	return serveCmd
}

func newRouter(prefix string) (http.Handler, error) {
	m, err := model.GetModel()
	if err != nil {
		return nil, fmt.Errorf("model not built: %w", err)
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if err := odata.RegisterRoutes(r, prefix, m); err != nil {
		return nil, err
	}
	log.Println("Routes registered")
	return r, nil
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server is running on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
