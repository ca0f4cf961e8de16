package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"

	"text2sql/internal/http"
	"text2sql/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd(open appOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web page and JSON API",
		Long: `Prepare the schema (extracting it when the schema file is missing),
index it, then serve the question page and the JSON API until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			port, _ := cmd.Flags().GetString("port")
			watch, _ := cmd.Flags().GetBool("watch")
			return runServe(cmd.Context(), open, port, watch, cmd.Flags().Changed("watch"))
		},
	}

	cmd.Flags().String("port", "", "Port to listen on (overrides API_PORT)")
	cmd.Flags().Bool("watch", false, "Re-index when the schema file changes (overrides WATCH_SCHEMA)")
	return cmd
}

func runServe(ctx context.Context, open appOpener, port string, watch, watchSet bool) error {
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if err := a.validateEmbedder(ctx); err != nil {
		return err
	}

	state, err := a.session.Start(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	last := a.session.LastIndex()
	slog.Info("Schema ready", "state", state.String(), "chunks", last.Chunks, "skipped", last.Skipped)

	if !watchSet {
		watch = a.cfg.WatchSchema
	}
	if watch {
		fw, err := watcher.New(a.cfg.SchemaFile, func(ctx context.Context) error {
			_, err := a.session.Reindex(ctx)
			return err
		}, a.logger)
		if err != nil {
			return fmt.Errorf("watch schema file: %w", err)
		}
		fw.Start(ctx)
		defer fw.Stop()
		slog.Info("Watching schema file", "path", a.cfg.SchemaFile)
	}

	router := http.NewRouter(&http.Deps{
		Engine:      a.session,
		VectorStore: a.vectorStore,
		Collection:  a.cfg.QdrantCollection,
	})

	if port == "" {
		port = a.cfg.APIPort
	}
	server := &nethttp.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown API server: %w", err)
	}
	return nil
}
