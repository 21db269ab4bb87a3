// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sciextract/internal/api"
	"github.com/pdiddy/sciextract/internal/findings"
	"github.com/pdiddy/sciextract/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve records and finding lists to review tools",
	Long: `Serve exposes structural records, rendered sections, and finding lists
over HTTP. Review tools write curated finding lists back with PUT; the
list file, the identification manifest, and (with --index-dir) the
findings index are updated.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := types.ServeConfig{
		Addr:        viper.GetString("serve.addr"),
		ExtractDir:  viper.GetString("serve.extract_dir"),
		IdentifyDir: viper.GetString("serve.identify_dir"),
		CacheSize:   viper.GetInt("serve.cache_size"),
	}

	var index api.FindingIndex
	if dir := viper.GetString("serve.index_dir"); dir != "" {
		store, err := findings.NewStore(types.IndexConfig{
			IndexDir:    dir,
			IdentifyDir: cfg.IdentifyDir,
			ExtractDir:  cfg.ExtractDir,
		})
		if err != nil {
			return err
		}
		defer store.Close()
		index = store
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(cfg, index, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.String("extract-dir", "extracted", "directory holding records and the extraction manifest")
	f.String("identify-dir", "identified", "directory holding finding lists and the identification manifest")
	f.String("index-dir", "", "findings index to update on write-back (empty = none)")
	f.Int("cache-size", 16, "articles kept in memory")

	bindFlag(f, "serve.addr", "addr")
	bindFlag(f, "serve.extract_dir", "extract-dir")
	bindFlag(f, "serve.identify_dir", "identify-dir")
	bindFlag(f, "serve.index_dir", "index-dir")
	bindFlag(f, "serve.cache_size", "cache-size")

	rootCmd.AddCommand(serveCmd)
}
