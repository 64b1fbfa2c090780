package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"umrah-backoffice/internal/config"
	"umrah-backoffice/internal/importer"
	"umrah-backoffice/internal/logging"
	clientsvc "umrah-backoffice/internal/service/client"
	"umrah-backoffice/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var commit bool
	cmd := &cobra.Command{
		Use:   "importer <file>",
		Short: "Scan a rooming spreadsheet for pilgrim names",
		Long: `Reads the first sheet of an .xlsx, .xls or .csv file and lists every cell
that looks like a person's name. Nothing is written unless --commit is given.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], commit)
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "create the scanned clients in the configured store")
	return cmd
}

func run(ctx context.Context, path string, commit bool) error {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "importer")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var writer importer.ClientWriter
	if commit {
		st, err := store.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		writer = clientsvc.New(st.Clients, nil, logger)
	}
	imp := importer.New(writer, nil, logger)

	start := time.Now()
	batch, err := imp.Stage(ctx, f, filepath.Base(path))
	if err != nil {
		return err
	}
	for _, c := range batch.Clients {
		fmt.Printf("%s\t%s\n", c.Name, c.Email)
	}

	if !commit {
		fmt.Printf("Found %d clients in %d rows (dry run, use --commit to write)\n", len(batch.Clients), batch.Rows)
		return nil
	}
	created, err := imp.Commit(ctx, batch)
	if err != nil {
		logger.Error("commit failed", zap.Error(err))
		return err
	}
	fmt.Printf("Imported %d clients from %s in %s\n", len(created), path, time.Since(start).Truncate(time.Millisecond))
	return nil
}
