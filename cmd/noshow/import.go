package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spektr-org/noshow/helpers"
	"github.com/spektr-org/noshow/internal/platform/db"
	"github.com/spektr-org/noshow/internal/store"
)

func importCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a CSV file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = a.cfg.DataFile
			}
			if a.cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required for import")
			}
			return a.runImport(context.Background(), file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file to import (defaults to DATA_FILE)")
	return cmd
}

// runImport parses the whole file before touching the database, then creates
// the table and copies the rows in one transaction.
func (a *app) runImport(ctx context.Context, file string) error {
	records, stats, err := helpers.LoadFile(file)
	if err != nil {
		return err
	}

	pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns, a.cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	txCtx := store.WithTx(ctx, tx)
	repo := store.NewRepoPG(pool)
	if err := repo.EnsureSchema(txCtx); err != nil {
		return err
	}
	importID, n, err := repo.Import(txCtx, records)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	a.logger.Info().
		Str("file", file).
		Str("import_id", importID.String()).
		Int64("rows", n).
		Int("skipped", stats.SkippedRows).
		Msg("import complete")
	return nil
}
