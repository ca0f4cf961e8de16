package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"text2sql/internal/schema"
	"text2sql/internal/service"
)

func NewExtractCmd(open appOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Write the schema file from the database catalog",
		Long: `Read every table and column of the configured schema and write them to
SCHEMA_FILE as CREATE TABLE statements. An existing file is kept unless
--force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")

			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			var source service.SchemaSource
			if a.extractor != nil {
				source = a.extractor
			}
			return extractSchema(cmd.Context(), source, a.cfg.SchemaFile, force, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing schema file")
	return cmd
}

// extractSchema writes the schema file unless it exists and force is false.
func extractSchema(ctx context.Context, source service.SchemaSource, path string, force bool, out io.Writer) error {
	exists, err := schema.Exists(path)
	if err != nil {
		return err
	}
	if exists && !force {
		fmt.Fprintf(out, "%s already exists, use --force to overwrite\n", path)
		return nil
	}
	if source == nil {
		return fmt.Errorf("extract schema: %w (set DATABASE_URL or DB_NAME)", service.ErrNoDatabase)
	}

	text, err := source.ExtractToFile(ctx, path)
	if err != nil {
		return fmt.Errorf("extract schema: %w", err)
	}
	fmt.Fprintf(out, "wrote %d bytes to %s\n", len(text), path)
	return nil
}
