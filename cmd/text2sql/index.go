package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"text2sql/internal/service"
)

func NewIndexCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Prepare and index the schema, then exit",
		Long: `Run the startup sequence only: extract the schema when the file is missing,
then rebuild the vector collection from it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			state, err := a.session.Start(cmd.Context())
			if err != nil {
				return err
			}

			res := a.session.LastIndex()
			out := cmd.OutOrStdout()
			if state == service.StartCold {
				fmt.Fprintln(out, coldStartMessage)
			}
			if res.Skipped {
				fmt.Fprintf(out, "schema unchanged, %d tables already indexed in %q\n", res.Chunks, a.cfg.QdrantCollection)
				return nil
			}
			fmt.Fprintf(out, "indexed %d tables into %q (replaced %d) in %s\n", res.Chunks, a.cfg.QdrantCollection, res.Deleted, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
}
