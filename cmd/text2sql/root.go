package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd(version string, open appOpener) *cobra.Command {
	serveCmd := NewServeCmd(open)

	rootCmd := &cobra.Command{
		Use:   "text2sql",
		Short: "Generate SQL from questions using your database schema",
		Long: `text2sql extracts a PostgreSQL schema into a .sql file, indexes one entry
per table in a vector collection, and asks a chat model for SQL using the
tables most similar to each question. Generated SQL is never executed.

Running without a subcommand starts the web server.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          serveCmd.RunE,
	}
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(
		serveCmd,
		NewExtractCmd(open),
		NewIndexCmd(open),
		NewAskCmd(open),
		NewReplCmd(open),
	)

	return rootCmd
}
