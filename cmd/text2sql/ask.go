package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"text2sql/internal/service"
)

func NewAskCmd(open appOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Generate SQL for one question",
		Long: `Prepare and index the schema, then print the SQL generated for the question.
The query is never executed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			var k *int
			if cmd.Flags().Changed("k") {
				v, _ := cmd.Flags().GetInt("k")
				k = &v
			}

			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			if _, err := a.session.Start(cmd.Context()); err != nil {
				return err
			}
			return askOnce(cmd.Context(), a.session, strings.Join(args, " "), k, newSQLRenderer(raw), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntP("k", "k", 0, "Number of schema blocks to retrieve (default RETRIEVAL_K)")
	cmd.Flags().Bool("raw", false, "Print the SQL without terminal styling")
	return cmd
}

// askOnce answers one question and writes the rendered SQL to out.
func askOnce(ctx context.Context, engine service.Engine, question string, k *int, renderer *sqlRenderer, out io.Writer) error {
	if strings.TrimSpace(question) == "" {
		fmt.Fprintln(out, emptyQuestionMessage)
		return nil
	}

	resp, err := engine.Ask(ctx, service.AskRequest{Question: question, K: k})
	if err != nil {
		return err
	}
	fmt.Fprint(out, renderer.Render(resp.SQL))
	return nil
}
