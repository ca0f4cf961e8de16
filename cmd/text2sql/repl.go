package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"text2sql/internal/service"
)

const replPrompt = "sql> "

func NewReplCmd(open appOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Ask questions interactively",
		Long: `Prepare and index the schema, then read questions line by line and print
the generated SQL for each. Type "exit" or press Ctrl-D to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, _ := cmd.Flags().GetBool("raw")

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
			if state == service.StartCold {
				fmt.Fprintln(cmd.OutOrStdout(), coldStartMessage)
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          replPrompt,
				HistoryFile:     historyFile(),
				HistoryLimit:    1000,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize readline: %w", err)
			}
			defer func() {
				_ = rl.Close()
			}()

			return runRepl(cmd.Context(), rl, a.session, newSQLRenderer(raw), rl.Stdout())
		},
	}

	cmd.Flags().Bool("raw", false, "Print the SQL without terminal styling")
	return cmd
}

// lineReader is the part of *readline.Instance the loop needs.
type lineReader interface {
	Readline() (string, error)
}

// runRepl answers each line until exit, EOF, Ctrl-C or context cancellation.
// A failed question is reported and the loop continues.
func runRepl(ctx context.Context, rl lineReader, engine service.Engine, renderer *sqlRenderer, out io.Writer) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("readline error: %w", err)
		}

		question := strings.TrimSpace(line)
		switch question {
		case "exit", "quit":
			return nil
		}

		if err := askOnce(ctx, engine, question, nil, renderer, out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".text2sql_history")
}
