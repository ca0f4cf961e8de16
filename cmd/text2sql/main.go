package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API turns natural-language questions into PostgreSQL queries using the
// schema blocks most similar to the question as context.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: text2sql API
//   description: |
//     Schema-aware SQL generation. The database schema is extracted once into a
//     .sql file, indexed per table into a vector collection, and retrieved per
//     question. Generated SQL is returned, never executed.
//   version: 1.0.0
// schemes:
//   - http
// consumes:
//   - application/json
// produces:
//   - application/json

// version is set via ldflags at build time
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd(version, openApp)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "text2sql: %v\n", err)
		stop()
		os.Exit(1)
	}
}
