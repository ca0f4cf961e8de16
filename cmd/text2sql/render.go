package main

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"text2sql/internal/handlers"
)

const (
	coldStartMessage     = "Schema extracted, saved, and indexed."
	emptyQuestionMessage = "Please enter a question."
	renderWidth          = 100
)

// sqlRenderer prints generated SQL as a highlighted terminal code block.
type sqlRenderer struct {
	term *glamour.TermRenderer // nil renders plain text
}

// newSQLRenderer returns a glamour-backed renderer, or a plain one when raw is set
// or the terminal renderer cannot be built.
func newSQLRenderer(raw bool) *sqlRenderer {
	if raw {
		return &sqlRenderer{}
	}
	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWidth),
	)
	if err != nil {
		return &sqlRenderer{}
	}
	return &sqlRenderer{term: term}
}

// Render returns the SQL under a "Generated SQL" heading.
func (r *sqlRenderer) Render(sql string) string {
	if r.term == nil {
		return strings.TrimRight(sql, "\n") + "\n"
	}
	out, err := r.term.Render("## Generated SQL\n\n" + handlers.SQLBlock(sql))
	if err != nil {
		return strings.TrimRight(sql, "\n") + "\n"
	}
	return out
}
