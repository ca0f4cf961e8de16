package handlers

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"text2sql/internal/contextutil"
	"text2sql/internal/service"
)

const (
	pageTitle      = "Local Text → SQL"
	pageCaption    = "Schema → .sql → Vector DB → LLM"
	coldStartMsg   = "Schema extracted, saved, and indexed."
	emptyQuestion  = "Please enter a question."
	generateFailed = "Failed to generate SQL. Check the server logs."
)

//go:embed templates/page.html
var pageHTML string

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

// pageData is rendered by templates/page.html.
type pageData struct {
	Title    string
	Caption  string
	Success  string
	Warning  string
	Error    string
	Question string
	SQLHTML  template.HTML
}

// PageHandler serves the question form and renders generated SQL.
type PageHandler struct {
	engine   service.Engine
	markdown goldmark.Markdown
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(engine service.Engine) *PageHandler {
	return &PageHandler{
		engine:   engine,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// ServeHTTP renders the form on GET and answers the submitted question on POST.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	data := pageData{
		Title:   pageTitle,
		Caption: pageCaption,
	}
	if h.engine.State() == service.StartCold {
		data.Success = coldStartMsg
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			logger.WarnContext(ctx, "invalid form body", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid form body")
			return
		}
		data.Question = r.PostFormValue("question")

		if strings.TrimSpace(data.Question) == "" {
			data.Warning = emptyQuestion
			break
		}

		resp, err := h.engine.Ask(ctx, service.AskRequest{Question: data.Question})
		if err != nil {
			logger.ErrorContext(ctx, "failed to answer question", "error", err)
			data.Error = generateFailed
			break
		}

		rendered, err := h.renderSQL(resp.SQL)
		if err != nil {
			logger.ErrorContext(ctx, "failed to render sql", "error", err)
			data.Error = generateFailed
			break
		}
		data.SQLHTML = rendered
	default:
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logger.ErrorContext(ctx, "failed to render page", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// renderSQL converts the SQL into an HTML code block via a fenced markdown block.
func (h *PageHandler) renderSQL(sql string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(SQLBlock(sql)), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// SQLBlock wraps sql in a fenced markdown code block tagged "sql".
// The fence is longer than any backtick run inside the SQL.
func SQLBlock(sql string) string {
	fence := strings.Repeat("`", max(3, longestRun(sql, '`')+1))
	return fmt.Sprintf("%ssql\n%s\n%s\n", fence, strings.TrimRight(sql, "\n"), fence)
}

func longestRun(s string, c rune) int {
	longest, run := 0, 0
	for _, r := range s {
		if r == c {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return longest
}
