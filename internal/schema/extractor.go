package schema

import (
	"context"
	"database/sql"
	"fmt"

	"text2sql/internal/contextutil"
	"text2sql/internal/metrics"
)

// columnsQuery lists every column of every table in one schema, in declaration order.
const columnsQuery = `SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1
ORDER BY table_name, ordinal_position`

// Column is one column of a table as reported by the catalog.
type Column struct {
	Name string
	Type string
}

// Table is a table and its columns in ordinal order.
type Table struct {
	Name    string
	Columns []Column
}

// Extractor reads table metadata from the database catalog.
type Extractor struct {
	db     *sql.DB
	schema string
}

// NewExtractor creates an Extractor for the given catalog schema (usually "public").
func NewExtractor(db *sql.DB, schemaName string) *Extractor {
	if schemaName == "" {
		schemaName = "public"
	}
	return &Extractor{db: db, schema: schemaName}
}

// Tables runs the catalog query and groups its rows by table, keeping first-seen order.
func (e *Extractor) Tables(ctx context.Context) ([]Table, error) {
	logger := contextutil.LoggerFromContext(ctx)

	rows, err := e.db.QueryContext(ctx, columnsQuery, e.schema)
	if err != nil {
		logger.ErrorContext(ctx, "failed to query catalog", "schema", e.schema, "error", err)
		return nil, fmt.Errorf("query catalog columns: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var tables []Table
	index := make(map[string]int)
	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		i, ok := index[tableName]
		if !ok {
			i = len(tables)
			index[tableName] = i
			tables = append(tables, Table{Name: tableName})
		}
		tables[i].Columns = append(tables[i].Columns, Column{Name: columnName, Type: dataType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	metrics.ObserveExtract(len(tables))
	logger.InfoContext(ctx, "catalog read", "schema", e.schema, "tables", len(tables))
	return tables, nil
}

// Extract reads the catalog and renders it as schema text.
func (e *Extractor) Extract(ctx context.Context) (string, error) {
	tables, err := e.Tables(ctx)
	if err != nil {
		return "", err
	}
	return Render(tables), nil
}

// ExtractToFile renders the schema, writes it to path (overwriting) and returns the text.
func (e *Extractor) ExtractToFile(ctx context.Context, path string) (string, error) {
	text, err := e.Extract(ctx)
	if err != nil {
		return "", err
	}
	if err := Save(path, text); err != nil {
		return "", err
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "schema file written", "path", path, "bytes", len(text))
	return text, nil
}
