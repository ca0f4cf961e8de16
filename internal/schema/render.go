package schema

import "strings"

// Render renders one CREATE TABLE block per table, separated by a blank line.
//
//	CREATE TABLE orders (
//	    id integer,
//	    total numeric
//	);
//
// Every block ends with ";\n", which is the terminator the indexer splits on.
func Render(tables []Table) string {
	blocks := make([]string, 0, len(tables))
	for _, table := range tables {
		var b strings.Builder
		b.WriteString("CREATE TABLE ")
		b.WriteString(table.Name)
		b.WriteString(" (\n")
		for i, col := range table.Columns {
			b.WriteString("    ")
			b.WriteString(col.Name)
			b.WriteString(" ")
			b.WriteString(col.Type)
			if i < len(table.Columns)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(");\n")
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}
