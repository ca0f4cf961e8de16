package indexer

import "strings"

// chunkSeparator ends every table block produced by the schema renderer.
const chunkSeparator = ";\n"

// Split cuts schema text into one chunk per table block.
// Fragments that are blank after trimming are dropped, so N blocks give N chunks
// indexed 0..N-1 in source order. Each chunk keeps its terminating ";".
func Split(text string) []Chunk {
	parts := strings.Split(text, chunkSeparator)

	chunks := make([]Chunk, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasSuffix(part, ";") {
			part += ";"
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: part})
	}
	return chunks
}
