package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"unicode/utf8"
)

// TokensPerRune is an approximation for token counting (4 chars per token).
const TokensPerRune = 4.0

// ChunkTokenStats contains statistics about estimated token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// ContentHash returns the SHA256 hex digest of the schema text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EstimateTokens approximates the token count of a chunk from its rune count.
func EstimateTokens(text string) int {
	runeCount := utf8.RuneCountInString(text)
	tokens := int(math.Round(float64(runeCount) / TokensPerRune))
	if tokens < 1 && runeCount > 0 {
		tokens = 1
	}
	return tokens
}

// TokenStatsFor computes token statistics over chunks.
func TokenStatsFor(chunks []Chunk) ChunkTokenStats {
	counts := make([]int, len(chunks))
	for i, c := range chunks {
		counts[i] = EstimateTokens(c.Text)
	}
	return computeTokenStats(counts)
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	// nearest-rank percentile
	p95Index := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	if p95Index < 0 {
		p95Index = 0
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
