// Package chunker splits document text into overlapping fixed-size chunks
// for embedding. Splitting prefers whitespace boundaries near the end of the
// window so words are not cut mid-token.
package chunker

import (
	"fmt"
	"strings"
)

// Default chunking parameters.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// boundaryWindow is the fraction of the chunk tail searched for a whitespace
// boundary before falling back to a hard cut.
const boundaryWindow = 0.2

// Chunker splits text into overlapping chunks.
type Chunker struct {
	size    int
	overlap int
}

// New returns a Chunker with the given size and overlap in runes.
// overlap must be smaller than size or splitting could never advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split breaks text into chunks of at most size runes, each overlapping the
// previous by roughly overlap runes. Whitespace-only text yields no chunks.
// Every non-whitespace rune of the input appears in at least one chunk.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []string
	start := 0

	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// Prefer to break at the last whitespace run in the tail of the
		// window. A hard cut mid-word only happens when the tail has no
		// whitespace at all.
		if b := lastBoundary(runes[start:end]); b > 0 {
			end = start + b
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// lastBoundary returns the index just past the last whitespace rune within
// the final boundaryWindow fraction of window, or 0 when none exists there.
func lastBoundary(window []rune) int {
	minIdx := int(float64(len(window)) * (1 - boundaryWindow))
	for i := len(window) - 1; i >= minIdx; i-- {
		if isSpace(window[i]) {
			return i + 1
		}
	}
	return 0
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
