// Package budget provides token budget estimation and context trimming for
// answer generation. Because docqa supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

import (
	"github.com/docqa/docqa-go/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English prose; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models (Llama 3 8B,
	// GPT-3.5) while leaving room for the prompt scaffolding and the answer.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateDocs returns the estimated total token count for retrieved chunks,
// including a small per-chunk overhead for separators.
func EstimateDocs(docs []rag.Document) int {
	total := 0
	for _, d := range docs {
		total += 2
		total += Estimate(d.Content)
	}
	return total
}

// TrimContext drops the lowest-scoring chunks until the retrieved context
// fits within maxTokens alongside reserved tokens for the question and
// prompt scaffolding. docs must be ordered best-first, which is how the
// vector store returns them; trimming removes from the tail.
//
// If even the single best chunk exceeds the budget it is kept anyway —
// answering from truncated context beats answering from none.
func TrimContext(docs []rag.Document, reserved, maxTokens int) []rag.Document {
	if len(docs) == 0 {
		return docs
	}

	for len(docs) > 1 {
		if reserved+EstimateDocs(docs) <= maxTokens {
			break
		}
		docs = docs[:len(docs)-1]
	}
	return docs
}
