// Package answer implements grounded answer generation: it retrieves the
// chunks most relevant to a question from the vector store and asks the chat
// model to answer using only that context.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/docqa/docqa-go/internal/budget"
	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/rag"
)

var (
	// ErrEmptyQuestion indicates the question was empty or whitespace-only.
	ErrEmptyQuestion = errors.New("question must not be empty")

	// ErrGeneration indicates the chat model failed to produce an answer.
	ErrGeneration = errors.New("answer generation failed")
)

// NoDocumentsResponse is returned verbatim when the store holds no chunks.
// The model is never called in that case.
const NoDocumentsResponse = "No documents have been ingested yet. Upload a document and ask again."

// systemPrompt pins the model to the retrieved excerpts.
const systemPrompt = `You are a document assistant. Answer questions using only the provided document excerpts. Be concise and factual. If the excerpts do not contain the information needed, say so plainly instead of guessing.`

// contextSeparator joins retrieved chunks in the user prompt.
const contextSeparator = "\n\n---\n\n"

// Defaults applied by NewGenerator when Config leaves them zero.
const (
	DefaultTopK        = 3
	DefaultMaxTokens   = 450
	DefaultTemperature = 0
)

// ChatModel is the narrow slice of the eino chat model used for generation.
// model.ToolCallingChatModel satisfies it.
type ChatModel interface {
	Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config holds the dependencies and tuning for a Generator.
type Config struct {
	// Model is the chat model backend constructed by the provider factory.
	Model ChatModel

	// Retriever fetches grounding context for each question.
	Retriever rag.Retriever

	// Store is consulted for the chunk count so an empty knowledge base
	// short-circuits before any model call.
	Store rag.VectorStore

	// TopK is the number of chunks retrieved per question. Defaults to 3.
	TopK int

	// MaxTokens caps the model response length. Defaults to 450.
	MaxTokens int

	// Temperature controls response randomness. Grounded answering wants
	// determinism, so the default is 0.
	Temperature float32

	// MaxContextTokens bounds the estimated size of the retrieved context.
	// Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int
}

// Answer is the result of answering one question.
type Answer struct {
	// Text is the model's answer, or NoDocumentsResponse.
	Text string

	// Sources lists the distinct document filenames whose chunks grounded
	// the answer, in retrieval order. Empty when no chunks were used.
	Sources []string
}

// Generator answers questions grounded in ingested documents.
type Generator struct {
	model            ChatModel
	retriever        rag.Retriever
	store            rag.VectorStore
	topK             int
	maxTokens        int
	temperature      float32
	maxContextTokens int
}

// NewGenerator constructs a Generator from the provided Config.
func NewGenerator(cfg *Config) (*Generator, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("answer: Model must not be nil")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("answer: Retriever must not be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("answer: Store must not be nil")
	}

	g := &Generator{
		model:            cfg.Model,
		retriever:        cfg.Retriever,
		store:            cfg.Store,
		topK:             cfg.TopK,
		maxTokens:        cfg.MaxTokens,
		temperature:      cfg.Temperature,
		maxContextTokens: cfg.MaxContextTokens,
	}
	if g.topK <= 0 {
		g.topK = DefaultTopK
	}
	if g.maxTokens <= 0 {
		g.maxTokens = DefaultMaxTokens
	}
	if g.temperature < 0 {
		g.temperature = DefaultTemperature
	}
	if g.maxContextTokens <= 0 {
		g.maxContextTokens = budget.DefaultMaxContextTokens
	}
	return g, nil
}

// Ask answers a question using the ingested documents. An empty store yields
// NoDocumentsResponse without calling the model.
func (g *Generator) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	log := logging.FromContext(ctx)

	count, err := g.store.Count(ctx)
	if err != nil {
		return Answer{}, fmt.Errorf("answer: counting stored chunks: %w", err)
	}
	if count == 0 {
		log.Debug("no documents in store, returning fixed response")
		return Answer{Text: NoDocumentsResponse}, nil
	}

	docs, err := g.retriever.Retrieve(ctx, question, g.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("answer: retrieving context: %w", err)
	}
	if len(docs) == 0 {
		return Answer{Text: NoDocumentsResponse}, nil
	}

	reserved := budget.Estimate(systemPrompt) + budget.Estimate(question) + g.maxTokens
	docs = budget.TrimContext(docs, reserved, g.maxContextTokens)

	msg, err := g.model.Generate(ctx, g.buildMessages(question, docs),
		model.WithTemperature(g.temperature),
		model.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return Answer{}, fmt.Errorf("%w: model returned empty response", ErrGeneration)
	}

	log.Debug("answer generated",
		slog.Int("context_chunks", len(docs)),
		slog.Int("answer_chars", len(text)))

	return Answer{Text: text, Sources: sources(docs)}, nil
}

// buildMessages assembles the system and user messages for the model.
func (g *Generator) buildMessages(question string, docs []rag.Document) []*schema.Message {
	var b strings.Builder
	b.WriteString("Document excerpts:\n\n")
	for i, d := range docs {
		if i > 0 {
			b.WriteString(contextSeparator)
		}
		fmt.Fprintf(&b, "[%s]\n%s", d.Source, d.Content)
	}
	b.WriteString("\n\nAnswer the question using the excerpts above. If they do not contain enough information, say so.\n\nQuestion: ")
	b.WriteString(question)

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(b.String()),
	}
}

// sources returns the distinct Source values of docs, preserving order.
func sources(docs []rag.Document) []string {
	seen := make(map[string]bool, len(docs))
	var out []string
	for _, d := range docs {
		if d.Source == "" || seen[d.Source] {
			continue
		}
		seen[d.Source] = true
		out = append(out, d.Source)
	}
	return out
}
