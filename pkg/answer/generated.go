package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"saral/pkg/ai"
	"saral/pkg/domain"
)

// DefaultTopK is how many chunks ground a generated answer.
const DefaultTopK = 5

const generatedSystemPrompt = `You are a helpful assistant for the Ministry of Education, Department of Higher Education.
Answer ONLY from the provided documents context.
If the context is insufficient, just say you don't know.
Also give references or citations for the documents you used, taken from the chunk metadata.
Return a JSON object with exactly two fields: "response" (string, the final answer) and "sources" (array of strings).`

// ChunkSearcher finds stored chunks relevant to a query.
type ChunkSearcher interface {
	SearchChunks(ctx context.Context, query string, limit int) ([]domain.Chunk, error)
}

// GeneratedResponder answers with an LLM grounded on stored chunks.
type GeneratedResponder struct {
	gen    ai.TextGenerator
	chunks ChunkSearcher
	topK   int
}

// NewGeneratedResponder builds a responder. topK <= 0 means DefaultTopK.
func NewGeneratedResponder(gen ai.TextGenerator, chunks ChunkSearcher, topK int) *GeneratedResponder {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &GeneratedResponder{gen: gen, chunks: chunks, topK: topK}
}

// Answer retrieves context, prompts the model and parses its JSON reply.
// A reply that is not JSON becomes the response with no sources.
func (r *GeneratedResponder) Answer(ctx context.Context, query string) (Answer, error) {
	if err := ValidateQuery(query); err != nil {
		return Answer{}, err
	}
	var chunks []domain.Chunk
	if r.chunks != nil {
		found, err := r.chunks.SearchChunks(ctx, query, r.topK)
		if err != nil {
			return Answer{}, fmt.Errorf("search chunks: %w", err)
		}
		chunks = found
	}
	raw, err := r.gen.GenerateText(ctx, generatedSystemPrompt, buildUserPrompt(query, chunks))
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	return parseGenerated(ctx, raw), nil
}

func buildUserPrompt(query string, chunks []domain.Chunk) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		source := c.Metadata["source"]
		if source == "" {
			source = "Unknown"
		}
		page := c.Metadata["page"]
		if page == "" {
			page = "N/A"
		}
		fmt.Fprintf(&sb, "Source: %s, Page: %s\n%s", source, page, c.Content)
	}
	if len(chunks) == 0 {
		sb.WriteString("(no documents available)")
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	return sb.String()
}

func parseGenerated(ctx context.Context, raw string) Answer {
	cleaned := stripCodeFence(raw)
	var out Answer
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil || strings.TrimSpace(out.Response) == "" {
		slog.Default().DebugContext(ctx, "generated answer is not json, using raw text")
		return Answer{Response: cleaned, Sources: []string{}}
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	return out
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
