package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"saral/pkg/domain"
)

type fakeGenerator struct {
	reply      string
	err        error
	userPrompt string
}

func (f *fakeGenerator) GenerateText(_ context.Context, _, userPrompt string) (string, error) {
	f.userPrompt = userPrompt
	return f.reply, f.err
}

type fakeSearcher struct {
	chunks []domain.Chunk
	limit  int
}

func (f *fakeSearcher) SearchChunks(_ context.Context, _ string, limit int) ([]domain.Chunk, error) {
	f.limit = limit
	return f.chunks, nil
}

func TestGeneratedResponderParsesFencedJSON(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n{\"response\":\"Policy text\",\"sources\":[\"nep.pdf\"]}\n```"}
	search := &fakeSearcher{chunks: []domain.Chunk{{
		Content:  "NEP introduces the Academic Bank of Credits.",
		Metadata: map[string]string{"source": "nep.pdf", "page": "3"},
	}}}
	r := NewGeneratedResponder(gen, search, 0)

	got, err := r.Answer(context.Background(), "What is ABC?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if got.Response != "Policy text" || len(got.Sources) != 1 || got.Sources[0] != "nep.pdf" {
		t.Fatalf("answer = %+v", got)
	}
	if search.limit != DefaultTopK {
		t.Fatalf("limit = %d, want %d", search.limit, DefaultTopK)
	}
	if !strings.Contains(gen.userPrompt, "Source: nep.pdf, Page: 3") || !strings.HasSuffix(gen.userPrompt, "Question: What is ABC?") {
		t.Fatalf("unexpected prompt: %q", gen.userPrompt)
	}
}

func TestGeneratedResponderFallsBackToRawText(t *testing.T) {
	r := NewGeneratedResponder(&fakeGenerator{reply: "I don't know."}, nil, 3)
	got, err := r.Answer(context.Background(), "anything")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if got.Response != "I don't know." || got.Sources == nil || len(got.Sources) != 0 {
		t.Fatalf("answer = %+v", got)
	}
}

func TestGeneratedResponderWrapsGeneratorError(t *testing.T) {
	boom := errors.New("quota")
	r := NewGeneratedResponder(&fakeGenerator{err: boom}, nil, 0)
	if _, err := r.Answer(context.Background(), "q"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped quota error", err)
	}
}
