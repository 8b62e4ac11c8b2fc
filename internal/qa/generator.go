package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docqa-backend/internal/llm"
)

const (
	contextSystemPrompt = "You are a helpful assistant. Answer the user's question using only the " +
		"provided context. If the answer is not present in the context, reply exactly: " +
		"I don't have enough information. " +
		"Answer in plain text without any markdown formatting."

	generalSystemPrompt = "You are a helpful general-purpose assistant. " +
		"Answer in plain text without any markdown formatting."
)

// FallbackAnswer replaces the generated text when the external call fails,
// so the client always receives a normally shaped reply.
const FallbackAnswer = "Sorry, I couldn't generate a response. Please try again."

// Generator produces the final answer text. Both paths are one external call
// with a different system instruction; neither retries.
type Generator struct {
	completer llm.Completer
}

func NewGenerator(completer llm.Completer) *Generator {
	return &Generator{completer: completer}
}

// FromContext answers strictly from docContext. The context is already
// bounded at ingestion, so it is passed through untruncated.
func (g *Generator) FromContext(ctx context.Context, question, docContext string) string {
	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", docContext, question)

	res, err := g.completer.Complete(ctx, contextSystemPrompt, prompt)
	if err != nil {
		slog.Error("context answer generation failed", "error", err)
		return FallbackAnswer
	}
	return strings.TrimSpace(res)
}

// General answers without any grounding context.
func (g *Generator) General(ctx context.Context, question string) string {
	res, err := g.completer.Complete(ctx, generalSystemPrompt, question)
	if err != nil {
		slog.Error("general answer generation failed", "error", err)
		return FallbackAnswer
	}
	return strings.TrimSpace(res)
}
