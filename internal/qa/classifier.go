package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docqa-backend/internal/extraction"
	"docqa-backend/internal/llm"
)

const classifierSystemPrompt = "You are a strict binary classifier. Decide whether the provided context " +
	"contains the information needed to answer the user's question. " +
	"Respond with exactly one word: YES or NO. Do not explain."

// Verdict is the parsed classifier output. Anything the model says that is
// not recognizably yes or no is unparseable, and unparseable folds into the
// not-related default.
type Verdict int

const (
	VerdictNo Verdict = iota
	VerdictYes
	VerdictUnparseable
)

type Classifier struct {
	completer    llm.Completer
	contextLimit int
}

func NewClassifier(completer llm.Completer, contextLimit int) *Classifier {
	return &Classifier{completer: completer, contextLimit: contextLimit}
}

// IsRelated reports whether docContext can answer question, via a single
// external call. A failed call or a malformed response is treated as not
// related, so an endpoint failure never promotes an answer to
// document-grounded.
func (c *Classifier) IsRelated(ctx context.Context, question, docContext string) bool {
	// Only the context is bounded. Truncating the question would change what
	// is being classified.
	truncated := extraction.Truncate(docContext, c.contextLimit)

	prompt := fmt.Sprintf(
		"Context:\n%s\n\nQuestion: %s\n\nCan the context answer the question? Answer YES or NO.",
		truncated, question,
	)

	res, err := c.completer.Complete(ctx, classifierSystemPrompt, prompt)
	if err != nil {
		slog.Warn("relevance classification failed, defaulting to not related", "error", err)
		return false
	}

	return ParseVerdict(res) == VerdictYes
}

func ParseVerdict(s string) Verdict {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "Y"):
		return VerdictYes
	case strings.HasPrefix(s, "N"):
		return VerdictNo
	default:
		return VerdictUnparseable
	}
}
