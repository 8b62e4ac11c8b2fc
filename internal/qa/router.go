package qa

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docqa-backend/internal/corpus"
	"docqa-backend/internal/session"
	"docqa-backend/pkg/api"
)

type Answer struct {
	Text   string
	Source api.AnswerSource
	At     time.Time
}

// Router decides the answer path for each question: a per-session uploaded
// document takes precedence, then the shared corpus, then general knowledge.
// Presence of a context gates whether classification runs at all; the
// classifier verdict gates which generation prompt is used. At most two
// sequential external calls per question.
type Router struct {
	sessions   *session.Store
	corpus     *corpus.Corpus
	classifier *Classifier
	generator  *Generator
}

func NewRouter(sessions *session.Store, shared *corpus.Corpus, classifier *Classifier, generator *Generator) *Router {
	return &Router{
		sessions:   sessions,
		corpus:     shared,
		classifier: classifier,
		generator:  generator,
	}
}

// Route produces the answer for a question on the given session. The session
// document is snapshotted once at the start, so a concurrent upload or
// disconnect never changes the context mid-question.
func (r *Router) Route(ctx context.Context, sessionID uuid.UUID, question string) Answer {
	if docText, ok := r.sessions.Document(sessionID); ok {
		return r.answerWithContext(ctx, question, docText)
	}

	if !r.corpus.Empty() {
		return r.answerWithContext(ctx, question, r.corpus.Context())
	}

	return Answer{
		Text:   r.generator.General(ctx, question),
		Source: api.SourceGeneral,
		At:     time.Now(),
	}
}

func (r *Router) answerWithContext(ctx context.Context, question, docContext string) Answer {
	if r.classifier.IsRelated(ctx, question, docContext) {
		return Answer{
			Text:   r.generator.FromContext(ctx, question, docContext),
			Source: api.SourceDocument,
			At:     time.Now(),
		}
	}

	return Answer{
		Text:   r.generator.General(ctx, question),
		Source: api.SourceGeneral,
		At:     time.Now(),
	}
}
