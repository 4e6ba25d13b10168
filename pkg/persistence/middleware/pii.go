package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Mask replaces the value of a masked label.
const Mask = "***"

type piiMiddleware struct {
	next     ports.TranscriptStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the values of transcript
// labels whose keys match one of the patterns. Turns are never masked:
// they must replay verbatim.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.TranscriptStore) ports.TranscriptStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, dialogueID string, t *domain.Transcript) error {
	// Clone so the caller's live transcript keeps the real values.
	cloned := t.Clone()
	for k := range cloned.Labels {
		for _, p := range m.patterns {
			if p.MatchString(k) {
				cloned.Labels[k] = Mask
				break
			}
		}
	}
	return m.next.Save(ctx, dialogueID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, dialogueID string) (*domain.Transcript, error) {
	return m.next.Load(ctx, dialogueID)
}

func (m *piiMiddleware) Delete(ctx context.Context, dialogueID string) error {
	return m.next.Delete(ctx, dialogueID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
