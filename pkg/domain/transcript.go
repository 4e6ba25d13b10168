package domain

import (
	"maps"
	"slices"
	"time"
)

// TurnRecord is one persisted user turn.
type TurnRecord struct {
	Expression string    `json:"expression"`
	At         time.Time `json:"at"`
	Failed     bool      `json:"failed,omitempty"`
}

// Transcript is the persisted form of a dialogue. Graphs are never
// stored: a dialogue is rebuilt by replaying its turns in order.
type Transcript struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Turns     []TurnRecord      `json:"turns"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// NewTranscript creates an empty transcript.
func NewTranscript(id string) *Transcript {
	now := time.Now().UTC()
	return &Transcript{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Turns:     []TurnRecord{},
		Labels:    make(map[string]string),
	}
}

// Append records a turn.
func (t *Transcript) Append(expression string, failed bool) {
	now := time.Now().UTC()
	t.Turns = append(t.Turns, TurnRecord{Expression: expression, At: now, Failed: failed})
	t.UpdatedAt = now
}

// Clone returns a deep copy.
func (t *Transcript) Clone() *Transcript {
	out := *t
	out.Turns = slices.Clone(t.Turns)
	out.Labels = maps.Clone(t.Labels)
	return &out
}
