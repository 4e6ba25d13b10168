package domain

// TurnReport is the serializable outcome of a turn, as returned by the
// HTTP and MCP surfaces.
type TurnReport struct {
	DialogueID string   `json:"dialogue_id"`
	Turn       int      `json:"turn"`
	Expression string   `json:"expression"`
	Goal       string   `json:"goal,omitempty"`
	Result     string   `json:"result,omitempty"`
	Messages   []string `json:"messages,omitempty"`
	Errors     []*Error `json:"errors,omitempty"`
}

// Failed reports whether the turn left unresolved exceptions.
func (r *TurnReport) Failed() bool {
	return len(r.Errors) > 0
}

// DialogueSnapshot describes the live state of a dialogue. Goals are
// rendered as P-expressions, oldest first.
type DialogueSnapshot struct {
	ID         string   `json:"id"`
	Turn       int      `json:"turn"`
	Nodes      int      `json:"nodes"`
	Goals      []string `json:"goals"`
	OtherGoals []string `json:"other_goals,omitempty"`
	Exceptions []*Error `json:"exceptions,omitempty"`
}

// TypeInfo describes a registered node type.
type TypeInfo struct {
	Name      string `json:"name"`
	OutType   string `json:"out_type"`
	Level     Level  `json:"level"`
	Operator  bool   `json:"operator,omitempty"`
	Signature string `json:"signature"`
}
