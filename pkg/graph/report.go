package graph

import (
	"github.com/aretw0/tendril/pkg/domain"
)

// Report converts the turn result into its serializable form.
func (r *TurnResult) Report(dialogueID string) *domain.TurnReport {
	rep := &domain.TurnReport{
		DialogueID: dialogueID,
		Turn:       r.Turn,
		Expression: r.Expression,
		Messages:   r.Messages,
		Errors:     r.Errors,
	}
	if r.Goal != nil {
		rep.Goal = r.Goal.dialog.Sexp(r.Goal)
	}
	if r.Result != nil {
		rep.Result = r.Result.dialog.Sexp(r.Result)
	}
	return rep
}

// Snapshot describes the goals and pending exceptions of the dialogue.
func (d *Dialog) Snapshot(id string) *domain.DialogueSnapshot {
	snap := &domain.DialogueSnapshot{
		ID:         id,
		Turn:       d.turn,
		Nodes:      d.Len(),
		Goals:      make([]string, 0, len(d.goals)),
		Exceptions: d.Exceptions(),
	}
	for _, g := range d.Goals() {
		snap.Goals = append(snap.Goals, d.Sexp(g))
	}
	for _, g := range d.OtherGoals() {
		snap.OtherGoals = append(snap.OtherGoals, d.Sexp(g))
	}
	return snap
}

// Catalog lists the registered types in lexical order.
func Catalog(reg *Registry) []domain.TypeInfo {
	names := reg.Names()
	out := make([]domain.TypeInfo, 0, len(names))
	for _, name := range names {
		t, err := reg.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, domain.TypeInfo{
			Name:      t.Name,
			OutType:   t.OutType,
			Level:     t.Level,
			Operator:  t.Operator,
			Signature: t.Name + t.Signature.String(),
		})
	}
	return out
}
