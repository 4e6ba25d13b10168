/*
Package tendril is a dialogue engine for task-oriented conversational agents.

Each user turn is a P-expression such as

	Flight?(dest=Lisbon, date=GT(Date(2024-05-01)))

which is compiled into a typed node graph and evaluated bottom-up. Later
turns edit earlier graphs without destroying them ("revise"), look up values
mentioned before ("refer") and repair failures by running the expressions an
error suggested ("AcceptSuggestion").

# Concept

Nodes live in an arena owned by a Dialog. Every node has a constraint level:
objects (Foo), queries (Foo?) and partial objects (Foo??). Constraints are
matched structurally against objects, through qualifiers (GT, LIKE, ...) and
aggregators (AND, OR, ANY, EXACT, ...). A revision copies only the path from
the goal root to the revised node; everything else stays shared, so the
previous goal remains intact.

# Usage

	eng, err := tendril.New(tendril.WithTypes(myCatalog))
	if err != nil {
		log.Fatal(err)
	}

	d := eng.NewDialog()
	res, err := d.Turn(ctx, "Booking(guest=Ann, nights=2)")
	if err != nil {
		log.Fatal(err) // syntax errors and unknown types
	}
	for _, e := range res.Errors {
		log.Printf("%s (try %v)", e.Message, e.Suggestions)
	}

	res, err = d.Turn(ctx, "revise(old=Booking?(), new=Booking?(nights=3), newMode=overwrite)")

Long-running dialogues are hosted by session.Manager, which serializes turns
per dialogue and persists transcripts through a ports.TranscriptStore.
*/
package tendril
