package tendril

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
)

// Runner handles the read-eval-print loop of a single dialogue using
// provided IO. This allows for easy testing and integration with
// different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	// JSON switches to JSON Lines: each input line is a JSON string or raw
	// text, each turn is answered with one TurnReport object. Implies Headless.
	JSON     bool
	Renderer ContentRenderer
	// Recorder, when set, persists every evaluated line.
	Recorder Recorder
}

// Recorder persists the turns typed into a Runner so the dialogue can be
// resumed later.
type Recorder interface {
	Record(ctx context.Context, expression string, failed bool) error
	Reset(ctx context.Context) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// Run reads one P-expression per line and evaluates it on d until the
// input ends, the user types exit or the context is cancelled.
//
// Lines starting with a colon are commands: ":goals" prints the goal list
// and ":reset" clears the dialogue.
func (r *Runner) Run(ctx context.Context, d *graph.Dialog) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	writer := r.Output
	if writer == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)
	headless := r.Headless || r.JSON

	if !headless {
		fmt.Fprintln(writer, "--- Tendril REPL ---")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !headless {
			fmt.Fprint(writer, "> ")
		}
		text, err := lineReader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		atEOF := err != nil
		input := strings.TrimSpace(text)
		if r.JSON {
			input = decodeJSONLine(input)
		}

		switch {
		case input == "":
		case input == "exit" || input == "quit":
			if !headless {
				fmt.Fprintln(writer, "Bye!")
			}
			return nil
		case input == ":goals":
			if r.JSON {
				r.encode(d.Snapshot(""))
				break
			}
			r.print(FormatSnapshot(d.Snapshot("")))
		case input == ":reset":
			d.Reset()
			if r.Recorder != nil {
				if err := r.Recorder.Reset(ctx); err != nil {
					return fmt.Errorf("failed to reset transcript: %w", err)
				}
			}
			if !r.JSON {
				r.print("_dialogue cleared_")
			}
		default:
			res, err := d.Turn(ctx, input)
			if err != nil && ctx.Err() != nil {
				return err
			}
			if r.Recorder != nil {
				if rerr := r.Recorder.Record(ctx, input, err != nil || res.Failed()); rerr != nil {
					return fmt.Errorf("failed to record turn: %w", rerr)
				}
			}
			if r.JSON {
				if err != nil {
					r.encode(&domain.TurnReport{Turn: d.CurrentTurn(), Expression: input, Errors: []*domain.Error{domain.AsError(err, domain.None)}})
				} else {
					r.encode(res.Report(""))
				}
				break
			}
			if err != nil {
				r.print(fmt.Sprintf("**error:** %v", err))
				break
			}
			r.print(FormatReport(res.Report("")))
		}

		if atEOF {
			return nil
		}
	}
}

// decodeJSONLine accepts a JSON string and falls back to the raw text.
func decodeJSONLine(line string) string {
	var val string
	if err := json.Unmarshal([]byte(line), &val); err == nil {
		return strings.TrimSpace(val)
	}
	return line
}

func (r *Runner) encode(v any) {
	if err := json.NewEncoder(r.Output).Encode(v); err != nil {
		fmt.Fprintf(r.Output, "{\"error\":%q}\n", err.Error())
	}
}

func (r *Runner) print(markdown string) {
	out := markdown
	if r.Renderer != nil {
		if rendered, err := r.Renderer(markdown); err == nil {
			out = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(out))
}

// FormatReport renders a turn report as markdown.
func FormatReport(rep *domain.TurnReport) string {
	var b strings.Builder
	if rep.Result != "" && !rep.Failed() {
		fmt.Fprintf(&b, "`%s`\n", rep.Result)
	}
	for _, msg := range rep.Messages {
		fmt.Fprintf(&b, "\n%s\n", msg)
	}
	for _, e := range rep.Errors {
		writeError(&b, e)
	}
	return b.String()
}

func writeError(b *strings.Builder, e *domain.Error) {
	label := "error"
	if e.Kind.IsRequest() {
		label = "question"
	}
	fmt.Fprintf(b, "\n**%s** (%s): %s\n", label, e.Kind, e.Message)
	for _, h := range e.Hints {
		fmt.Fprintf(b, "- %s\n", h)
	}
	for i, s := range e.Suggestions {
		fmt.Fprintf(b, "%d. `%s`\n", i+1, s)
	}
}

// FormatSnapshot renders the goal list of a dialogue as markdown.
func FormatSnapshot(snap *domain.DialogueSnapshot) string {
	if len(snap.Goals) == 0 && len(snap.OtherGoals) == 0 {
		return "_no goals_"
	}
	var b strings.Builder
	for i, g := range snap.Goals {
		fmt.Fprintf(&b, "%d. `%s`\n", i+1, g)
	}
	if len(snap.OtherGoals) > 0 {
		b.WriteString("\nparked:\n")
		for _, g := range snap.OtherGoals {
			fmt.Fprintf(&b, "- `%s`\n", g)
		}
	}
	return b.String()
}
