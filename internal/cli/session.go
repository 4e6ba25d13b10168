package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/session"
	"golang.org/x/term"
)

// SessionOptions configures an interactive session.
type SessionOptions struct {
	// DialogueID names a persisted dialogue to resume. Empty runs an
	// ephemeral dialogue.
	DialogueID string
	// Fresh discards the stored transcript before starting.
	Fresh    bool
	Headless bool
	// JSON speaks JSON Lines instead of markdown. Implies Headless.
	JSON bool

	Input  io.Reader
	Output io.Writer
}

// RunSession runs the REPL, resuming and recording the dialogue when a
// DialogueID is given.
func RunSession(ctx context.Context, app *App, opts SessionOptions) error {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.JSON {
		opts.Headless = true
	}

	d := app.Engine.NewDialog()
	r := &tendril.Runner{
		Input:    NewInterruptibleReader(opts.Input, ctx.Done()),
		Output:   opts.Output,
		Headless: opts.Headless,
		JSON:     opts.JSON,
	}

	interactive := !opts.Headless && isTerminal(opts.Input)
	if interactive {
		tui.PrintBanner(opts.Output)
		r.Renderer = tui.NewRenderer()
	}

	if opts.DialogueID != "" {
		rec, err := resume(ctx, app, opts.DialogueID, opts.Fresh)
		if err != nil {
			return err
		}
		if err := d.Replay(ctx, rec.expressions()); err != nil {
			return fmt.Errorf("failed to replay dialogue: %w", err)
		}
		r.Recorder = rec
		if !opts.Headless {
			if len(rec.transcript.Turns) > 0 {
				printSystemMessage(opts.Output, "Resumed '%s' after %d turns.", opts.DialogueID, len(rec.transcript.Turns))
			} else {
				printSystemMessage(opts.Output, "Dialogue '%s' active.", opts.DialogueID)
			}
		}
	}

	err := r.Run(ctx, d)
	if err != nil && !opts.Headless && isInterrupted(err) {
		fmt.Fprintln(opts.Output)
		printSystemMessage(opts.Output, "Interrupted at turn %d.", d.CurrentTurn())
	}
	return handleExecutionError(err)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// transcriptRecorder persists REPL turns through the session manager lock,
// so a served dialogue and a REPL never interleave writes.
type transcriptRecorder struct {
	manager    *session.Manager
	store      ports.TranscriptStore
	transcript *domain.Transcript
}

func resume(ctx context.Context, app *App, id string, fresh bool) (*transcriptRecorder, error) {
	rec := &transcriptRecorder{manager: app.Manager, store: app.Store}
	err := app.Manager.WithLock(ctx, id, func(ctx context.Context) error {
		if fresh {
			if err := app.Store.Delete(ctx, id); err != nil {
				return err
			}
		}
		t, err := app.Store.Load(ctx, id)
		if errors.Is(err, domain.ErrDialogueNotFound) {
			t = domain.NewTranscript(id)
			err = app.Store.Save(ctx, id, t)
		}
		rec.transcript = t
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load dialogue %q: %w", id, err)
	}
	app.Logger.Info("session ready", "dialogue_id", id, "turns", len(rec.transcript.Turns))
	return rec, nil
}

func (r *transcriptRecorder) expressions() []string {
	out := make([]string, len(r.transcript.Turns))
	for i, t := range r.transcript.Turns {
		out[i] = t.Expression
	}
	return out
}

func (r *transcriptRecorder) Record(ctx context.Context, expression string, failed bool) error {
	t := r.transcript.Clone()
	t.Append(expression, failed)
	return r.save(ctx, t)
}

func (r *transcriptRecorder) Reset(ctx context.Context) error {
	t := domain.NewTranscript(r.transcript.ID)
	t.CreatedAt = r.transcript.CreatedAt
	t.Labels = r.transcript.Labels
	return r.save(ctx, t)
}

func (r *transcriptRecorder) save(ctx context.Context, t *domain.Transcript) error {
	err := r.manager.WithLock(ctx, t.ID, func(ctx context.Context) error {
		return r.store.Save(ctx, t.ID, t)
	})
	if err != nil {
		return err
	}
	r.transcript = t
	return nil
}
