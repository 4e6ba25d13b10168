package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalContext is a context cancelled by SIGINT or SIGTERM that remembers
// which signal arrived.
type SignalContext struct {
	context.Context
	Cancel context.CancelFunc

	mu  sync.Mutex
	sig os.Signal
}

// NewSignalContext derives a SignalContext from parent. Call Cancel to
// release the signal handler.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			sc.mu.Lock()
			sc.sig = sig
			sc.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return sc
}

// Signal returns the signal that cancelled the context, nil if none did.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sig
}

var errInterrupted = errors.New("interrupted")

// InterruptibleReader stops handing REPL input to the runner once the
// dialogue is cancelled, even when the underlying read already returned.
type InterruptibleReader struct {
	base io.Reader
	done <-chan struct{}
}

func NewInterruptibleReader(base io.Reader, done <-chan struct{}) *InterruptibleReader {
	return &InterruptibleReader{base: base, done: done}
}

func (r *InterruptibleReader) Read(p []byte) (int, error) {
	if r.cancelled() {
		return 0, errInterrupted
	}
	n, err := r.base.Read(p)
	if r.cancelled() {
		return 0, errInterrupted
	}
	return n, err
}

func (r *InterruptibleReader) cancelled() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func isInterrupted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, errInterrupted) ||
		errors.Is(err, io.EOF)
}

func handleExecutionError(err error) error {
	if err == nil {
		return nil
	}
	if isInterrupted(err) {
		return nil
	}
	return err
}

func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
