package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/tendril/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Handler builds the HTTP API of the app, metrics included.
func (a *App) Handler() (http.Handler, error) {
	return httpadapter.NewHandler(a.Manager,
		httpadapter.WithLogger(a.Logger),
		httpadapter.WithMetricsHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})),
	)
}

// Serve runs the HTTP API on ln until ctx is done, then drains requests
// for at most the configured shutdown timeout.
func Serve(ctx context.Context, app *App, ln net.Listener) error {
	handler, err := app.Handler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with ctx instead of holding Shutdown open.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info("http server listening", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := app.Config.HTTP.ShutdownTimeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Warn("graceful shutdown did not complete", "timeout", timeout, "error", err)
			if cerr := srv.Close(); cerr != nil {
				return fmt.Errorf("error killing server: %w", cerr)
			}
		}
		app.Logger.Info("http server stopped")
		return nil
	})
	return g.Wait()
}
