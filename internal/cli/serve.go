package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/trackerhub/internal/api"
	"github.com/mesh-intelligence/trackerhub/internal/auth"
	"github.com/mesh-intelligence/trackerhub/internal/session"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API over HTTP",
		Long: "Serve exposes entities, identity, session and integrations under /api.\n" +
			"The server stops gracefully on SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				addr := listen
				if addr == "" {
					addr = a.cfg.Listen
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return serve(ctx, a, addr, func(bound net.Addr) {
					fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", bound)
				})
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

// serve runs the HTTP surface until ctx is done. ready is called with the
// bound address once the listener is open.
func serve(ctx context.Context, a *app, addr string, ready func(net.Addr)) error {
	guard := session.New(
		session.WithTimeout(a.cfg.SessionTimeout),
		session.WithLogger(a.log),
		session.WithOnExpire(func() { a.identity.Logout(auth.DefaultRedirect) }),
	)
	defer guard.Stop()
	guard.Authenticate(a.identity.Authenticated())

	srv := &http.Server{
		Handler: api.NewRouter(&api.Server{
			Tables:       a.client,
			Identity:     a.identity,
			Session:      guard,
			Integrations: a.integrations,
			Logger:       a.log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if ready != nil {
		ready(ln.Addr())
	}
	a.log.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
