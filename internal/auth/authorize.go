package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const loopbackAddr = "127.0.0.1:0"

// Authorize runs the installed-app consent flow: it prints the consent URL
// to out, waits for the browser to come back to a loopback listener,
// exchanges the code and saves the token.
func Authorize(ctx context.Context, cfg *oauth2.Config, tokenFile string, out io.Writer) error {
	ln, err := net.Listen("tcp", loopbackAddr)
	if err != nil {
		return fmt.Errorf("listen for oauth redirect: %w", err)
	}
	flow := *cfg
	flow.RedirectURL = "http://" + ln.Addr().String() + "/"
	state := uuid.NewString()

	codes := make(chan string, 1)
	failures := make(chan error, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			if e := q.Get("error"); e != "" {
				http.Error(w, "authorization denied", http.StatusForbidden)
				select {
				case failures <- fmt.Errorf("%w: %s", ErrDenied, e):
				default:
				}
				return
			}
			_, _ = io.WriteString(w, "Authorized. You can close this window.\n")
			select {
			case codes <- q.Get("code"):
			default:
			}
		}),
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case failures <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	consent := flow.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if _, err := fmt.Fprintf(out, "Open this URL in a browser and grant access:\n\n%s\n\n", consent); err != nil {
		return err
	}

	var code string
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-failures:
		return err
	case code = <-codes:
	}

	tok, err := flow.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := SaveToken(tokenFile, tok); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Token saved to %s\n", tokenFile)
	return nil
}
