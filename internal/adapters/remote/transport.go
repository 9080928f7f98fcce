package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// Transport installs the Caller's policy at the HTTP layer, so every request
// made through a client inherits it. Responses with retryable status codes
// are retried; any other response is returned untouched for the client
// library to interpret.
type Transport struct {
	Base   http.RoundTripper
	Caller *Caller
	// Op labels requests in logs and metrics.
	Op string
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	op := t.Op
	if op == "" {
		op = req.URL.Host
	}

	var out *http.Response
	first := true
	err := t.Caller.Do(req.Context(), op, func(ctx context.Context) error {
		attemptReq, err := rewind(req, ctx, first)
		if err != nil {
			return &FatalError{Op: op, Err: err}
		}
		first = false

		resp, err := base.RoundTrip(attemptReq)
		if err != nil {
			return err
		}
		if !retryableStatus(resp.StatusCode) {
			out = resp
			return nil
		}
		cerr := googleapi.CheckResponse(resp)
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if class, _ := Classify(cerr); class == ClassFatal {
			// A 403 without a rate-limit reason: hand it back as-is.
			return &FatalError{Op: op, Err: cerr}
		}
		return cerr
	})
	if err != nil {
		var ferr *FatalError
		if errors.As(err, &ferr) && ferr.Op == op {
			var gerr *googleapi.Error
			if errors.As(ferr.Err, &gerr) {
				return statusResponse(req, gerr), nil
			}
		}
		return nil, err
	}
	return out, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusForbidden || code >= http.StatusInternalServerError
}

// rewind prepares a fresh copy of req for another attempt.
func rewind(req *http.Request, ctx context.Context, first bool) (*http.Request, error) {
	r := req.Clone(ctx)
	if first || req.Body == nil || req.Body == http.NoBody {
		r.Body = req.Body
		return r, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body for %s cannot be replayed", req.URL.Path)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r.Body = body
	return r, nil
}

// statusResponse rebuilds a response from a consumed error so the client
// library reports it normally.
func statusResponse(req *http.Request, gerr *googleapi.Error) *http.Response {
	body := gerr.Body
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", gerr.Code, http.StatusText(gerr.Code)),
		StatusCode:    gerr.Code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        gerr.Header,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
