package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of an upstream response is read.
const maxBody = 4 << 20

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=providertest -destination=providertest/mock_http_client.go -source=request.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request is a GET against an upstream on behalf of one provider.
type Request struct {
	Kind    Kind
	URL     string
	Query   url.Values
	Header  http.Header
	Timeout time.Duration
}

// JSON performs the request and decodes the body into out.
func (r Request) JSON(ctx context.Context, c HTTPClient, out any) error {
	return r.do(ctx, c, func(body io.Reader) error {
		if err := json.NewDecoder(body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
}

// Text performs the request and returns the body as a string.
func (r Request) Text(ctx context.Context, c HTTPClient) (string, error) {
	var text string
	err := r.do(ctx, c, func(body io.Reader) error {
		b, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		text = string(b)
		return nil
	})
	return text, err
}

func (r Request) do(ctx context.Context, c HTTPClient, read func(io.Reader) error) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u, err := url.Parse(r.URL)
	if err != nil {
		return Transport(r.Kind, fmt.Errorf("creating request: %w", err))
	}
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return Transport(r.Kind, fmt.Errorf("creating request: %w", err))
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	res, err := c.Do(req)
	if err != nil {
		return r.classify(fmt.Errorf("performing request: %w", err))
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
	case res.StatusCode == http.StatusNotFound:
		return &Failure{Provider: r.Kind, Reason: ReasonNotFound, Err: fmt.Errorf("not found")}
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		return Transport(r.Kind, fmt.Errorf("unauthorized"))
	case res.StatusCode == http.StatusTooManyRequests:
		return Transport(r.Kind, fmt.Errorf("rate limited"))
	default:
		return Transport(r.Kind, fmt.Errorf("unexpected status code: %d", res.StatusCode))
	}

	if err := read(io.LimitReader(res.Body, maxBody)); err != nil {
		return r.classify(err)
	}
	return nil
}

func (r Request) classify(err error) *Failure {
	if isTimeout(err) {
		return &Failure{Provider: r.Kind, Reason: ReasonTimeout, Err: err}
	}
	return Transport(r.Kind, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
