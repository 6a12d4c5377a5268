// Package client talks to a lambda HTTP server.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multicodec"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ipfs/go-ipld-lambda/remote/server"
	"github.com/ipfs/go-ipld-lambda/term"
)

var logger = logging.Logger("lambda/client")

// maxErrBody bounds how much of an error response is kept in an HTTPError.
const maxErrBody = 1024

// HTTPError is returned when the server answers with a non 2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error with StatusCode=%d: %s", e.StatusCode, e.Body)
}

type Client struct {
	httpClient *http.Client
	endpoint   *url.URL
	codec      multicodec.Code
	retryFor   time.Duration
}

type Option func(*Client) error

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithCodec sets the codec terms are sent in and results requested in.
// The default is dag-cbor.
func WithCodec(codec multicodec.Code) Option {
	return func(c *Client) error {
		if codec != multicodec.DagJson && codec != multicodec.DagCbor {
			return fmt.Errorf("%w: %s", term.ErrUnsupportedCodec, codec)
		}
		c.codec = codec
		return nil
	}
}

// WithRetry retries requests that fail with a network error or a 5xx status,
// backing off exponentially for at most maxElapsed.
func WithRetry(maxElapsed time.Duration) Option {
	return func(c *Client) error {
		if maxElapsed <= 0 {
			return fmt.Errorf("retry duration must be positive; got %s", maxElapsed)
		}
		c.retryFor = maxElapsed
		return nil
	}
}

// New creates a client for the server at endpoint, e.g. "http://127.0.0.1:8080".
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	c := &Client{endpoint: u, httpClient: http.DefaultClient, codec: multicodec.DagCbor}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Eval sends t to the server and returns the value it evaluates to.
func (c *Client) Eval(ctx context.Context, t term.Term) (any, error) {
	ctx, span := spanTrace(ctx, "Eval")
	defer span.End()

	b, err := term.Marshal(t, c.codec)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, "Eval", http.MethodPost, server.EvalPath, b)
	if err != nil {
		return nil, err
	}
	return term.UnmarshalValue(resp, c.codec)
}

// Put stores t on the server and returns its CID.
func (c *Client) Put(ctx context.Context, t term.Term) (cid.Cid, error) {
	ctx, span := spanTrace(ctx, "Put")
	defer span.End()

	b, err := term.Marshal(t, c.codec)
	if err != nil {
		return cid.Undef, err
	}
	resp, err := c.do(ctx, "Put", http.MethodPut, server.TermsPath, b)
	if err != nil {
		return cid.Undef, err
	}
	v, err := term.UnmarshalValue(resp, c.codec)
	if err != nil {
		return cid.Undef, err
	}
	m, _ := v.(map[string]any)
	k, ok := m["Cid"].(cid.Cid)
	if !ok {
		return cid.Undef, fmt.Errorf("unexpected response %v", v)
	}
	span.SetAttributes(attribute.String("cid", k.String()))
	return k, nil
}

// EvalStored evaluates the term the server stores under k.
func (c *Client) EvalStored(ctx context.Context, k cid.Cid) (any, error) {
	ctx, span := spanTrace(ctx, "EvalStored", trace.WithAttributes(attribute.String("cid", k.String())))
	defer span.End()

	resp, err := c.do(ctx, "EvalStored", http.MethodPost, "/lambda/v0/eval/"+k.String(), nil)
	if err != nil {
		return nil, err
	}
	return term.UnmarshalValue(resp, c.codec)
}

// Get fetches the term the server stores under k.
func (c *Client) Get(ctx context.Context, k cid.Cid) (term.Term, error) {
	ctx, span := spanTrace(ctx, "Get", trace.WithAttributes(attribute.String("cid", k.String())))
	defer span.End()

	resp, err := c.do(ctx, "Get", http.MethodGet, "/lambda/v0/terms/"+k.String(), nil)
	if err != nil {
		return nil, err
	}
	return term.Unmarshal(resp, c.codec)
}

func (c *Client) do(ctx context.Context, operation, method, path string, body []byte) ([]byte, error) {
	if c.retryFor == 0 {
		return c.attempt(ctx, operation, method, path, body)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.retryFor

	var (
		b   []byte
		err error
	)
	retryErr := backoff.Retry(func() error {
		b, err = c.attempt(ctx, operation, method, path, body)
		if retryable(ctx, err) {
			logger.Debugw("retrying request", "Operation", operation, "Error", err)
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if retryErr != nil {
		return nil, retryErr
	}
	return b, err
}

func retryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (c *Client) attempt(ctx context.Context, operation, method, path string, body []byte) (b []byte, err error) {
	m := newMeasurement(operation)
	m.host = c.endpoint.Host
	defer func() {
		m.err = err
		m.record(ctx)
	}()

	u := *c.endpoint
	u.Path = path

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	mediaType := server.MediaType(c.codec)
	if body != nil {
		req.Header.Set("Content-Type", mediaType)
	}
	req.Header.Set("Accept", mediaType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	m.latency = time.Since(start)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	m.statusCode = resp.StatusCode
	m.mediaType = resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		err = &HTTPError{StatusCode: resp.StatusCode, Body: string(errBody)}
		logger.Debugw("request failed", "Operation", operation, "Error", err)
		return nil, err
	}

	b, err = io.ReadAll(resp.Body)
	m.size = len(b)
	return b, err
}

func spanTrace(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer("go-ipld-lambda").Start(ctx, "Lambda.Client."+spanName, opts...)
}
