package iam

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
// It follows the Go module path convention for OTel instrumentation libraries.
const tracerName = "github.com/Halderpritam123/go-common/pkg/iam"

// defaultErrorMessage is the synthetic failure message when a transport
// error carries no usable text.
const defaultErrorMessage = "Something unexpected went wrong"

// Response is the outcome of a [Caller] dispatch. The body is fully read
// and the connection released before the Response is returned.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return dmerr.Wrap(err, dmerr.CodeValidationFormat,
			"iam: response body is not valid JSON")
	}
	return nil
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Caller dispatches outbound HTTP calls on behalf of the service. Every
// call injects the current service token into the X-Service-Token header.
//
// A 401 response triggers the recovery path: the service token is
// validated, and when it really is invalid it is refetched and the call is
// re-dispatched exactly once. A second 401 is returned as-is. When the
// optimistic validation says the token is fine, the original 401 is
// returned unchanged; the failure belongs to the caller, not the token.
//
// Transport-level failures (connection refused, DNS, timeout) never
// surface as Go errors. They are logged and converted into a synthetic
// status-400 [Response] with body {message, success:false}, so gateway
// code handles exactly one shape of failure. The error return of the
// dispatch methods is reserved for malformed inputs (unencodable body,
// invalid URL).
//
// A Caller is safe for concurrent use.
type Caller struct {
	cred    *ServiceCredential
	manager *TokenManager
	client  *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewCaller creates a Caller that authenticates with cred and recovers
// stale tokens through manager.
func NewCaller(cred *ServiceCredential, manager *TokenManager) *Caller {
	return &Caller{
		cred:    cred,
		manager: manager,
		client:  &http.Client{},
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
}

// Get dispatches a GET request.
func (c *Caller) Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, nil, params, headers)
}

// Post dispatches a POST request with a JSON-encoded body.
func (c *Caller) Post(ctx context.Context, rawURL string, body any, params url.Values, headers http.Header) (*Response, error) {
	return c.do(ctx, http.MethodPost, rawURL, body, params, headers)
}

// Put dispatches a PUT request with a JSON-encoded body.
func (c *Caller) Put(ctx context.Context, rawURL string, body any, params url.Values, headers http.Header) (*Response, error) {
	return c.do(ctx, http.MethodPut, rawURL, body, params, headers)
}

// Delete dispatches a DELETE request.
func (c *Caller) Delete(ctx context.Context, rawURL string, params url.Values, headers http.Header) (*Response, error) {
	return c.do(ctx, http.MethodDelete, rawURL, nil, params, headers)
}

// do runs the dispatch loop: at most two attempts, the second only after a
// 401 whose token validation failed and whose refetch succeeded. A bounded
// loop rather than recursion guarantees termination.
func (c *Caller) do(ctx context.Context, method, rawURL string, body any, params url.Values, headers http.Header) (*Response, error) {
	target, err := buildURL(rawURL, params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, dmerr.Wrap(err, dmerr.CodeInternal,
				"iam: failed to encode request body")
		}
	}

	// Bound the whole call, including the retry, when the caller's
	// context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultRequestTimeout)
		defer cancel()
	}

	const maxAttempts = 2
	for attempt := 1; ; attempt++ {
		resp := c.dispatch(ctx, method, target, payload, headers, attempt)

		if resp.StatusCode != http.StatusUnauthorized || attempt == maxAttempts {
			return resp, nil
		}
		if c.manager.ValidateServiceToken(ctx) {
			// The token checks out; the 401 belongs to the caller.
			return resp, nil
		}
		if err := c.manager.FetchServiceToken(ctx, ""); err != nil {
			c.logger.ErrorContext(ctx, "service token refetch failed after 401",
				"url", target, "error", err)
			return resp, nil
		}
	}
}

// dispatch performs one HTTP round trip and converts any transport failure
// into a synthetic status-400 response.
func (c *Caller) dispatch(ctx context.Context, method, target string, payload []byte, headers http.Header, attempt int) *Response {
	ctx, span := c.tracer.Start(ctx, "iam."+method,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", target),
		attribute.Int("http.request.resend_count", attempt-1),
	)

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		finishSpan(span, err)
		return c.syntheticFailure(ctx, target, err)
	}

	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if payload != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderServiceToken, c.cred.Token())

	resp, err := c.client.Do(req)
	if err != nil {
		finishSpan(span, err)
		return c.syntheticFailure(ctx, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		finishSpan(span, err)
		return c.syntheticFailure(ctx, target, err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	finishSpan(span, nil)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}
}

// syntheticFailure logs a transport failure and converts it into the
// status-400 response shape downstream gateways expect.
func (c *Caller) syntheticFailure(ctx context.Context, target string, err error) *Response {
	c.logger.ErrorContext(ctx, "outbound request failed",
		"url", target, "error", err)

	message := defaultErrorMessage
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	body, _ := json.Marshal(map[string]any{
		"message": message,
		"success": false,
	})

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return &Response{
		StatusCode: http.StatusBadRequest,
		Header:     header,
		Body:       body,
	}
}

// buildURL parses rawURL and appends params to its query string.
func buildURL(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", dmerr.Wrapf(err, dmerr.CodeValidation,
			"iam: invalid request URL %q", rawURL)
	}
	if len(params) > 0 {
		q := u.Query()
		for name, values := range params {
			for _, v := range values {
				q.Add(name, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// finishSpan records an error on the span (if any) and ends it. If err is
// nil, the span status is set to OK.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
