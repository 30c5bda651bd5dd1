// Package apiclient talks to the JABBusiness REST backend. It attaches the
// session bearer token, normalizes every failure into a typed error and
// validates decoded payloads. It never retries and never touches the
// session.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/google/go-querystring/query"
	"github.com/google/uuid"

	platformerrors "jabbusiness-client-go/internal/platform/errors"
	"jabbusiness-client-go/internal/platform/logging"
	"jabbusiness-client-go/internal/platform/observability"
)

const (
	HeaderRequestID = "X-Request-ID"
	userAgent       = "jabbctl/1.0"
)

// TokenSource supplies the bearer token for each request. An empty token
// means the request goes out without an Authorization header.
type TokenSource interface {
	Token(ctx context.Context) string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

func (s StaticToken) Token(context.Context) string { return string(s) }

type Options struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource
	Logger  *logging.Logger
	// HTTPClient replaces the transport, mostly for tests.
	HTTPClient *http.Client
}

type Client struct {
	baseURL  string
	http     *resty.Client
	tokens   TokenSource
	logger   *logging.Logger
	validate *validator.Validate
}

// apiErrorBody is the error envelope returned by the backend.
type apiErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "apiclient.new", fmt.Sprintf("invalid base url %q", opts.BaseURL))
	}
	if opts.Tokens == nil {
		opts.Tokens = StaticToken("")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(base).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetLogger(restyLogger{opts.Logger})

	c := &Client{
		baseURL:  base,
		http:     rc,
		tokens:   opts.Tokens,
		logger:   opts.Logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	rc.OnBeforeRequest(c.authorize)
	return c, nil
}

// restyLogger routes resty's own diagnostics into the HTTP log tag.
type restyLogger struct {
	l *logging.Logger
}

func (r restyLogger) Errorf(format string, v ...any) {
	r.l.ErrorTag(logging.TagHTTP, strings.TrimSpace(format), v...)
}

func (r restyLogger) Warnf(format string, v ...any) {
	r.l.WarnTag(logging.TagHTTP, strings.TrimSpace(format), v...)
}

func (r restyLogger) Debugf(format string, v ...any) {
	r.l.DebugTag(logging.TagHTTP, strings.TrimSpace(format), v...)
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// authorize runs before every request: it reads the token fresh from the
// session and stamps a request id.
func (c *Client) authorize(_ *resty.Client, r *resty.Request) error {
	if token := c.tokens.Token(r.Context()); token != "" {
		r.SetAuthToken(token)
	}
	if r.Header.Get(HeaderRequestID) == "" {
		r.SetHeader(HeaderRequestID, uuid.NewString())
	}
	return nil
}

// Do performs one request. body is JSON-encoded when non-nil; on 2xx the
// response is decoded into out (when non-nil) and validated.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, headers map[string]string) error {
	return c.do(ctx, method, path, nil, body, out, headers)
}

// Get issues a GET with params encoded as a query string. Zero-valued
// fields tagged omitempty are not sent.
func (c *Client) Get(ctx context.Context, path string, params, out any) error {
	values, err := encodeQuery(params)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindValidation, "GET "+path, "invalid query parameters", err)
	}
	return c.do(ctx, http.MethodGet, path, values, nil, out, nil)
}

func encodeQuery(params any) (url.Values, error) {
	if params == nil {
		return nil, nil
	}
	if v, ok := params.(url.Values); ok {
		return v, nil
	}
	return query.Values(params)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any, headers map[string]string) (err error) {
	op := method + " " + path
	ctx, end := observability.StartSpan(ctx, "api", op)
	defer func() { end(err) }()

	req := c.http.R().SetContext(ctx)
	if len(q) > 0 {
		req.SetQueryParamsFromValues(q)
	}
	if body != nil {
		req.SetBody(body)
	}
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.WarnTag(logging.TagHTTP, "%s failed after %s: %v", op, time.Since(start), err)
		return platformerrors.Wrap(platformerrors.KindTransport, op, "request failed", err)
	}
	c.logger.DebugTag(logging.TagHTTP, "%s -> %d in %s (id=%s)",
		op, resp.StatusCode(), resp.Time(), resp.Request.Header.Get(HeaderRequestID))
	recordRequest(ctx, method, resp)

	if !resp.IsSuccess() {
		return apiError(op, resp.StatusCode(), resp.Body())
	}
	return c.decode(op, resp.Body(), out)
}

func apiError(op string, status int, raw []byte) error {
	var body apiErrorBody
	_ = sonic.Unmarshal(raw, &body)
	msg := body.Error
	if msg == "" {
		msg = body.Message
	}
	if msg == "" {
		msg = "API Error: " + http.StatusText(status)
	}
	return platformerrors.API(op, status, msg)
}

func (c *Client) decode(op string, raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return platformerrors.Wrap(platformerrors.KindSchema, op, "malformed response body", err)
	}
	if v := reflect.Indirect(reflect.ValueOf(out)); v.Kind() == reflect.Struct {
		if err := c.validate.Struct(out); err != nil {
			return platformerrors.Wrap(platformerrors.KindSchema, op, "response failed validation", err)
		}
	}
	return nil
}

// Stream GETs path and copies the raw body into w. Used for binary
// downloads that must not be buffered or decoded.
func (c *Client) Stream(ctx context.Context, path string, q url.Values, w io.Writer) (n int64, err error) {
	op := http.MethodGet + " " + path
	ctx, end := observability.StartSpan(ctx, "api", op)
	defer func() { end(err) }()

	req := c.http.R().SetContext(ctx).SetDoNotParseResponse(true).SetHeader("Accept", "*/*")
	if len(q) > 0 {
		req.SetQueryParamsFromValues(q)
	}
	resp, err := req.Get(path)
	if err != nil {
		return 0, platformerrors.Wrap(platformerrors.KindTransport, op, "request failed", err)
	}
	raw := resp.RawBody()
	defer raw.Close()
	recordRequest(ctx, http.MethodGet, resp)

	if !resp.IsSuccess() {
		data, _ := io.ReadAll(io.LimitReader(raw, 64<<10))
		return 0, apiError(op, resp.StatusCode(), data)
	}
	n, err = io.Copy(w, raw)
	if err != nil {
		return n, platformerrors.Wrap(platformerrors.KindTransport, op, "download interrupted", err)
	}
	c.logger.DebugTag(logging.TagHTTP, "%s streamed %d bytes", op, n)
	observability.RecordMetric(ctx, "api.download_bytes", float64(n), nil)
	return n, nil
}

func recordRequest(ctx context.Context, method string, resp *resty.Response) {
	observability.RecordMetric(ctx, "api.request_ms", float64(resp.Time().Microseconds())/1000, map[string]string{
		"method": method,
		"status": strconv.Itoa(resp.StatusCode()),
	})
}
