package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/digitalkrishi/officer-console/pkg/client"

const (
	// DefaultServer is the advisory API used when no server is configured.
	DefaultServer = "https://api.digitalkrishi.com"
	// DefaultTimeout bounds every backend request.
	DefaultTimeout = 10 * time.Second
)

// ErrUnauthorized matches any backend response with status 401.
var ErrUnauthorized = errors.New("unauthorized")

// Observer receives one call per completed backend request. code is 0 when
// the request failed before a response arrived.
type Observer func(operation string, code int, duration time.Duration)

// Logger is satisfied by *zap.SugaredLogger.
type Logger interface {
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

type Client struct {
	rest           *resty.Client
	baseURL        string
	token          string
	userAgent      string
	timeout        time.Duration
	onUnauthorized func()
	observer       Observer
	tracer         trace.Tracer
}

type Option func(*Client) error

func New(opts ...Option) (*Client, error) {
	c := &Client{
		rest:      resty.New(),
		baseURL:   DefaultServer,
		userAgent: "krishi-officer-console",
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	c.rest.
		SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", c.userAgent)
	return c, nil
}

func WithServer(server string) Option {
	return func(c *Client) error {
		server = strings.TrimSpace(server)
		if server == "" {
			return errors.New("server is required")
		}
		parsed, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("invalid server: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("invalid server: unsupported scheme %q", parsed.Scheme)
		}
		c.baseURL = strings.TrimRight(parsed.String(), "/")
		return nil
	}
}

func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", timeout)
		}
		c.timeout = timeout
		return nil
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) error {
		c.userAgent = userAgent
		return nil
	}
}

func WithTLSConfig(caFile string, insecureSkipTLSVerify bool) Option {
	return func(c *Client) error {
		tlsConfig, err := loadTLSConfig(caFile, insecureSkipTLSVerify)
		if err != nil {
			return err
		}
		c.rest.SetTLSClientConfig(tlsConfig)
		return nil
	}
}

// WithUnauthorizedHandler registers fn to run whenever the backend answers 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) error {
		c.onUnauthorized = fn
		return nil
	}
}

// WithVerbose dumps requests and responses through logger.
func WithVerbose(verbose bool, logger Logger) Option {
	return func(c *Client) error {
		if !verbose {
			return nil
		}
		if logger != nil {
			c.rest.SetLogger(logger)
		}
		c.rest.SetDebug(true)
		return nil
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Client) error {
		c.observer = observer
		return nil
	}
}

// WithTracerProvider traces requests through tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) error {
		c.tracer = tp.Tracer(tracerName)
		return nil
	}
}

func loadTLSConfig(caFile string, insecure bool) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: insecure} //nolint:gosec // opt-in for local backends
	if caFile == "" {
		return tlsConfig, nil
	}
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(data); !ok {
		return nil, errors.New("failed to parse CA file")
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}

// ForToken returns a client bound to token that shares the underlying
// connection pool. onUnauthorized replaces the handler of c for the copy.
func (c *Client) ForToken(token string, onUnauthorized func()) *Client {
	cp := *c
	cp.token = token
	cp.onUnauthorized = onUnauthorized
	return &cp
}

// BaseURL returns the configured server.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the bearer token the client sends, if any.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) do(ctx context.Context, operation, method, endpoint string, query url.Values, body any, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "krishi."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", endpoint),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req := c.rest.R().SetContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, endpoint)
	if err != nil {
		c.observe(operation, 0, time.Since(start))
		return fmt.Errorf("%s: %w", operation, err)
	}
	c.observe(operation, resp.StatusCode(), time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))

	if resp.StatusCode() == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	if resp.StatusCode() >= 400 {
		return decodeError(resp)
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", operation, err)
	}
	return nil
}

func (c *Client) observe(operation string, code int, d time.Duration) {
	if c.observer != nil {
		c.observer(operation, code, d)
	}
}

func decodeError(resp *resty.Response) error {
	var apiErr struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	body := resp.Body()
	if len(body) > 0 {
		_ = json.Unmarshal(body, &apiErr)
	}
	msg := strings.TrimSpace(apiErr.Error)
	if msg == "" {
		msg = strings.TrimSpace(apiErr.Detail)
	}
	if msg == "" {
		msg = strings.TrimSpace(apiErr.Message)
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status()
	}
	return &HTTPError{StatusCode: resp.StatusCode(), Message: msg}
}

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

// Is makes errors.Is(err, ErrUnauthorized) hold for 401 responses.
func (e *HTTPError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsClientError reports whether err is a 4xx response. Such failures are not
// retried.
func IsClientError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
