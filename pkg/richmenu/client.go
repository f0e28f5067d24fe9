package richmenu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/YspCoder/menuctl/pkg/config"
	"github.com/YspCoder/menuctl/pkg/logger"
)

const (
	DefaultAPIBase     = "https://api.line.me/v2/bot"
	DefaultDataAPIBase = "https://api-data.line.me/v2/bot"

	DefaultRetryBaseDelay = time.Second
	DefaultTimeout        = 30 * time.Second

	// MaxRetriesLimit bounds Options.MaxRetries so base*2^attempt stays finite.
	MaxRetriesLimit = 10
)

// placeholderTokens count as no credential at all.
var placeholderTokens = map[string]bool{
	"YOUR_CHANNEL_ACCESS_TOKEN": true,
	"your_channel_access_token": true,
	"<token>":                   true,
	"changeme":                  true,
}

type Options struct {
	AccessToken       string
	APIBase           string
	DataAPIBase       string
	MaxRetries        int // retries after the first 429; zero disables retrying
	RetryBaseDelay    time.Duration
	Timeout           time.Duration
	MaxImageBytes     int
	MaxBulkUsers      int
	AllowedSizes      []Size   // defaults to DefaultSizes
	AllowedImageTypes []string // defaults to PNG and JPEG
	HTTPClient        *http.Client
}

// Client talks to the LINE rich menu endpoints. It is safe for concurrent use;
// the access token is last-write-wins.
type Client struct {
	token         atomic.Pointer[string]
	apiBase       string
	dataAPIBase   string
	maxRetries    int
	baseDelay     time.Duration
	maxImageBytes int
	maxBulkUsers  int
	allowedSizes  []Size
	allowedTypes  map[string]bool
	httpClient    *http.Client
	sleep         func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Client {
	if opts.APIBase == "" {
		opts.APIBase = DefaultAPIBase
	}
	if opts.DataAPIBase == "" {
		opts.DataAPIBase = DefaultDataAPIBase
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxRetries > MaxRetriesLimit {
		opts.MaxRetries = MaxRetriesLimit
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	// Configured limits may tighten LINE's ceilings, never raise them.
	if opts.MaxImageBytes <= 0 || opts.MaxImageBytes > MaxImageBytes {
		opts.MaxImageBytes = MaxImageBytes
	}
	if opts.MaxBulkUsers <= 0 || opts.MaxBulkUsers > MaxBulkUsers {
		opts.MaxBulkUsers = MaxBulkUsers
	}
	if len(opts.AllowedSizes) == 0 {
		opts.AllowedSizes = DefaultSizes()
	}
	if len(opts.AllowedImageTypes) == 0 {
		opts.AllowedImageTypes = []string{ContentTypePNG, ContentTypeJPEG}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	allowedTypes := make(map[string]bool, len(opts.AllowedImageTypes))
	for _, t := range opts.AllowedImageTypes {
		allowedTypes[strings.ToLower(strings.TrimSpace(t))] = true
	}

	c := &Client{
		apiBase:       strings.TrimRight(opts.APIBase, "/"),
		dataAPIBase:   strings.TrimRight(opts.DataAPIBase, "/"),
		maxRetries:    opts.MaxRetries,
		baseDelay:     opts.RetryBaseDelay,
		maxImageBytes: opts.MaxImageBytes,
		maxBulkUsers:  opts.MaxBulkUsers,
		allowedSizes:  append([]Size(nil), opts.AllowedSizes...),
		allowedTypes:  allowedTypes,
		httpClient:    opts.HTTPClient,
		sleep:         sleepContext,
	}
	c.SetAccessToken(opts.AccessToken)
	return c
}

// NewFromConfig builds a client from the line, retry and richmenu sections.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if cfg.LINE.TimeoutSec <= 0 {
		return nil, fmt.Errorf("invalid line.timeout_sec: %d", cfg.LINE.TimeoutSec)
	}
	sizes := make([]Size, 0, len(cfg.RichMenu.AllowedSizes))
	for _, raw := range cfg.RichMenu.AllowedSizes {
		size, err := ParseSize(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid richmenu.allowed_sizes: %w", err)
		}
		sizes = append(sizes, size)
	}
	return New(Options{
		AccessToken:       cfg.GetAccessToken(),
		APIBase:           cfg.LINE.APIBase,
		DataAPIBase:       cfg.LINE.DataAPIBase,
		MaxRetries:        cfg.Retry.MaxRetries,
		RetryBaseDelay:    time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		Timeout:           time.Duration(cfg.LINE.TimeoutSec) * time.Second,
		MaxImageBytes:     cfg.RichMenu.MaxImageBytes,
		MaxBulkUsers:      cfg.RichMenu.MaxBulkUsers,
		AllowedSizes:      sizes,
		AllowedImageTypes: cfg.RichMenu.AllowedImageTypes,
	}), nil
}

func (c *Client) SetAccessToken(token string) {
	token = strings.TrimSpace(token)
	c.token.Store(&token)
}

// AllowedSizes returns the menu sizes this client was configured with.
func (c *Client) AllowedSizes() []Size {
	return append([]Size(nil), c.allowedSizes...)
}

// HasAccessToken reports whether a usable (non-placeholder) token is set.
func (c *Client) HasAccessToken() bool {
	_, err := c.credential()
	return err == nil
}

func (c *Client) credential() (string, error) {
	p := c.token.Load()
	if p == nil || *p == "" || placeholderTokens[*p] {
		return "", errUnauthenticated()
	}
	return *p, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type request struct {
	method      string
	base        string
	path        string
	body        []byte
	contentType string
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// send performs r, retrying on 429 with base*2^attempt backoff. Any other
// status is returned as-is for the caller to normalize.
func (c *Client) send(ctx context.Context, r request) (*response, error) {
	token, err := c.credential()
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.roundTrip(ctx, token, r)
		if err != nil {
			return nil, err
		}
		if resp.status != http.StatusTooManyRequests || attempt >= c.maxRetries {
			return resp, nil
		}

		delay := backoffDelay(c.baseDelay, attempt)
		logger.WarnCF("richmenu", "Rate limited, backing off", map[string]interface{}{
			logger.FieldMethod:  r.method,
			logger.FieldPath:    r.path,
			logger.FieldAttempt: attempt + 1,
			logger.FieldDelay:   delay.String(),
		})
		if err := c.sleep(ctx, delay); err != nil {
			return nil, errTransport(err)
		}
	}
}

// backoffDelay returns base*2^attempt, saturating instead of overflowing.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt >= 62 || base > time.Duration(math.MaxInt64)>>attempt {
		return time.Duration(math.MaxInt64)
	}
	return base << attempt
}

func (c *Client) roundTrip(ctx context.Context, token string, r request) (*response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.base+r.path, body)
	if err != nil {
		return nil, errTransport(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	logger.DebugCF("richmenu", "LINE API request", map[string]interface{}{
		logger.FieldMethod: r.method,
		logger.FieldPath:   r.path,
		logger.FieldBytes:  len(r.body),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errTransport(fmt.Errorf("failed to read response: %w", err))
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

var successMarker = json.RawMessage(`{"success":true}`)

// Result is a normalized success body. Exactly one of JSON or Text is set;
// empty bodies carry the {"success":true} marker in JSON.
type Result struct {
	StatusCode int
	JSON       json.RawMessage
	Text       string
}

func (r *Result) IsSuccessMarker() bool {
	return bytes.Equal(r.JSON, successMarker)
}

func (r *Result) IsText() bool {
	return r.JSON == nil
}

// Decode unmarshals a JSON result into v.
func (r *Result) Decode(v interface{}) error {
	if r.JSON == nil {
		return fmt.Errorf("response is not JSON")
	}
	return json.Unmarshal(r.JSON, v)
}

func (r *Result) MarshalJSON() ([]byte, error) {
	if r.JSON != nil {
		return r.JSON, nil
	}
	return json.Marshal(map[string]interface{}{"success": true, "raw": r.Text})
}

func normalize(resp *response) (*Result, error) {
	if resp.status < 200 || resp.status > 299 {
		return nil, newStatusError(resp.status, resp.body)
	}

	trimmed := bytes.TrimSpace(resp.body)
	if resp.status == http.StatusNoContent || len(trimmed) == 0 || string(trimmed) == "{}" {
		return &Result{StatusCode: resp.status, JSON: successMarker}, nil
	}
	// LINE labels JSON inconsistently, so the body decides, not Content-Type.
	if json.Valid(trimmed) {
		return &Result{StatusCode: resp.status, JSON: json.RawMessage(trimmed)}, nil
	}
	return &Result{StatusCode: resp.status, Text: string(resp.body)}, nil
}

// Do sends a control-plane request and returns the normalized body. body is
// JSON-encoded when non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*Result, error) {
	r := request{method: method, base: c.apiBase, path: path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errValidation("failed to encode request body: %v", err)
		}
		r.body = data
		r.contentType = "application/json"
	}

	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	return normalize(resp)
}

// doInto is Do followed by decoding a JSON result into v.
func (c *Client) doInto(ctx context.Context, method, path string, body, v interface{}) error {
	res, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if res.IsText() {
		return &Error{
			Kind:       KindUnknown,
			StatusCode: res.StatusCode,
			Message:    "unexpected non-JSON response from LINE API",
			Detail:     res.Text,
		}
	}
	if err := res.Decode(v); err != nil {
		return &Error{
			Kind:       KindUnknown,
			StatusCode: res.StatusCode,
			Message:    "unexpected response shape from LINE API",
			Detail:     res.JSON,
			Err:        err,
		}
	}
	return nil
}
