package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

const (
	defaultTimeout              = 10 * time.Second
	errorBodyReadLimit    int64 = 4096
	HeaderIdempotencyKey        = "Idempotency-Key"
)

var errBaseURLRequired = errors.New("backend base url is required")

// Client talks to the commerce backend API (catalog, auth, orders, CMS).
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("backend base url invalid: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type call struct {
	method  string
	path    string
	query   url.Values
	token   string
	headers map[string]string
	body    io.Reader
	ctype   string
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func jsonCall(method, path, token string, payload any) (call, error) {
	cl := call{method: method, path: path, token: token}
	if payload == nil {
		return cl, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return cl, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal backend request")
	}
	cl.body = bytes.NewReader(body)
	cl.ctype = "application/json"
	return cl, nil
}

// do executes the call and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, c.buildURL(cl.path, cl.query), cl.body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build backend request")
	}
	req.Header.Set("Accept", "application/json")
	if cl.ctype != "" {
		req.Header.Set("Content-Type", cl.ctype)
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	for k, v := range cl.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backend unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return statusError(resp.StatusCode, msg)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode backend response")
	}
	return nil
}

// CodeForStatus maps a backend HTTP status to an error code.
func CodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusRequestEntityTooLarge:
		return pkgerrors.CodePayloadTooLarge
	case http.StatusUnsupportedMediaType:
		return pkgerrors.CodeUnsupportedMedia
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	default:
		return pkgerrors.CodeDependency
	}
}

// statusError turns a non-2xx response into a typed error. The backend
// answers either {"detail": "..."} or a map of field to messages.
func statusError(status int, body []byte) error {
	code := CodeForStatus(status)
	cause := fmt.Errorf("backend status %d: %s", status, strings.TrimSpace(string(body)))

	message, fields := parseErrorBody(body)
	if message == "" {
		message = pkgerrors.MetadataFor(code).PublicMessage
	}
	typed := pkgerrors.Wrap(code, cause, message)
	if len(fields) > 0 && pkgerrors.MetadataFor(code).DetailsAllowed {
		typed = typed.WithDetails(fields)
	}
	return typed
}

func parseErrorBody(body []byte) (string, map[string]string) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", nil
	}
	var detail string
	if rawDetail, ok := raw["detail"]; ok {
		_ = json.Unmarshal(rawDetail, &detail)
		delete(raw, "detail")
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		var list []string
		if err := json.Unmarshal(v, &list); err == nil && len(list) > 0 {
			fields[k] = list[0]
			continue
		}
		var single string
		if err := json.Unmarshal(v, &single); err == nil && single != "" {
			fields[k] = single
		}
	}
	if detail == "" {
		if msgs, ok := fields["non_field_errors"]; ok {
			detail = msgs
			delete(fields, "non_field_errors")
		}
	}
	return detail, fields
}
