package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/illarion/upm/internal/logging"
)

const (
	DefaultTimeout = 10 * time.Second

	DeleteCommand   = "deletefile.php"
	UploadCommand   = "upload.php"
	DeleteFieldName = "fileToDelete"
	UploadFieldName = "userfile"

	successResponse   = "OK"
	maxResponseLength = 64
)

var ErrNotFound = errors.New("database not found in repository")

// StatusError is returned for a non-success HTTP status.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
}

// ResponseError is returned when a write command does not answer "OK".
type ResponseError struct {
	Body string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("unexpected repository response %q", e.Body)
}

// Client talks to a UPM sync repository: a directory of database files
// served over HTTP with two PHP helpers for delete and upload.
type Client struct {
	client   *http.Client
	log      logging.Logger
	baseURL  string
	user     string
	password string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log logging.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client for the repository at baseURL, authenticating
// every request with HTTP Basic Auth.
func NewClient(baseURL, user, password string, opts ...Option) *Client {
	c := &Client{
		client:   &http.Client{Timeout: DefaultTimeout},
		log:      logging.Discard(),
		baseURL:  baseURL,
		user:     user,
		password: password,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL joins the base URL and a path component with exactly one slash.
func (c *Client) URL(component string) string {
	component = url.PathEscape(component)
	if strings.HasSuffix(c.baseURL, "/") {
		return c.baseURL + component
	}
	return c.baseURL + "/" + component
}

// Download fetches the named database. A missing file is ErrNotFound.
func (c *Client) Download(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if !success(resp.StatusCode) {
		return nil, &StatusError{Method: req.Method, URL: req.URL.Redacted(), Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// Delete removes the named database from the repository.
func (c *Client) Delete(ctx context.Context, name string) error {
	form := url.Values{DeleteFieldName: {name}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(DeleteCommand), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.command(req)
}

// Upload stores data in the repository under name.
func (c *Client) Upload(ctx context.Context, name string, data []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	// CreateFormFile sets Content-Type: application/octet-stream.
	part, err := mw.CreateFormFile(UploadFieldName, name)
	if err != nil {
		return fmt.Errorf("failed to create upload part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write upload part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(UploadCommand), &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.command(req)
}

// command sends a write request and checks for the "OK" answer.
func (c *Client) command(req *http.Request) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		return &StatusError{Method: req.Method, URL: req.URL.Redacted(), Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLength+1))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxResponseLength {
		return &ResponseError{Body: string(body[:maxResponseLength]) + "..."}
	}
	if string(body) != successResponse {
		return &ResponseError{Body: string(body)}
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(c.user, c.password)

	c.log.Debug(req.Context(), "sending request", "method", req.Method, "url", req.URL.Redacted())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	c.log.Debug(req.Context(), "received response", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode)
	return resp, nil
}

func success(code int) bool {
	return code >= 200 && code < 300
}
