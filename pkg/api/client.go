// Package api is the HTTP transport to the storage backend: JSON and
// multipart POSTs with bearer authorization, request ids, logging and
// metrics, and the backend's error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sdejongh/greenbox/pkg/logging"
	"github.com/sdejongh/greenbox/pkg/metrics"
)

// maxErrorBody bounds how much of a non-2xx body is kept as the error message
const maxErrorBody = 4096

// Config holds client configuration
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	Logger     logging.Logger
	Metrics    *metrics.Metrics
	HTTPClient *http.Client // optional, overrides Timeout
}

// Client sends requests to the backend. It keeps no session state:
// the token is supplied per request.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     logging.Logger
	metrics    *metrics.Metrics
}

// New creates a new client
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "greenbox"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		logger:     logging.OrNull(cfg.Logger),
		metrics:    cfg.Metrics,
	}
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the underlying HTTP client, for plain downloads
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Request describes one backend call
type Request struct {
	// Endpoint is the path relative to the base URL
	Endpoint string
	// Query is appended to the URL when non-empty
	Query url.Values
	// Token is sent as a bearer token when non-empty
	Token string
	// JSON is encoded as the request body
	JSON any
	// Multipart replaces JSON when set
	Multipart *MultipartBody
}

// MultipartBody is a multipart/form-data body with one file part
type MultipartBody struct {
	Fields    map[string]string
	FileField string
	FileName  string
	Content   io.Reader
}

// Do sends req and decodes a 2xx JSON response into out (when out is non-nil
// and the body non-empty). Non-2xx responses and transport failures are
// mapped to *AuthError, *BusinessError or *NetworkError.
// The response code inside a 2xx body is left for the caller to interpret.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	requestID := uuid.New().String()
	ctx = logging.WithRequestID(ctx, requestID)
	log := c.logger.WithFields(logging.Fields{"endpoint": req.Endpoint})

	target := c.baseURL + req.Endpoint
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	body, contentType, err := c.encodeBody(req)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", req.Endpoint, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		// unblocks the multipart writer
		if rc, ok := body.(io.Closer); ok {
			rc.Close()
		}
		return fmt.Errorf("build %s request: %w", req.Endpoint, err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	log.Debug(ctx, "request started", logging.Fields{"authenticated": req.Token != ""})
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordRequest(req.Endpoint, metrics.OutcomeNetwork, time.Since(start))
		log.Error(ctx, "request failed", err, nil)
		return &NetworkError{Endpoint: req.Endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordRequest(req.Endpoint, metrics.OutcomeNetwork, duration)
		log.Error(ctx, "reading response failed", err, logging.Fields{"status": resp.StatusCode})
		return &NetworkError{Endpoint: req.Endpoint, Err: err}
	}

	fields := logging.Fields{"status": resp.StatusCode, "duration": duration.String()}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.metrics.RecordRequest(req.Endpoint, metrics.OutcomeAuth, duration)
		log.Warn(ctx, "request rejected", fields)
		return &AuthError{Status: resp.StatusCode, Message: errorText(data)}

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.metrics.RecordRequest(req.Endpoint, metrics.OutcomeBusiness, duration)
		log.Warn(ctx, "request failed", fields)
		return &BusinessError{Code: -1, Status: resp.StatusCode, Message: errorText(data)}
	}

	outcome := metrics.OutcomeOK
	if code, ok := peekCode(data); ok {
		fields["code"] = code
		if code != CodeOK {
			outcome = metrics.OutcomeBusiness
		}
	}
	c.metrics.RecordRequest(req.Endpoint, outcome, duration)
	log.Info(ctx, "request completed", fields)

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Endpoint, err)
	}
	return nil
}

// encodeBody returns the request body and its content type. Multipart
// bodies are streamed through a pipe so that large files are not buffered.
func (c *Client) encodeBody(req Request) (io.Reader, string, error) {
	if req.Multipart == nil {
		payload := req.JSON
		if payload == nil {
			payload = struct{}{}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}

	mp := req.Multipart
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeMultipart(writer, mp)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	return pr, writer.FormDataContentType(), nil
}

func writeMultipart(w *multipart.Writer, mp *MultipartBody) error {
	for key, value := range mp.Fields {
		if err := w.WriteField(key, value); err != nil {
			return err
		}
	}

	field := mp.FileField
	if field == "" {
		field = "file"
	}
	part, err := w.CreateFormFile(field, mp.FileName)
	if err != nil {
		return err
	}
	if mp.Content != nil {
		if _, err := io.Copy(part, mp.Content); err != nil {
			return err
		}
	}
	return nil
}

// errorText extracts a message from an error body: the envelope message
// when the body is JSON, else the trimmed text
func errorText(data []byte) string {
	var env Envelope
	if json.Unmarshal(data, &env) == nil && env.Text() != "" {
		return env.Text()
	}
	text := strings.TrimSpace(string(data))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}

// Fetch GETs an absolute URL, typically a resolved download link, and
// returns the body with its length (-1 when unknown). The caller closes
// the body. No authorization header is sent: storage links are public.
func (c *Client) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	requestID := uuid.New().String()
	ctx = logging.WithRequestID(ctx, requestID)
	log := c.logger.WithFields(logging.Fields{"endpoint": "download"})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build download request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordRequest("download", metrics.OutcomeNetwork, time.Since(start))
		log.Error(ctx, "download failed", err, logging.Fields{"url": rawURL})
		return nil, 0, &NetworkError{Endpoint: rawURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		outcome := metrics.OutcomeBusiness
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			outcome = metrics.OutcomeAuth
		}
		c.metrics.RecordRequest("download", outcome, time.Since(start))
		log.Warn(ctx, "download rejected", logging.Fields{"url": rawURL, "status": resp.StatusCode})
		return nil, 0, &BusinessError{Code: -1, Status: resp.StatusCode, Message: errorText(data)}
	}

	c.metrics.RecordRequest("download", metrics.OutcomeOK, time.Since(start))
	log.Debug(ctx, "download started", logging.Fields{"url": rawURL, "size": resp.ContentLength})
	return resp.Body, resp.ContentLength, nil
}
