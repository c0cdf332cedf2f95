package ptpimg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yfzhou0904/go-to-ptpimg/util"
)

const (
	DefaultEndpoint = "https://ptpimg.me/upload.php"
	// ptpimg rejects uploads that do not claim to come from its own page
	Referer = "https://ptpimg.me/index.php"
)

// Options tunes a Client. The zero value talks to ptpimg.me with no timeout.
type Options struct {
	// Timeout bounds each network call separately; zero disables it
	Timeout time.Duration
	// Endpoint overrides DefaultEndpoint
	Endpoint string
	// HTTPClient overrides the proxy-aware default client
	HTTPClient *http.Client
	// MaxDimension downscales images larger than this before upload; zero disables it
	MaxDimension int
}

// Client uploads image files and image URLs to ptpimg.me
type Client struct {
	apiKey       string
	endpoint     string
	httpClient   *http.Client
	timeout      time.Duration
	maxDimension int
}

// NewClient creates a new uploader for apiKey
func NewClient(apiKey string, opts Options) *Client {
	c := &Client{
		apiKey:       apiKey,
		endpoint:     opts.Endpoint,
		httpClient:   opts.HTTPClient,
		timeout:      opts.Timeout,
		maxDimension: opts.MaxDimension,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: util.CreateHTTPTransportWithProxy(),
		}
	}
	return c
}

// UploadFiles uploads local image files in a single request and returns
// their hosted URLs in the same order
func (c *Client) UploadFiles(ctx context.Context, paths ...string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	var opened handles
	defer opened.Close()

	payloads := make([]Payload, 0, len(paths))
	for _, path := range paths {
		p, err := c.filePayload(path, &opened)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}

	results, err := c.perform(ctx, payloads)
	if err != nil {
		return nil, err
	}
	return resultURLs(results), nil
}

// UploadURLs downloads every image URL and re-uploads them in a single request
func (c *Client) UploadURLs(ctx context.Context, urls ...string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	payloads := make([]Payload, 0, len(urls))
	for i, url := range urls {
		p, err := c.fetchPayload(ctx, i, url)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}

	results, err := c.perform(ctx, payloads)
	if err != nil {
		return nil, err
	}
	return resultURLs(results), nil
}

// perform posts one batch and decodes the per-item results
func (c *Client) perform(ctx context.Context, payloads []Payload) ([]Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("api_key", c.apiKey); err != nil {
		return nil, err
	}
	for i, p := range payloads {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(fmt.Sprintf("file-upload[%d]", i)), escapeQuotes(p.Name)))
		header.Set("Content-Type", p.MIMEType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, p.Body); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Referer", Referer)

	util.DefaultLogger.Debugf("Uploading %d image(s) to %s", len(payloads), c.endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyNetErr("upload", c.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyNetErr("upload", c.endpoint, err)
	}
	if util.Debug(ctx) {
		util.DefaultLogger.Debugf("Upload response %d: %s", resp.StatusCode, raw)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UploadError{StatusCode: resp.StatusCode, Body: raw}
	}

	var results []Result
	if err := sonic.Unmarshal(raw, &results); err != nil {
		return nil, &UploadError{StatusCode: resp.StatusCode, Body: raw, Err: err}
	}
	if err := validateResults(results, len(payloads)); err != nil {
		return nil, &UploadError{StatusCode: resp.StatusCode, Body: raw, Err: err}
	}
	return results, nil
}

func validateResults(results []Result, want int) error {
	if len(results) != want {
		return fmt.Errorf("expected %d results, got %d", want, len(results))
	}
	for i, r := range results {
		if r.Code == "" || r.Ext == "" {
			return fmt.Errorf("result %d is missing code or ext", i)
		}
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
