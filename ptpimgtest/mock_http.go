// Package ptpimgtest provides an in-memory stand-in for ptpimg.me and image
// hosts so tests never touch the network.
package ptpimgtest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// UploadURL is the real upload endpoint, served by the mock when registered
const UploadURL = "https://ptpimg.me/upload.php"

// PNG is a minimal valid 1x1 PNG
var PNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
	0x00, 0x00, 0x00, 0x0D, // IHDR chunk length
	0x49, 0x48, 0x44, 0x52, // IHDR
	0x00, 0x00, 0x00, 0x01, // width: 1
	0x00, 0x00, 0x00, 0x01, // height: 1
	0x08, 0x02, 0x00, 0x00, 0x00, // bit depth, color type, compression, filter, interlace
	0x90, 0x77, 0x53, 0xDE, // CRC
	0x00, 0x00, 0x00, 0x0C, // IDAT chunk length
	0x49, 0x44, 0x41, 0x54, // IDAT
	0x08, 0x99, 0x01, 0x01, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x02, 0x00, 0x01, // image data
	0xE2, 0x21, 0xBC, 0x33, // CRC
	0x00, 0x00, 0x00, 0x00, // IEND chunk length
	0x49, 0x45, 0x4E, 0x44, // IEND
	0xAE, 0x42, 0x60, 0x82, // CRC
}

// Recorded is a request seen by the mock, with its body already read
type Recorded struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// MockRoundTripper answers requests from a table of canned responses keyed by
// full URL. Unknown URLs get a 404.
type MockRoundTripper struct {
	mu        sync.Mutex
	responses map[string]func(*http.Request, []byte) *http.Response
	requests  []Recorded
}

func NewMockRoundTripper() *MockRoundTripper {
	return &MockRoundTripper{
		responses: make(map[string]func(*http.Request, []byte) *http.Response),
	}
}

// Handle registers fn to build the response for url
func (m *MockRoundTripper) Handle(url string, fn func(req *http.Request, body []byte) *http.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[url] = fn
}

// ServeImage registers url to return data with the given content type
func (m *MockRoundTripper) ServeImage(url, contentType string, data []byte) {
	m.Handle(url, func(req *http.Request, _ []byte) *http.Response {
		return Response(req, http.StatusOK, contentType, data)
	})
}

// ServeUpload registers the upload endpoint to answer with status and body
func (m *MockRoundTripper) ServeUpload(status int, body string) {
	m.Handle(UploadURL, func(req *http.Request, _ []byte) *http.Response {
		return Response(req, status, "application/json", []byte(body))
	})
}

// Requests returns every request seen so far
func (m *MockRoundTripper) Requests() []Recorded {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Recorded(nil), m.requests...)
}

// RoundTrip implements http.RoundTripper interface
func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, Recorded{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})
	fn, ok := m.responses[req.URL.String()]
	m.mu.Unlock()

	if !ok {
		return Response(req, http.StatusNotFound, "text/plain", []byte("not found")), nil
	}
	return fn(req, body), nil
}

// Response builds a complete *http.Response; an empty contentType leaves the header unset
func Response(req *http.Request, status int, contentType string, data []byte) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
		Request:    req,
	}
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}
	resp.Header.Set("Content-Length", fmt.Sprintf("%d", len(data)))
	return resp
}

// CreateMockHTTPClient creates an HTTP client that uses the mock transport
func (m *MockRoundTripper) CreateMockHTTPClient() *http.Client {
	return &http.Client{Transport: m}
}

// CountPrefix counts recorded requests whose URL starts with prefix
func (m *MockRoundTripper) CountPrefix(prefix string) int {
	n := 0
	for _, r := range m.Requests() {
		if strings.HasPrefix(r.URL, prefix) {
			n++
		}
	}
	return n
}
