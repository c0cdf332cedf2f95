package ptpimg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/charmap"

	"github.com/yfzhou0904/go-to-ptpimg/imaging"
	"github.com/yfzhou0904/go-to-ptpimg/util"
)

// placeholderName replaces filenames the upload service cannot take in its
// Content-Disposition header
const placeholderName = "justfilename"

const userAgent = "Mozilla/5.0 (compatible; go-to-ptpimg/1.0)"

// Payload is one file part of an upload request
type Payload struct {
	Name     string
	MIMEType string
	Body     io.Reader
}

// handles collects everything opened for a batch so it can be released in one defer
type handles []io.Closer

func (h *handles) add(c io.Closer) {
	*h = append(*h, c)
}

func (h *handles) Close() {
	for _, c := range *h {
		if err := c.Close(); err != nil {
			util.DefaultLogger.Warnf("Failed to close upload source: %v", err)
		}
	}
	*h = nil
}

// filePayload opens path and validates it as an image. The opened file is
// registered in opened and stays open until the caller releases it.
func (c *Client) filePayload(path string, opened *handles) (Payload, error) {
	file, err := os.Open(path)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	opened.add(file)

	info, err := file.Stat()
	if err != nil {
		return Payload{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Payload{}, &UnsupportedMediaTypeError{Source: path}
	}

	mimeType, err := fileMIMEType(path, file)
	if err != nil {
		return Payload{}, err
	}
	if !isImage(mimeType) {
		return Payload{}, &UnsupportedMediaTypeError{Source: path, MIMEType: mimeType}
	}

	payload := Payload{
		Name:     safeFilename(filepath.Base(path)),
		MIMEType: mimeType,
		Body:     file,
	}
	if c.maxDimension > 0 {
		data, err := io.ReadAll(file)
		if err != nil {
			return Payload{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		payload = c.downscale(payload, data)
	}
	return payload, nil
}

// fetchPayload downloads an image URL into memory. index is the position of
// url within its batch and names the part.
func (c *Client) fetchPayload(ctx context.Context, index int, url string) (Payload, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Payload{}, classifyNetErr("fetch", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Payload{}, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	mimeType := mediaType(contentType)
	if !isImage(mimeType) {
		return Payload{}, &UnsupportedMediaTypeError{Source: url, MIMEType: mimeType}
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return Payload{}, classifyNetErr("fetch", url, err)
	}
	util.DefaultLogger.Debugf("Fetched %s (%s, %d bytes)", url, mimeType, buf.Len())

	payload := Payload{
		Name:     fmt.Sprintf("file-%d", index),
		MIMEType: mimeType,
		Body:     bytes.NewReader(buf.Bytes()),
	}
	if c.maxDimension > 0 {
		payload = c.downscale(payload, buf.Bytes())
	}
	return payload, nil
}

// downscale shrinks data to the configured bound. Images that cannot be
// decoded go out untouched.
func (c *Client) downscale(p Payload, data []byte) Payload {
	out, mimeType, err := imaging.Downscale(data, p.MIMEType, c.maxDimension)
	if err != nil {
		util.DefaultLogger.Debugf("Sending %s without resizing: %v", p.Name, err)
		out, mimeType = data, p.MIMEType
	}
	p.Body = bytes.NewReader(out)
	p.MIMEType = mimeType
	return p
}

// fileMIMEType guesses from the extension first and sniffs the content when
// the extension is unknown. The file is rewound after sniffing.
func fileMIMEType(path string, file io.ReadSeeker) (string, error) {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return mediaType(byExt), nil
	}
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("failed to detect type of %s: %w", path, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind %s: %w", path, err)
	}
	return mediaType(detected.String()), nil
}

// mediaType strips parameters, "image/PNG; q=1" becomes "image/png"
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func isImage(mimeType string) bool {
	top, _, _ := strings.Cut(mimeType, "/")
	return top == "image"
}

// safeFilename keeps name only when it is representable in ISO-8859-1 and
// carries no control characters that would break the part header
func safeFilename(name string) string {
	if _, err := charmap.ISO8859_1.NewEncoder().String(name); err != nil {
		return placeholderName
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return placeholderName
		}
	}
	return name
}
