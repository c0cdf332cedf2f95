package ptpimg

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yfzhou0904/go-to-ptpimg/ptpimgtest"
)

type formPart struct {
	name        string
	filename    string
	contentType string
	data        []byte
}

// readForm decodes a recorded multipart upload
func readForm(t *testing.T, rec ptpimgtest.Recorded) []formPart {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(rec.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	var parts []formPart
	reader := multipart.NewReader(bytes.NewReader(rec.Body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		parts = append(parts, formPart{
			name:        part.FormName(),
			filename:    part.FileName(),
			contentType: part.Header.Get("Content-Type"),
			data:        data,
		})
	}
	return parts
}

func newMockClient(opts Options) (*Client, *ptpimgtest.MockRoundTripper) {
	mock := ptpimgtest.NewMockRoundTripper()
	opts.HTTPClient = mock.CreateMockHTTPClient()
	return NewClient("secret-key", opts), mock
}

func TestUploadSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "shot.png", ptpimgtest.PNG)

	c, mock := newMockClient(Options{})
	mock.ServeUpload(http.StatusOK, `[{"code":"abc123","ext":"jpg"}]`)

	urls, err := c.Upload(context.Background(), []string{path})
	require.NoError(t, err)
	require.Equal(t, []string{"https://ptpimg.me/abc123.jpg"}, urls)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodPost, reqs[0].Method)
	require.Equal(t, ptpimgtest.UploadURL, reqs[0].URL)
	require.Equal(t, "https://ptpimg.me/index.php", reqs[0].Header.Get("Referer"))

	parts := readForm(t, reqs[0])
	require.Len(t, parts, 2)
	require.Equal(t, "api_key", parts[0].name)
	require.Equal(t, "secret-key", string(parts[0].data))
	require.Equal(t, "file-upload[0]", parts[1].name)
	require.Equal(t, "shot.png", parts[1].filename)
	require.Equal(t, "image/png", parts[1].contentType)
	require.Equal(t, ptpimgtest.PNG, parts[1].data)
}

func TestUploadOrdersFilesBeforeURLs(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.png", ptpimgtest.PNG)
	second := writeFile(t, dir, "second.jpg", ptpimgtest.PNG)
	remote := "https://images.example/remote.png"

	c, mock := newMockClient(Options{})
	mock.ServeImage(remote, "image/png", ptpimgtest.PNG)
	calls := 0
	mock.Handle(ptpimgtest.UploadURL, func(req *http.Request, _ []byte) *http.Response {
		calls++
		body := `[{"code":"f1","ext":"png"},{"code":"f2","ext":"jpg"}]`
		if calls == 2 {
			body = `[{"code":"u1","ext":"png"}]`
		}
		return ptpimgtest.Response(req, http.StatusOK, "application/json", []byte(body))
	})

	urls, err := c.Upload(context.Background(), []string{remote, first, second})
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://ptpimg.me/f1.png",
		"https://ptpimg.me/f2.jpg",
		"https://ptpimg.me/u1.png",
	}, urls)

	reqs := mock.Requests()
	require.Len(t, reqs, 3)
	require.Equal(t, ptpimgtest.UploadURL, reqs[0].URL, "file batch goes first")
	require.Equal(t, remote, reqs[1].URL)
	require.Equal(t, ptpimgtest.UploadURL, reqs[2].URL)

	fileParts := readForm(t, reqs[0])
	require.Len(t, fileParts, 3)
	require.Equal(t, "file-upload[0]", fileParts[1].name)
	require.Equal(t, "first.png", fileParts[1].filename)
	require.Equal(t, "file-upload[1]", fileParts[2].name)
	require.Equal(t, "second.jpg", fileParts[2].filename)
	require.Equal(t, "image/jpeg", fileParts[2].contentType)

	urlParts := readForm(t, reqs[2])
	require.Len(t, urlParts, 2)
	require.Equal(t, "file-upload[0]", urlParts[1].name)
	require.Equal(t, "file-0", urlParts[1].filename)
	require.Equal(t, "image/png", urlParts[1].contentType)
}

func TestUploadInvalidInputMakesNoRequests(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ok.png", ptpimgtest.PNG)

	c, mock := newMockClient(Options{})
	mock.ServeUpload(http.StatusOK, `[{"code":"abc123","ext":"png"}]`)

	urls, err := c.Upload(context.Background(), []string{path, "not-a-file-or-url"})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Nil(t, urls)
	require.Empty(t, mock.Requests())
}

func TestUploadNonImageFileMakesNoRequests(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "readme.txt", []byte("hello"))

	c, mock := newMockClient(Options{})
	mock.ServeUpload(http.StatusOK, `[{"code":"abc123","ext":"png"}]`)

	_, err := c.Upload(context.Background(), []string{path})
	require.ErrorIs(t, err, ErrUnsupportedMediaType)
	require.Empty(t, mock.Requests())
}

func TestUploadServerError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "shot.png", ptpimgtest.PNG)

	c, mock := newMockClient(Options{})
	mock.ServeUpload(http.StatusInternalServerError, "database on fire")

	urls, err := c.Upload(context.Background(), []string{path, "https://images.example/never.png"})
	require.Nil(t, urls)

	var uploadErr *UploadError
	require.True(t, errors.As(err, &uploadErr))
	require.Equal(t, http.StatusInternalServerError, uploadErr.StatusCode)
	require.Equal(t, "database on fire", string(uploadErr.Body))
	require.NoError(t, uploadErr.Err)
	require.Contains(t, err.Error(), "500")

	require.Len(t, mock.Requests(), 1, "url batch must not run after the file batch failed")
}

func TestUploadUndecodableBody(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "shot.png", ptpimgtest.PNG)

	for name, body := range map[string]string{
		"html":          "<html>login required</html>",
		"missing field": `[{"code":"abc"}]`,
		"short":         `[]`,
		"object":        `{"code":"abc","ext":"png"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, mock := newMockClient(Options{})
			mock.ServeUpload(http.StatusOK, body)

			_, err := c.Upload(context.Background(), []string{path})
			var uploadErr *UploadError
			require.True(t, errors.As(err, &uploadErr))
			require.Error(t, uploadErr.Err)
			require.Equal(t, body, string(uploadErr.Body))
			require.ErrorIs(t, err, ErrUploadFailed)
		})
	}
}

func TestUploadFetchFailureDiscardsFileResults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "shot.png", ptpimgtest.PNG)

	c, mock := newMockClient(Options{})
	mock.ServeUpload(http.StatusOK, `[{"code":"abc123","ext":"png"}]`)

	urls, err := c.Upload(context.Background(), []string{path, "https://images.example/missing.png"})
	require.Nil(t, urls)
	require.ErrorIs(t, err, ErrFetchFailed)
	require.Equal(t, 1, mock.CountPrefix(ptpimgtest.UploadURL))
}

func TestUploadSkipsEmptyBatches(t *testing.T) {
	c, mock := newMockClient(Options{})
	mock.ServeImage("https://images.example/a.png", "image/png", ptpimgtest.PNG)
	mock.ServeUpload(http.StatusOK, `[{"code":"u1","ext":"png"}]`)

	urls, err := c.Upload(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, urls)
	require.Empty(t, mock.Requests())

	urls, err = c.Upload(context.Background(), []string{"https://images.example/a.png"})
	require.NoError(t, err)
	require.Equal(t, []string{"https://ptpimg.me/u1.png"}, urls)
	require.Equal(t, 1, mock.CountPrefix(ptpimgtest.UploadURL))
}

func TestUploadSendsPlaceholderForNonLatin1Names(t *testing.T) {
	dir := t.TempDir()
	cafe := writeFile(t, dir, "café.png", ptpimgtest.PNG)
	kanji := writeFile(t, dir, "画像.png", ptpimgtest.PNG)

	c, mock := newMockClient(Options{})
	mock.ServeUpload(http.StatusOK, `[{"code":"a","ext":"png"},{"code":"b","ext":"png"}]`)

	_, err := c.Upload(context.Background(), []string{cafe, kanji})
	require.NoError(t, err)

	body := string(mock.Requests()[0].Body)
	require.Contains(t, body, `name="file-upload[0]"; filename="café.png"`)
	require.Contains(t, body, `name="file-upload[1]"; filename="justfilename"`)
	require.NotContains(t, body, "画像")
}

func TestUploadSanitizesControlCharactersInNames(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a\r\nX-Injected: 1\r\n.png", ptpimgtest.PNG)

	c, mock := newMockClient(Options{})
	mock.ServeUpload(http.StatusOK, `[{"code":"abc123","ext":"png"}]`)

	urls, err := c.Upload(context.Background(), []string{path})
	require.NoError(t, err)
	require.Equal(t, []string{"https://ptpimg.me/abc123.png"}, urls)

	parts := readForm(t, mock.Requests()[0])
	require.Len(t, parts, 2)
	require.Equal(t, "file-upload[0]", parts[1].name)
	require.Equal(t, "justfilename", parts[1].filename)
	require.Equal(t, "image/png", parts[1].contentType)
	require.Equal(t, ptpimgtest.PNG, parts[1].data)
	require.NotContains(t, string(mock.Requests()[0].Body), "X-Injected")
}

func TestUploadDirectoryMakesNoRequests(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "album.png")
	require.NoError(t, os.Mkdir(dir, 0o755))

	c, mock := newMockClient(Options{})
	mock.ServeUpload(http.StatusOK, `[{"code":"abc123","ext":"png"}]`)

	urls, err := c.Upload(context.Background(), []string{dir})
	require.Nil(t, urls)
	require.ErrorIs(t, err, ErrUnsupportedMediaType)
	require.Empty(t, mock.Requests())
}

func TestPackageUploadRejectsInvalidInput(t *testing.T) {
	urls, err := Upload(context.Background(), "key", []string{"neither-a-file-nor-a-url"}, time.Second)
	require.Nil(t, urls)

	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, "neither-a-file-nor-a-url", invalid.Item)
}

func TestUploadDownscalesWhenConfigured(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20))))
	dir := t.TempDir()
	path := writeFile(t, dir, "wide.png", buf.Bytes())

	c, mock := newMockClient(Options{MaxDimension: 10})
	mock.ServeUpload(http.StatusOK, `[{"code":"small","ext":"png"}]`)

	_, err := c.Upload(context.Background(), []string{path})
	require.NoError(t, err)

	parts := readForm(t, mock.Requests()[0])
	require.Equal(t, "image/png", parts[1].contentType)
	cfg, err := png.DecodeConfig(bytes.NewReader(parts[1].data))
	require.NoError(t, err)
	require.Equal(t, 10, cfg.Width)
	require.Equal(t, 5, cfg.Height)
}

func slowServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(ptpimgtest.PNG)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestUploadFetchTimeout(t *testing.T) {
	server := slowServer(t)
	c := NewClient("key", Options{
		Timeout:    50 * time.Millisecond,
		HTTPClient: server.Client(),
		Endpoint:   server.URL + "/upload.php",
	})

	urls, err := c.Upload(context.Background(), []string{server.URL + "/slow.png"})
	require.Nil(t, urls)

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr), "got %v", err)
	require.Equal(t, "fetch", timeoutErr.Op)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestUploadPostTimeout(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "shot.png", ptpimgtest.PNG)

	server := slowServer(t)
	c := NewClient("key", Options{
		Timeout:    50 * time.Millisecond,
		HTTPClient: server.Client(),
		Endpoint:   server.URL + "/upload.php",
	})

	_, err := c.Upload(context.Background(), []string{path})
	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr), "got %v", err)
	require.Equal(t, "upload", timeoutErr.Op)
	require.True(t, strings.HasSuffix(timeoutErr.URL, "/upload.php"))
}

func TestResultURL(t *testing.T) {
	require.Equal(t, "https://ptpimg.me/x.png", Result{Code: "x", Ext: "png"}.URL())
	require.Equal(t, "https://ptpimg.me/ulkm79.jpg", Result{Code: "ulkm79", Ext: "jpg"}.URL())
}
