package ptpimg

import (
	"context"
	"time"

	"github.com/yfzhou0904/go-to-ptpimg/util"
)

// Upload classifies items and uploads local files first, then image URLs.
// The returned URLs follow that order regardless of how items interleave.
// Any failure aborts the whole call and no URLs are returned; the URL batch is
// never attempted once the file batch has failed.
func (c *Client) Upload(ctx context.Context, items []string) ([]string, error) {
	files, urls, err := Partition(items)
	if err != nil {
		return nil, err
	}
	util.DefaultLogger.Debugf("Classified %d file(s) and %d url(s)", len(files), len(urls))

	hosted := make([]string, 0, len(files)+len(urls))
	if len(files) > 0 {
		fileURLs, err := c.UploadFiles(ctx, files...)
		if err != nil {
			return nil, err
		}
		hosted = append(hosted, fileURLs...)
	}
	if len(urls) > 0 {
		urlURLs, err := c.UploadURLs(ctx, urls...)
		if err != nil {
			return nil, err
		}
		hosted = append(hosted, urlURLs...)
	}
	return hosted, nil
}

// Upload is a one-shot helper around NewClient(apiKey, Options{Timeout: timeout}).Upload
func Upload(ctx context.Context, apiKey string, items []string, timeout time.Duration) ([]string, error) {
	return NewClient(apiKey, Options{Timeout: timeout}).Upload(ctx, items)
}
