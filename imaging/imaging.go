package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif" // Register GIF format for DecodeConfig

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp" // Register WebP format
)

const jpegQuality = 90

// Downscale shrinks an image so neither side exceeds maxDim, keeping the
// aspect ratio. It returns the encoded bytes and their MIME type.
// Images already within bounds, GIFs (which may be animated) and a zero
// maxDim come back unchanged.
func Downscale(data []byte, mimeType string, maxDim int) ([]byte, string, error) {
	if maxDim <= 0 {
		return data, mimeType, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image config: %w", err)
	}
	if format == "gif" || (cfg.Width <= maxDim && cfg.Height <= maxDim) {
		return data, mimeType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	resized := resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3)

	var buf bytes.Buffer
	var outType string
	switch format {
	case "png":
		err = png.Encode(&buf, resized)
		outType = "image/png"
	default:
		// jpeg, and webp which we can decode but not encode
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality})
		outType = "image/jpeg"
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), outType, nil
}
