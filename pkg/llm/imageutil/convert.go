package imageutil

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"voyageai/pkg/llm"
)

// Options control how a generated image is embedded.
type Options struct {
	// MaxWidth and MaxHeight bound the output, preserving aspect ratio. 0 disables scaling.
	MaxWidth  int
	MaxHeight int
	Quality   int
}

const defaultQuality = 85

var errEmptyImage = errors.New("image has no data")

// ToDataURI turns generated image bytes into a self-contained data URI.
// Images larger than the bounds are scaled down (never up) and re-encoded as JPEG;
// images within bounds are embedded unchanged.
func ToDataURI(img llm.Image, opts Options) (string, error) {
	if len(img.Data) == 0 {
		return "", errEmptyImage
	}

	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	data := img.Data
	if opts.MaxWidth > 0 && opts.MaxHeight > 0 {
		scaled, changed, err := scaleToFit(img.Data, opts)
		if err != nil {
			return "", err
		}
		if changed {
			data = scaled
			mimeType = "image/jpeg"
		}
	}

	return EncodeDataURI(mimeType, data), nil
}

// EncodeDataURI builds a base64 data URI.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI returns the MIME type and bytes of a base64 data URI.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return mimeType, data, nil
}

func scaleToFit(data []byte, opts Options) (out []byte, changed bool, err error) {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	if b.Dx() <= opts.MaxWidth && b.Dy() <= opts.MaxHeight {
		return nil, false, nil
	}

	var dst image.Image = imaging.Fit(src, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, false, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), true, nil
}
