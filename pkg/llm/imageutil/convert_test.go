package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyageai/pkg/llm"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestToDataURI_Passthrough(t *testing.T) {
	data := []byte{0xff, 0xd8, 0xff, 0x00}
	uri, err := ToDataURI(llm.Image{Data: data, MIMEType: "image/jpeg"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,/9j/AA==", uri)
}

func TestToDataURI_DefaultMIME(t *testing.T) {
	uri, err := ToDataURI(llm.Image{Data: []byte("x")}, Options{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))
}

func TestToDataURI_Empty(t *testing.T) {
	_, err := ToDataURI(llm.Image{}, Options{})
	assert.Error(t, err)
}

func TestToDataURI_WithinBoundsUnchanged(t *testing.T) {
	data := testPNG(t, 32, 18)
	uri, err := ToDataURI(llm.Image{Data: data, MIMEType: "image/png"}, Options{MaxWidth: 64, MaxHeight: 64})
	require.NoError(t, err)

	mime, back, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, data, back)
}

func TestToDataURI_Downscale(t *testing.T) {
	data := testPNG(t, 160, 90)
	uri, err := ToDataURI(llm.Image{Data: data, MIMEType: "image/png"}, Options{MaxWidth: 80, MaxHeight: 80, Quality: 70})
	require.NoError(t, err)

	mime, back, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	img, err := imaging.Decode(bytes.NewReader(back))
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())
	assert.Equal(t, 45, img.Bounds().Dy())
}

func TestToDataURI_UndecodableWhenScaling(t *testing.T) {
	_, err := ToDataURI(llm.Image{Data: []byte("not an image")}, Options{MaxWidth: 10, MaxHeight: 10})
	assert.Error(t, err)
}

func TestDecodeDataURI_Errors(t *testing.T) {
	for _, in := range []string{"http://x", "data:image/png;base64", "data:image/png,abc", "data:image/png;base64,@@@"} {
		if _, _, err := DecodeDataURI(in); err == nil {
			t.Errorf("DecodeDataURI(%q) expected error", in)
		}
	}
}
