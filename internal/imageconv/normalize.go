// Package imageconv turns uploaded images into the canonical JPEG form kept
// as the session original.
package imageconv

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
)

// MIME is the content type of every normalized image.
const MIME = "image/jpeg"

const jpegQuality = 90

// ErrEmpty is returned for zero-length input.
var ErrEmpty = errors.New("imageconv: empty image")

// Image is a normalized JPEG with its pixel dimensions.
type Image struct {
	Data   []byte
	Width  int
	Height int
}

// Normalize decodes PNG, JPEG, GIF or WebP input and re-encodes it as JPEG.
func Normalize(data []byte) ([]byte, error) {
	img, err := NormalizeImage(data)
	if err != nil {
		return nil, err
	}
	return img.Data, nil
}

// NormalizeImage is Normalize plus the decoded dimensions.
func NormalizeImage(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	src, err := decodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("imageconv: decode: %w", err)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, flatten(src), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("imageconv: encode jpeg: %w", err)
	}
	b := src.Bounds()
	return &Image{Data: out.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// DetectMIME sniffs the container format without decoding pixels.
func DetectMIME(data []byte) string {
	if isWEBP(data) {
		return "image/webp"
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "application/octet-stream"
	}
	return "image/" + format
}

// Dimensions reads the pixel size from the header; zeros when unknown.
func Dimensions(data []byte) (int, int) {
	if isWEBP(data) {
		img, err := webp.Decode(bytes.NewReader(data), &decoder.Options{})
		if err != nil {
			return 0, 0
		}
		b := img.Bounds()
		return b.Dx(), b.Dy()
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// Extension maps an image content type to a file extension.
func Extension(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

func decodeImage(data []byte) (image.Image, error) {
	if isWEBP(data) {
		return webp.Decode(bytes.NewReader(data), &decoder.Options{})
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func isWEBP(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// flatten composites transparent pixels onto white; JPEG has no alpha.
func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}
