package imageconv

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

func sampleImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 8), G: uint8(y * 8), B: 120, A: 255})
		}
	}
	return img
}

func TestNormalizePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, sampleImage(24, 16)); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	out, err := NormalizeImage(buf.Bytes())
	if err != nil {
		t.Fatalf("NormalizeImage returned error: %v", err)
	}
	if out.Width != 24 || out.Height != 16 {
		t.Fatalf("unexpected dimensions %dx%d", out.Width, out.Height)
	}
	if _, err := jpeg.Decode(bytes.NewReader(out.Data)); err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	if DetectMIME(out.Data) != MIME {
		t.Fatalf("DetectMIME = %q", DetectMIME(out.Data))
	}
}

func TestNormalizeWEBP(t *testing.T) {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, 85)
	if err != nil {
		t.Fatalf("encoder options: %v", err)
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, sampleImage(32, 32), opts); err != nil {
		t.Fatalf("encode webp: %v", err)
	}
	if DetectMIME(buf.Bytes()) != "image/webp" {
		t.Fatalf("expected webp detection")
	}

	out, err := Normalize(buf.Bytes())
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil || cfg.Width != 32 {
		t.Fatalf("unexpected jpeg output: %+v %v", cfg, err)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	if _, err := Normalize(nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := Normalize([]byte("definitely not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDimensionsAndExtension(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, sampleImage(10, 7)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if w, h := Dimensions(buf.Bytes()); w != 10 || h != 7 {
		t.Fatalf("Dimensions = %dx%d, want 10x7", w, h)
	}
	if w, h := Dimensions([]byte("nope")); w != 0 || h != 0 {
		t.Fatalf("garbage should yield zeros, got %dx%d", w, h)
	}
	for mime, want := range map[string]string{"image/png": "png", "image/webp": "webp", "image/jpeg": "jpg", "": "jpg"} {
		if got := Extension(mime); got != want {
			t.Fatalf("Extension(%q) = %q, want %q", mime, got, want)
		}
	}
}
