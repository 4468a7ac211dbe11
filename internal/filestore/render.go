package filestore

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"snapgram/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// renderPreview crops src to the aspect ratio of opts, keeping the side
// named by opts.Gravity, then scales it down to fit opts. Images smaller
// than the target are not upscaled. The result is WebP-encoded.
func renderPreview(src []byte, opts models.PreviewOptions) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	x, y, w, h := cropRect(img.Bounds().Dx(), img.Bounds().Dy(), opts)
	cropped := cropToRect(img, img.Bounds().Min.X+x, img.Bounds().Min.Y+y, w, h)
	scaled := resizeToFit(cropped, opts.Width, opts.Height)

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, scaled, &webp.Options{Quality: float32(opts.Quality)}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// cropRect returns the largest rectangle of the target aspect ratio that
// fits in a w×h image, anchored by gravity.
func cropRect(w, h int, opts models.PreviewOptions) (x, y, cw, ch int) {
	if w <= 0 || h <= 0 || opts.Width <= 0 || opts.Height <= 0 {
		return 0, 0, w, h
	}
	target := float64(opts.Width) / float64(opts.Height)
	ratio := float64(w) / float64(h)

	cw, ch = w, h
	if ratio > target {
		cw = int(float64(h) * target)
	} else {
		ch = int(float64(w) / target)
	}
	if cw < 1 {
		cw = 1
	}
	if ch < 1 {
		ch = 1
	}

	x = (w - cw) / 2
	switch opts.Gravity {
	case models.GravityTop:
		y = 0
	case models.GravityBottom:
		y = h - ch
	default:
		y = (h - ch) / 2
	}
	return x, y, cw, ch
}

func cropToRect(src image.Image, x, y, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
