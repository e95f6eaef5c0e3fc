package media

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultJpegQuality = 90
	watermarkMargin    = 12
)

// Renderer produces the web image, thumbnail and desktop copy of a photo.
// It may change pixel dimensions.
type Renderer interface {
	Render(src string, dst RenderTargets) error
}

// WatermarkRenderer resizes with imaging and stamps a text watermark on the
// web and desktop renditions. Thumbnails are left clean.
type WatermarkRenderer struct {
	opts RenderOptions
}

func NewWatermarkRenderer(opts RenderOptions) *WatermarkRenderer {
	if opts.Quality <= 0 {
		opts.Quality = DefaultJpegQuality
	}
	return &WatermarkRenderer{opts: opts}
}

// Render writes all three targets. Each file is written under a temporary
// name and renamed into place, so a failed render never leaves a partial file.
func (r *WatermarkRenderer) Render(src string, dst RenderTargets) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}

	web := stampWatermark(fitLongestSide(img, r.opts.WebMaxSize), r.opts.Watermark)
	if err := r.save(web, dst.Web); err != nil {
		return err
	}

	thumb := fitLongestSide(img, r.opts.ThumbMaxSize)
	if err := r.save(thumb, dst.Thumb); err != nil {
		return err
	}

	if dst.Desktop != "" {
		desktop := stampWatermark(fitLongestSide(img, r.opts.DesktopMaxSize), r.opts.Watermark)
		if err := r.save(desktop, dst.Desktop); err != nil {
			return err
		}
	}

	log.Printf("media.renderer: rendered %s (web %dx%d)", filepath.Base(src), web.Bounds().Dx(), web.Bounds().Dy())
	return nil
}

func (r *WatermarkRenderer) save(img image.Image, dst string) error {
	if dst == "" {
		return fmt.Errorf("empty render destination")
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tmp := filepath.Join(dir, "."+uuid.NewString()+filepath.Ext(dst))
	if err := imaging.Save(img, tmp, imaging.JPEGQuality(r.opts.Quality)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to encode %s: %w", dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move rendition into place at %s: %w", dst, err)
	}
	return nil
}

// fitLongestSide scales img so its longest side is at most maxSize. A
// maxSize of 0 keeps the original size.
func fitLongestSide(img image.Image, maxSize int) image.Image {
	origWidth, origHeight := img.Bounds().Dx(), img.Bounds().Dy()
	if maxSize <= 0 || (origWidth <= maxSize && origHeight <= maxSize) {
		return img
	}

	var newWidth, newHeight int
	if origWidth > origHeight {
		newWidth = maxSize
		newHeight = int(math.Round(float64(origHeight) * (float64(maxSize) / float64(origWidth))))
	} else {
		newHeight = maxSize
		newWidth = int(math.Round(float64(origWidth) * (float64(maxSize) / float64(origHeight))))
	}
	return imaging.Resize(img, maxInt(1, newWidth), maxInt(1, newHeight), imaging.Lanczos)
}

// stampWatermark draws text in the bottom-right corner with a dark shadow.
func stampWatermark(img image.Image, text string) image.Image {
	if text == "" {
		return img
	}
	b := img.Bounds()
	canvas := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: canvas, Face: face}
	textWidth := d.MeasureString(text).Round()
	x := maxInt(0, b.Dx()-textWidth-watermarkMargin)
	y := maxInt(face.Ascent, b.Dy()-watermarkMargin)

	d.Src = image.NewUniform(color.NRGBA{0, 0, 0, 160})
	d.Dot = fixed.P(x+1, y+1)
	d.DrawString(text)

	d.Src = image.NewUniform(color.NRGBA{255, 255, 255, 200})
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
	return canvas
}
