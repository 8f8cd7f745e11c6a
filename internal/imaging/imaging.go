// Package imaging rasterizes label content (images, text, QR codes) into
// the printer's 1-bit bitmap model.
package imaging

import (
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"p21print/internal/bitmap"
)

// LoadImage reads and decodes an image file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// ToBitmap converts an image to the printer's raster: aspect-fit resize
// into width x height, grayscale, threshold to 1 bit, MSB-first packing.
// Pixels darker than threshold become ink unless invert is set.
func ToBitmap(img image.Image, width, height int, threshold uint8, invert bool) (*bitmap.Bitmap, error) {
	resized := resizeToFit(img, width, height)

	stride := width / 8
	data := make([]byte, stride*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := uint8(255) // out of bounds stays white
			if x < resized.Bounds().Dx() && y < resized.Bounds().Dy() {
				c := resized.At(resized.Bounds().Min.X+x, resized.Bounds().Min.Y+y)
				gray = rgbToGray(c)
			}

			var bit uint8
			if gray < threshold {
				bit = 1
			}
			if invert {
				bit = 1 - bit
			}

			data[y*stride+x/8] |= bit << (7 - x%8)
		}
	}

	return bitmap.FromPacked(width, data)
}

// ToImage reconstructs a viewable image from a bitmap, for preview output.
func ToImage(bm *bitmap.Bitmap) image.Image {
	img := image.NewGray(image.Rect(0, 0, bm.Width(), bm.Height()))
	for y := 0; y < bm.Height(); y++ {
		row := bm.Row(y)
		for x := 0; x < bm.Width(); x++ {
			if row[x/8]>>(7-x%8)&1 == 1 {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// WritePNG saves an image as PNG, the preview format of the CLI.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// rgbToGray converts a color to its luminance.
func rgbToGray(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	// Values are 16-bit, scale back to 8.
	gray := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 256
	return uint8(gray)
}

// resizeToFit scales an image into the bounds preserving aspect ratio.
// Nearest-neighbor is good enough for thermal printing.
func resizeToFit(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	scaleW := float64(maxW) / float64(srcW)
	scaleH := float64(maxH) / float64(srcH)
	scale := scaleW
	if scaleH < scaleW {
		scale = scaleH
	}

	newW := int(float64(srcW) * scale)
	newH := int(float64(srcH) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			srcX := int(float64(x) / scale)
			srcY := int(float64(y) / scale)
			if srcX >= srcW {
				srcX = srcW - 1
			}
			if srcY >= srcH {
				srcY = srcH - 1
			}
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}
	return dst
}
