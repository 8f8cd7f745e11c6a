package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"p21print/internal/bitmap"
)

// Orientation selects how text runs relative to the printer raster. The
// P21 raster is portrait (96 dots across the head), so readable labels are
// rendered sideways and rotated into it.
type Orientation int

const (
	// Along renders text along the label length (the common, readable case).
	Along Orientation = iota
	// Across renders text across the label width without rotation.
	Across
)

// The P21 head resolution.
const printerDPI = 203

// TextOptions configures text rendering.
type TextOptions struct {
	FontSize      float64
	Orientation   Orientation
	Invert        bool // white text on black background
	WordBreakOnly bool // break lines at spaces only, never mid-word
}

// RenderText rasterizes text straight into a printer bitmap of
// width x height (printer orientation). The embedded Go Regular face is
// used; text is wrapped, centered and, for the Along orientation, rotated
// into the portrait raster.
func RenderText(text string, width, height int, opts TextOptions) (*bitmap.Bitmap, error) {
	img, err := renderTextImage(text, width, height, opts)
	if err != nil {
		return nil, err
	}
	// 128 splits the anti-aliased glyph edges cleanly.
	return ToBitmap(img, width, height, 128, opts.Invert)
}

// renderTextImage draws the text into a grayscale image sized for the
// printer raster.
func renderTextImage(text string, width, height int, opts TextOptions) (image.Image, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}

	if opts.FontSize <= 0 {
		opts.FontSize = 24
	}

	// Along-orientation text is drawn readable (wide) and rotated into the
	// portrait raster afterwards.
	renderW, renderH := width, height
	if opts.Orientation == Along {
		renderW, renderH = height, width
	}

	bgColor, fgColor := color.Color(color.White), color.Color(color.Black)
	if opts.Invert {
		bgColor, fgColor = fgColor, bgColor
	}

	img := image.NewRGBA(image.Rect(0, 0, renderW, renderH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bgColor}, image.Point{}, draw.Src)

	c := freetype.NewContext()
	c.SetDPI(printerDPI)
	c.SetFont(f)
	c.SetFontSize(opts.FontSize)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(&image.Uniform{C: fgColor})
	c.SetHinting(font.HintingFull)

	face := truetype.NewFace(f, &truetype.Options{Size: opts.FontSize, DPI: printerDPI})
	metrics := face.Metrics()

	var lines []string
	if opts.WordBreakOnly {
		lines = wrapTextWordOnly(text, face, renderW-10)
	} else {
		lines = wrapText(text, face, renderW-10)
	}

	lineHeight := metrics.Height.Ceil()
	y := (renderH-len(lines)*lineHeight)/2 + metrics.Ascent.Ceil()
	for _, line := range lines {
		x := (renderW - measureString(face, line)) / 2
		if _, err := c.DrawString(line, freetype.Pt(x, y)); err != nil {
			return nil, err
		}
		y += lineHeight
	}

	if opts.Orientation == Along {
		return rotate90CW(img), nil
	}
	return img, nil
}

// wrapText splits text into lines that fit maxWidth, breaking anywhere.
func wrapText(text string, face font.Face, maxWidth int) []string {
	var lines []string
	var currentLine string

	for _, char := range text {
		if char == '\n' {
			lines = append(lines, currentLine)
			currentLine = ""
			continue
		}
		testLine := currentLine + string(char)
		if measureString(face, testLine) > maxWidth && currentLine != "" {
			lines = append(lines, currentLine)
			currentLine = string(char)
		} else {
			currentLine = testLine
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}
	return lines
}

// wrapTextWordOnly splits text into lines, breaking at word boundaries.
// Words wider than a whole line still get broken mid-word.
func wrapTextWordOnly(text string, face font.Face, maxWidth int) []string {
	var lines []string

	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		currentLine := words[0]
		for _, word := range words[1:] {
			testLine := currentLine + " " + word
			if measureString(face, testLine) > maxWidth {
				lines = append(lines, currentLine)
				if measureString(face, word) > maxWidth {
					currentLine = breakLongWord(word, face, maxWidth, &lines)
				} else {
					currentLine = word
				}
			} else {
				currentLine = testLine
			}
		}

		if currentLine != "" {
			lines = append(lines, currentLine)
		}
	}
	return lines
}

// breakLongWord breaks one over-wide word, appending full parts to lines
// and returning the remainder.
func breakLongWord(word string, face font.Face, maxWidth int, lines *[]string) string {
	var currentPart string
	for _, char := range word {
		testPart := currentPart + string(char)
		if measureString(face, testPart) > maxWidth && currentPart != "" {
			*lines = append(*lines, currentPart)
			currentPart = string(char)
		} else {
			currentPart = testPart
		}
	}
	return currentPart
}

// measureString returns the advance width of s in pixels.
func measureString(face font.Face, s string) int {
	var width fixed.Int26_6
	for _, r := range s {
		if adv, ok := face.GlyphAdvance(r); ok {
			width += adv
		}
	}
	return width.Ceil()
}

// rotate90CW rotates an image 90 degrees clockwise.
func rotate90CW(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(h-1-y, x, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return dst
}
