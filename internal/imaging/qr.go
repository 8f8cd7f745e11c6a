package imaging

import (
	qrcode "github.com/skip2/go-qrcode"

	"p21print/internal/bitmap"
)

// RenderQR rasterizes content as a QR code sized to the shorter edge of
// the width x height label raster, centered by ToBitmap's fit.
func RenderQR(content string, width, height int) (*bitmap.Bitmap, error) {
	side := width
	if height < side {
		side = height
	}

	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	// The module image is black-on-white; the default threshold keeps the
	// quiet zone blank.
	return ToBitmap(code.Image(side), width, height, 128, false)
}
