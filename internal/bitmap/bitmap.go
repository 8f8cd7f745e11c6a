package bitmap

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrInvalidGeometry reports a bitmap whose dimensions and row data are
// inconsistent.
var ErrInvalidGeometry = errors.New("invalid bitmap geometry")

// Bitmap is a 1-bit-per-pixel raster in printer orientation: width pixels
// across the print head, height rows along the feed direction. Row bytes
// are packed MSB-first, 1 = ink. A Bitmap is immutable once constructed.
type Bitmap struct {
	width int
	rows  [][]byte
}

// New builds a Bitmap from per-row packed bytes. Width must be a positive
// multiple of 8 (the print head is addressed in whole bytes) and every row
// must be exactly width/8 bytes. Row data is copied.
func New(width int, rows [][]byte) (*Bitmap, error) {
	if width <= 0 || width%8 != 0 {
		return nil, fmt.Errorf("%w: width %d is not a positive multiple of 8", ErrInvalidGeometry, width)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidGeometry)
	}
	stride := width / 8
	copied := make([][]byte, len(rows))
	for i, r := range rows {
		if len(r) != stride {
			return nil, fmt.Errorf("%w: row %d is %d bytes, want %d", ErrInvalidGeometry, i, len(r), stride)
		}
		copied[i] = append([]byte(nil), r...)
	}
	return &Bitmap{width: width, rows: copied}, nil
}

// FromPacked builds a Bitmap from a contiguous buffer of packed rows, the
// format rasterizers emit (stride = width/8, rows top to bottom).
func FromPacked(width int, data []byte) (*Bitmap, error) {
	if width <= 0 || width%8 != 0 {
		return nil, fmt.Errorf("%w: width %d is not a positive multiple of 8", ErrInvalidGeometry, width)
	}
	stride := width / 8
	if len(data) == 0 || len(data)%stride != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte rows", ErrInvalidGeometry, len(data), stride)
	}
	rows := make([][]byte, len(data)/stride)
	for i := range rows {
		rows[i] = append([]byte(nil), data[i*stride:(i+1)*stride]...)
	}
	return &Bitmap{width: width, rows: rows}, nil
}

// Width returns the raster width in pixels.
func (b *Bitmap) Width() int { return b.width }

// Height returns the number of rows.
func (b *Bitmap) Height() int { return len(b.rows) }

// Stride returns the packed length of one row in bytes.
func (b *Bitmap) Stride() int { return b.width / 8 }

// Row returns the packed bits of row i. The slice must not be modified.
func (b *Bitmap) Row(i int) []byte { return b.rows[i] }

// RowIsBlank reports whether row i carries no ink.
func (b *Bitmap) RowIsBlank(i int) bool {
	for _, v := range b.rows[i] {
		if v != 0 {
			return false
		}
	}
	return true
}

// RowsEqual reports whether rows i and j are identical.
func (b *Bitmap) RowsEqual(i, j int) bool { return bytes.Equal(b.rows[i], b.rows[j]) }

// Validate re-checks the construction invariants. It only fails for values
// that bypassed New/FromPacked, such as a zero Bitmap.
func (b *Bitmap) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil bitmap", ErrInvalidGeometry)
	}
	if b.width <= 0 || b.width%8 != 0 {
		return fmt.Errorf("%w: width %d is not a positive multiple of 8", ErrInvalidGeometry, b.width)
	}
	if len(b.rows) == 0 {
		return fmt.Errorf("%w: no rows", ErrInvalidGeometry)
	}
	for i, r := range b.rows {
		if len(r) != b.width/8 {
			return fmt.Errorf("%w: row %d is %d bytes, want %d", ErrInvalidGeometry, i, len(r), b.width/8)
		}
	}
	return nil
}
