package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidBitmap(t *testing.T) {
	rows := [][]byte{
		{0x00, 0xFF},
		{0x80, 0x01},
	}

	bm, err := New(16, rows)
	require.NoError(t, err)

	assert.Equal(t, 16, bm.Width())
	assert.Equal(t, 2, bm.Height())
	assert.Equal(t, 2, bm.Stride())
	assert.Equal(t, []byte{0x80, 0x01}, bm.Row(1))
	assert.NoError(t, bm.Validate())
}

func TestNewRejectsBadGeometry(t *testing.T) {
	tests := []struct {
		name  string
		width int
		rows  [][]byte
	}{
		{"zero width", 0, [][]byte{{0x00}}},
		{"negative width", -8, [][]byte{{0x00}}},
		{"width not byte aligned", 12, [][]byte{{0x00, 0x00}}},
		{"no rows", 8, nil},
		{"short row", 16, [][]byte{{0x00}}},
		{"long row", 8, [][]byte{{0x00, 0x00}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.width, tt.rows)
			assert.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}
}

func TestFromPacked(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

	bm, err := FromPacked(16, data)
	require.NoError(t, err)

	assert.Equal(t, 3, bm.Height())
	assert.Equal(t, []byte{0x01, 0x02}, bm.Row(0))
	assert.Equal(t, []byte{0x05, 0x06}, bm.Row(2))
}

func TestFromPackedRejectsPartialRow(t *testing.T) {
	_, err := FromPacked(16, []byte{0x01, 0x02, 0x03})
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = FromPacked(16, nil)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestRowsAreCopied(t *testing.T) {
	row := []byte{0xAA}
	bm, err := New(8, [][]byte{row})
	require.NoError(t, err)

	row[0] = 0x00
	assert.Equal(t, []byte{0xAA}, bm.Row(0), "later writes to the input must not show through")
}

func TestRowPredicates(t *testing.T) {
	bm, err := New(8, [][]byte{{0x00}, {0x10}, {0x10}})
	require.NoError(t, err)

	assert.True(t, bm.RowIsBlank(0))
	assert.False(t, bm.RowIsBlank(1))
	assert.True(t, bm.RowsEqual(1, 2))
	assert.False(t, bm.RowsEqual(0, 1))
}

func TestValidateZeroValue(t *testing.T) {
	assert.ErrorIs(t, new(Bitmap).Validate(), ErrInvalidGeometry)
	assert.ErrorIs(t, (*Bitmap)(nil).Validate(), ErrInvalidGeometry)
}
