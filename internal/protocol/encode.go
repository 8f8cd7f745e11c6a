package protocol

import (
	"errors"
	"fmt"

	"p21print/internal/bitmap"
)

// ErrEncoding reports a bitmap that cannot be expressed in the protocol's
// fields.
var ErrEncoding = errors.New("bitmap not encodable")

// Print speed is fixed for the P21; only density is user-adjustable.
const printSpeed = 0x02

// Job parameter defaults, matching the stock label app.
const (
	DefaultDensity  = 7
	DefaultCopies   = 1
	DefaultFeedDots = 24
)

// JobOptions carries the per-job print parameters.
type JobOptions struct {
	Density  int // burn darkness 0-15
	Copies   int
	FeedDots int // paper advance after the last row
}

// DefaultJob returns the job parameters the stock app uses.
func DefaultJob() JobOptions {
	return JobOptions{Density: DefaultDensity, Copies: DefaultCopies, FeedDots: DefaultFeedDots}
}

// Encode turns a bitmap into the frame sequence the printer expects: one
// init frame, row frames with runs of identical rows collapsed, and one
// finalize frame. Encoding is pure: the same bitmap and options always
// produce the same frames, byte for byte.
func Encode(bm *bitmap.Bitmap, opts JobOptions) ([]Frame, error) {
	if err := bm.Validate(); err != nil {
		return nil, err
	}
	if bm.Height() > 0xFFFF {
		return nil, fmt.Errorf("%w: %d rows exceeds the init frame height field", ErrEncoding, bm.Height())
	}

	frames := make([]Frame, 0, bm.Height()+2)
	frames = append(frames, initFrame(bm, opts))

	for i := 0; i < bm.Height(); {
		run := 1
		for i+run < bm.Height() && run < MaxRun && bm.RowsEqual(i, i+run) {
			run++
		}
		frames = append(frames, rowFrame(bm.Row(i), run))
		i += run
	}

	return append(frames, finalizeFrame(opts)), nil
}

// initFrame carries density, speed and the raster geometry:
// [density][speed][stride][height_l][height_h].
func initFrame(bm *bitmap.Bitmap, opts JobOptions) Frame {
	return Frame{
		Opcode: OpInit,
		Payload: []byte{
			byte(clampDensity(opts.Density)),
			printSpeed,
			byte(bm.Stride()),
			byte(bm.Height()),
			byte(bm.Height() >> 8),
		},
	}
}

// rowFrame emits a plain row for a run of 1 and a row-run frame
// ([count][packed bits]) otherwise. Callers keep run <= MaxRun.
func rowFrame(row []byte, run int) Frame {
	if run == 1 {
		return Frame{Opcode: OpRow, Payload: append([]byte(nil), row...)}
	}
	payload := make([]byte, 0, len(row)+1)
	payload = append(payload, byte(run))
	return Frame{Opcode: OpRowRun, Payload: append(payload, row...)}
}

// finalizeFrame advances the paper past the cutter and triggers the print:
// [feed_dots][copies].
func finalizeFrame(opts JobOptions) Frame {
	feed := opts.FeedDots
	if feed <= 0 || feed > 255 {
		feed = DefaultFeedDots
	}
	copies := opts.Copies
	if copies < 1 {
		copies = 1
	}
	if copies > 255 {
		copies = 255
	}
	return Frame{Opcode: OpFinalize, Payload: []byte{byte(feed), byte(copies)}}
}

func clampDensity(d int) int {
	if d < 0 {
		return 0
	}
	if d > 15 {
		return 15
	}
	return d
}

// DecodeRow recovers the packed row bits and repeat count from a row or
// row-run frame. The inverse of rowFrame, used to verify transfers.
func DecodeRow(f Frame) (row []byte, count int, err error) {
	switch f.Opcode {
	case OpRow:
		return f.Payload, 1, nil
	case OpRowRun:
		if len(f.Payload) < 2 {
			return nil, 0, fmt.Errorf("%w: row-run payload of %d bytes", ErrEncoding, len(f.Payload))
		}
		if f.Payload[0] == 0 {
			return nil, 0, fmt.Errorf("%w: zero repeat count", ErrEncoding)
		}
		return f.Payload[1:], int(f.Payload[0]), nil
	}
	return nil, 0, fmt.Errorf("%w: opcode 0x%02X carries no row data", ErrEncoding, f.Opcode)
}
