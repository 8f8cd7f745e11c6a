package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p21print/internal/bitmap"
	"p21print/internal/protocol"
	"p21print/internal/transport"
)

// fakeLink scripts the printer's side of a session: each AwaitAck pops the
// next canned response.
type fakeLink struct {
	sent    []protocol.Frame
	sendErr error
	acks    []protocol.Ack
	ackErrs []error
	closes  int
}

func (l *fakeLink) Send(f protocol.Frame) error {
	if l.sendErr != nil {
		return l.sendErr
	}
	l.sent = append(l.sent, f)
	return nil
}

func (l *fakeLink) AwaitAck(time.Duration) (protocol.Ack, error) {
	if len(l.ackErrs) > 0 {
		err := l.ackErrs[0]
		l.ackErrs = l.ackErrs[1:]
		if err != nil {
			return protocol.Ack{}, err
		}
	}
	if len(l.acks) == 0 {
		return protocol.Ack{}, transport.ErrAckTimeout
	}
	ack := l.acks[0]
	l.acks = l.acks[1:]
	return ack, nil
}

func (l *fakeLink) Close() error {
	l.closes++
	return nil
}

func receipt() protocol.Ack {
	return protocol.Ack{Kind: protocol.AckReceipt, Raw: []byte{0x5A, 0x00}}
}

func complete() protocol.Ack {
	return protocol.Ack{Kind: protocol.AckComplete, Raw: []byte{0x5A, 0x0F}}
}

func blankBitmap(t *testing.T, width, height int) *bitmap.Bitmap {
	t.Helper()
	rows := make([][]byte, height)
	for i := range rows {
		rows[i] = make([]byte, width/8)
	}
	bm, err := bitmap.New(width, rows)
	require.NoError(t, err)
	return bm
}

func TestRunBlankLabelToCompletion(t *testing.T) {
	// 8 blank rows: init + one run frame + finalize, each acknowledged.
	link := &fakeLink{acks: []protocol.Ack{receipt(), receipt(), complete()}}
	s := New(link, time.Second)

	err := s.Run(context.Background(), blankBitmap(t, 8, 8), protocol.DefaultJob())
	require.NoError(t, err)

	assert.Equal(t, Completed, s.State())
	assert.Equal(t, 8, s.RowIndex())
	assert.Equal(t, 1, link.closes)

	require.Len(t, link.sent, 3)
	assert.Equal(t, protocol.OpInit, link.sent[0].Opcode)
	assert.Equal(t, protocol.OpRowRun, link.sent[1].Opcode)
	assert.Equal(t, protocol.OpFinalize, link.sent[2].Opcode)
	assert.Equal(t, protocol.AckComplete, s.LastAck().Kind)
}

func TestRunAckTimeoutFailsAndClosesOnce(t *testing.T) {
	link := &fakeLink{ackErrs: []error{transport.ErrAckTimeout}}
	s := New(link, time.Second)

	err := s.Run(context.Background(), blankBitmap(t, 8, 2), protocol.DefaultJob())
	assert.ErrorIs(t, err, transport.ErrAckTimeout)
	assert.Equal(t, Failed, s.State())
	assert.Equal(t, 1, link.closes)
}

func TestRunSendFailureFails(t *testing.T) {
	link := &fakeLink{sendErr: transport.ErrIO}
	s := New(link, time.Second)

	err := s.Run(context.Background(), blankBitmap(t, 8, 2), protocol.DefaultJob())
	assert.ErrorIs(t, err, transport.ErrIO)
	assert.Equal(t, Failed, s.State())
	assert.Equal(t, 1, link.closes)
}

func TestRunCancellationBetweenFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	link := &fakeLink{acks: []protocol.Ack{receipt(), receipt(), complete()}}
	s := New(link, time.Second)

	err := s.Run(ctx, blankBitmap(t, 8, 2), protocol.DefaultJob())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, Failed, s.State())
	assert.Equal(t, 1, link.closes)
	assert.Empty(t, link.sent, "nothing may be written after cancellation")
}

func TestRunUnexpectedAckIsViolation(t *testing.T) {
	// Printer claims completion while rows are still outstanding.
	link := &fakeLink{acks: []protocol.Ack{complete()}}
	s := New(link, time.Second)

	err := s.Run(context.Background(), blankBitmap(t, 8, 2), protocol.DefaultJob())
	var verr *protocol.ViolationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, Failed, s.State())
	assert.Equal(t, 1, link.closes)
}

func TestRunReceiptInsteadOfCompletionIsViolation(t *testing.T) {
	link := &fakeLink{acks: []protocol.Ack{receipt(), receipt(), receipt()}}
	s := New(link, time.Second)

	err := s.Run(context.Background(), blankBitmap(t, 8, 8), protocol.DefaultJob())
	var verr *protocol.ViolationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, Failed, s.State())
}

func TestRunRejectsBadBitmapBeforeSending(t *testing.T) {
	link := &fakeLink{}
	s := New(link, time.Second)

	err := s.Run(context.Background(), new(bitmap.Bitmap), protocol.DefaultJob())
	assert.ErrorIs(t, err, bitmap.ErrInvalidGeometry)
	assert.Equal(t, Failed, s.State())
	assert.Empty(t, link.sent)
	assert.Equal(t, 1, link.closes)
}

func TestRunIsSingleUse(t *testing.T) {
	link := &fakeLink{acks: []protocol.Ack{receipt(), receipt(), complete()}}
	s := New(link, time.Second)

	require.NoError(t, s.Run(context.Background(), blankBitmap(t, 8, 8), protocol.DefaultJob()))

	err := s.Run(context.Background(), blankBitmap(t, 8, 8), protocol.DefaultJob())
	require.Error(t, err)
	assert.Equal(t, 1, link.closes)
}

func TestRunTracksRowIndexAcrossRuns(t *testing.T) {
	// 300 identical rows split into 255 + 45, plus a distinct final row.
	rows := make([][]byte, 301)
	for i := range rows {
		rows[i] = []byte{0xFF}
	}
	rows[300] = []byte{0x01}
	bm, err := bitmap.New(8, rows)
	require.NoError(t, err)

	link := &fakeLink{acks: []protocol.Ack{receipt(), receipt(), receipt(), receipt(), complete()}}
	s := New(link, time.Second)

	require.NoError(t, s.Run(context.Background(), bm, protocol.DefaultJob()))
	assert.Equal(t, 301, s.RowIndex())
	require.Len(t, link.sent, 5)
}

func TestErrorsUnwindToTypedFailures(t *testing.T) {
	link := &fakeLink{ackErrs: []error{errors.New("boom")}}
	s := New(link, time.Second)

	err := s.Run(context.Background(), blankBitmap(t, 8, 1), protocol.DefaultJob())
	require.Error(t, err)
	assert.Equal(t, Failed, s.State())
}
