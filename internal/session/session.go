// Package session drives one print job through its lifecycle: encode the
// bitmap, initialize the printer, stream row frames, finalize, and wait
// for the completion status.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"p21print/internal/bitmap"
	"p21print/internal/logger"
	"p21print/internal/protocol"
	"p21print/internal/transport"
)

// ErrCancelled reports a job abandoned at a cancellation point.
var ErrCancelled = errors.New("print job cancelled")

// State identifies a phase of one print job.
type State int

const (
	Idle State = iota
	Initializing
	Transmitting
	Finalizing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Transmitting:
		return "transmitting"
	case Finalizing:
		return "finalizing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Link is the transport surface the session drives. *transport.Transport
// satisfies it; tests substitute fakes.
type Link interface {
	Send(protocol.Frame) error
	AwaitAck(window time.Duration) (protocol.Ack, error)
	Close() error
}

// DefaultAckWindow bounds each wait for a printer acknowledgement.
const DefaultAckWindow = 5 * time.Second

// Session runs one print job over one link. Single use: after Run returns
// the session is terminal and the link is closed. Completed and Failed are
// the only terminal states.
type Session struct {
	link       Link
	ackWindow  time.Duration
	state      State
	row        int
	lastAck    protocol.Ack
	linkClosed bool
}

// New wraps a link in a fresh session. ackWindow <= 0 selects
// DefaultAckWindow.
func New(link Link, ackWindow time.Duration) *Session {
	if ackWindow <= 0 {
		ackWindow = DefaultAckWindow
	}
	return &Session{link: link, ackWindow: ackWindow}
}

// State returns the current lifecycle phase.
func (s *Session) State() State { return s.state }

// RowIndex returns the number of bitmap rows acknowledged so far.
func (s *Session) RowIndex() int { return s.row }

// LastAck returns the most recent printer acknowledgement.
func (s *Session) LastAck() protocol.Ack { return s.lastAck }

// Run drives the full lifecycle for one bitmap. Cancellation is
// cooperative: ctx is checked between frame sends only, never mid-write.
// On any failure the link is closed and a typed error is returned; the
// physical label may still be partially printed.
func (s *Session) Run(ctx context.Context, bm *bitmap.Bitmap, job protocol.JobOptions) error {
	if s.state != Idle {
		return fmt.Errorf("session already used (state %s)", s.state)
	}

	frames, err := protocol.Encode(bm, job)
	if err != nil {
		return s.fail(err)
	}
	logger.Info("print job started",
		zap.Int("rows", bm.Height()),
		zap.Int("frames", len(frames)),
		zap.Int("density", job.Density))

	s.state = Initializing
	if err := s.step(ctx, frames[0]); err != nil {
		return err
	}

	s.state = Transmitting
	for _, f := range frames[1 : len(frames)-1] {
		if err := s.step(ctx, f); err != nil {
			return err
		}
		if _, count, err := protocol.DecodeRow(f); err == nil {
			s.row += count
		}
	}

	s.state = Finalizing
	if err := ctx.Err(); err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrCancelled, err))
	}
	if err := s.link.Send(frames[len(frames)-1]); err != nil {
		return s.fail(err)
	}
	ack, err := s.link.AwaitAck(s.ackWindow)
	if err != nil {
		return s.fail(err)
	}
	s.lastAck = ack
	if ack.Kind != protocol.AckComplete {
		return s.fail(&protocol.ViolationError{Raw: ack.Raw})
	}

	s.state = Completed
	s.closeLink()
	logger.Info("print job completed", zap.Int("rows", s.row))
	return nil
}

// step sends one frame and waits for its receipt ack, honouring the
// cancellation point before the send.
func (s *Session) step(ctx context.Context, f protocol.Frame) error {
	if err := ctx.Err(); err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrCancelled, err))
	}
	if err := s.link.Send(f); err != nil {
		return s.fail(err)
	}
	ack, err := s.link.AwaitAck(s.ackWindow)
	if err != nil {
		return s.fail(err)
	}
	s.lastAck = ack
	if ack.Kind != protocol.AckReceipt {
		return s.fail(&protocol.ViolationError{Raw: ack.Raw})
	}
	return nil
}

// fail records the terminal failure and releases the link.
func (s *Session) fail(err error) error {
	from := s.state
	s.state = Failed
	s.closeLink()
	logger.Error("print job failed",
		zap.String("state", from.String()),
		zap.Int("row", s.row),
		zap.Error(err))
	return err
}

// closeLink releases the link exactly once across all exit paths.
func (s *Session) closeLink() {
	if s.linkClosed {
		return
	}
	s.linkClosed = true
	if err := s.link.Close(); err != nil {
		logger.Warn("closing transport", zap.Error(err))
	}
}

// Print opens the device, runs one job over it and releases it. The
// convenience entry point for callers that hold only a device path.
func Print(ctx context.Context, path string, bm *bitmap.Bitmap, job protocol.JobOptions, ackWindow time.Duration) error {
	tr, err := transport.Open(path)
	if err != nil {
		return err
	}
	return New(tr, ackWindow).Run(ctx, bm, job)
}
