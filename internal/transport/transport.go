// Package transport owns the serial connection to the printer: frame
// writes, acknowledgement reads and timeouts.
package transport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"p21print/internal/logger"
	"p21print/internal/protocol"
)

var (
	ErrDeviceUnavailable = errors.New("printer device unavailable")
	ErrWriteTimeout      = errors.New("write timed out")
	ErrAckTimeout        = errors.New("no acknowledgement from printer")
	ErrIO                = errors.New("serial i/o failed")
	ErrClosed            = errors.New("transport closed")
)

// Port is the subset of the serial device the transport uses. Production
// code gets a go.bug.st/serial port; tests substitute a scripted fake.
type Port interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// DefaultWriteTimeout bounds a single frame write.
const DefaultWriteTimeout = 3 * time.Second

const baudRate = 115200

// Transport holds one exclusive serial connection to the printer for the
// duration of a print session. Not safe for concurrent use; a session is
// single-threaded by design.
type Transport struct {
	port         Port
	path         string
	writeTimeout time.Duration
	closed       bool
}

// Open opens the serial device the printer is bound to (an rfcomm node on
// Linux). The kernel holds the tty exclusively, so a device already owned
// by another process fails here with ErrDeviceUnavailable.
func Open(path string) (*Transport, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
	}
	logger.Info("serial port open", zap.String("path", path), zap.Int("baud", baudRate))
	return &Transport{port: port, path: path, writeTimeout: DefaultWriteTimeout}, nil
}

// FromPort wraps an already-open port. Used by tests and by callers that
// manage the device themselves.
func FromPort(port Port, path string) *Transport {
	return &Transport{port: port, path: path, writeTimeout: DefaultWriteTimeout}
}

// SetWriteTimeout overrides the per-frame write deadline.
func (t *Transport) SetWriteTimeout(d time.Duration) {
	if d > 0 {
		t.writeTimeout = d
	}
}

// Send writes one frame to the device. The serial library has no write
// deadline, so the write runs under a timer; after a timeout the port
// state is unknown and the transport must be closed.
func (t *Transport) Send(f protocol.Frame) error {
	if t.closed {
		return ErrClosed
	}
	raw := f.Bytes()
	done := make(chan error, 1)
	go func() {
		n, err := t.port.Write(raw)
		if err == nil && n < len(raw) {
			err = fmt.Errorf("short write: %d of %d bytes", n, len(raw))
		}
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: frame 0x%02X: %v", ErrIO, f.Opcode, err)
		}
		logger.Debug("frame sent", zap.Uint8("opcode", f.Opcode), zap.Int("bytes", len(raw)))
		return nil
	case <-time.After(t.writeTimeout):
		return fmt.Errorf("%w: frame 0x%02X after %s", ErrWriteTimeout, f.Opcode, t.writeTimeout)
	}
}

// AwaitAck blocks until a recognized response pattern arrives or the
// window elapses. Bytes that match no pattern surface as a
// *protocol.ViolationError carrying the raw data.
func (t *Transport) AwaitAck(window time.Duration) (protocol.Ack, error) {
	if t.closed {
		return protocol.Ack{}, ErrClosed
	}
	deadline := time.Now().Add(window)
	var buf []byte
	one := make([]byte, 1)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			if len(buf) > 0 {
				// Partial pattern, then silence.
				return protocol.Ack{}, &protocol.ViolationError{Raw: buf}
			}
			return protocol.Ack{}, fmt.Errorf("%w: after %s", ErrAckTimeout, window)
		}
		if err := t.port.SetReadTimeout(remaining); err != nil {
			return protocol.Ack{}, fmt.Errorf("%w: %v", ErrIO, err)
		}
		n, err := t.port.Read(one)
		if err != nil {
			return protocol.Ack{}, fmt.Errorf("%w: reading ack: %v", ErrIO, err)
		}
		if n == 0 {
			continue // read timed out, outer loop re-checks the deadline
		}
		buf = append(buf, one[0])
		ack, _, needMore, err := protocol.ParseAck(buf)
		if err != nil {
			return protocol.Ack{}, err
		}
		if needMore {
			continue
		}
		logger.Debug("ack received", zap.String("kind", ack.Kind.String()))
		return ack, nil
	}
}

// QueryStatus sends a status-query frame and returns the printer's report
// (battery level rides on the status ack).
func (t *Transport) QueryStatus(window time.Duration) (protocol.Ack, error) {
	if err := t.Send(protocol.StatusFrame()); err != nil {
		return protocol.Ack{}, err
	}
	ack, err := t.AwaitAck(window)
	if err != nil {
		return protocol.Ack{}, err
	}
	if ack.Kind != protocol.AckStatus {
		return protocol.Ack{}, &protocol.ViolationError{Raw: ack.Raw}
	}
	return ack, nil
}

// Close releases the device. Idempotent.
func (t *Transport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	logger.Info("serial port closed", zap.String("path", t.path))
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrIO, t.path, err)
	}
	return nil
}

// ListPorts enumerates candidate serial devices for the CLI.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	return ports, nil
}
