// Package protocol implements the P21's binary raster protocol: framed
// commands with a length-prefixed payload and trailing checksum, and the
// acknowledgement patterns the printer answers with.
//
//	Command: [OPCODE][LEN_L][LEN_H][PAYLOAD...][CHECKSUM]
//
// The checksum is the XOR of the opcode and every payload byte. Opcode
// values, payload layouts and response patterns come from the protocol
// capture and must not be changed independently of it.
package protocol

// Command opcodes.
const (
	OpInit     byte = 0xA1 // density/speed/geometry, starts a job
	OpRow      byte = 0xA2 // one packed pixel row
	OpRowRun   byte = 0xA3 // repeat count + one packed pixel row
	OpFinalize byte = 0xA4 // feed and print
	OpStatus   byte = 0xA5 // status query
)

// MaxRun is the largest repeat count one row-run frame can carry; longer
// runs are split across frames.
const MaxRun = 255

// Frame is one unit of the wire protocol. Immutable once built.
type Frame struct {
	Opcode  byte
	Payload []byte
}

// Checksum returns the XOR of the opcode and every payload byte.
func (f Frame) Checksum() byte {
	sum := f.Opcode
	for _, b := range f.Payload {
		sum ^= b
	}
	return sum
}

// Bytes serializes the frame for the wire.
func (f Frame) Bytes() []byte {
	out := make([]byte, 0, len(f.Payload)+4)
	out = append(out, f.Opcode, byte(len(f.Payload)), byte(len(f.Payload)>>8))
	out = append(out, f.Payload...)
	return append(out, f.Checksum())
}

// StatusFrame builds a status-query frame.
func StatusFrame() Frame { return Frame{Opcode: OpStatus} }
