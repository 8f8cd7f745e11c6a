package protocol

import "fmt"

// AckKind identifies a recognized printer response.
type AckKind int

const (
	AckReceipt  AckKind = iota // frame accepted
	AckComplete                // job printed and ejected
	AckStatus                  // status report
)

func (k AckKind) String() string {
	switch k {
	case AckReceipt:
		return "receipt"
	case AckComplete:
		return "complete"
	case AckStatus:
		return "status"
	}
	return fmt.Sprintf("AckKind(%d)", int(k))
}

// Printer responses open with ackLead followed by a code byte.
const ackLead = 0x5A

const (
	codeReceipt  = 0x00
	codeComplete = 0x0F
	codeStatus   = 0x10 // followed by one battery-level byte
)

// Ack is a decoded printer response.
type Ack struct {
	Kind    AckKind
	Battery int    // percent, AckStatus only
	Raw     []byte // the matched bytes as read from the wire
}

// ViolationError reports bytes from the printer that match no known
// response pattern. The raw bytes are kept for diagnosis.
type ViolationError struct {
	Raw []byte
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("unrecognized printer response % X", e.Raw)
}

// ParseAck matches buf against the known response patterns. needMore is
// true while buf is a proper prefix of a valid response; a full match
// returns the decoded Ack and the number of bytes consumed. Any byte
// sequence outside the pattern table is a *ViolationError.
func ParseAck(buf []byte) (ack Ack, n int, needMore bool, err error) {
	if len(buf) == 0 {
		return Ack{}, 0, true, nil
	}
	if buf[0] != ackLead {
		return Ack{}, 0, false, &ViolationError{Raw: append([]byte(nil), buf...)}
	}
	if len(buf) < 2 {
		return Ack{}, 0, true, nil
	}
	switch buf[1] {
	case codeReceipt:
		return Ack{Kind: AckReceipt, Raw: append([]byte(nil), buf[:2]...)}, 2, false, nil
	case codeComplete:
		return Ack{Kind: AckComplete, Raw: append([]byte(nil), buf[:2]...)}, 2, false, nil
	case codeStatus:
		if len(buf) < 3 {
			return Ack{}, 0, true, nil
		}
		return Ack{Kind: AckStatus, Battery: int(buf[2]), Raw: append([]byte(nil), buf[:3]...)}, 3, false, nil
	}
	return Ack{}, 0, false, &ViolationError{Raw: append([]byte(nil), buf...)}
}
