package trace

import "fmt"

// FaultCause is the reason the device's fault handler was entered.
type FaultCause uint32

const (
	CauseNone FaultCause = iota
	CauseUnknown
	CauseHung
	CauseHardFault
	CauseOutOfMemory
	CauseUser
)

var causeNames = map[FaultCause]string{
	CauseNone:        "None",
	CauseUnknown:     "Unknown",
	CauseHung:        "Hung",
	CauseHardFault:   "HardFault",
	CauseOutOfMemory: "OutOfMemory",
	CauseUser:        "UserTriggered",
}

var causeDescriptions = map[FaultCause]string{
	CauseNone:        "no fault recorded",
	CauseUnknown:     "fault handler entered for an unknown reason",
	CauseHung:        "watchdog timer expired, the program stopped marking",
	CauseHardFault:   "processor raised a HardFault exception",
	CauseOutOfMemory: "allocation failed or the stack ran into the heap",
	CauseUser:        "fault triggered by the program itself",
}

// ClassifyCause maps a raw cause code to a FaultCause. It never fails: codes
// outside the known range are kept and report as Unrecognized.
func ClassifyCause(code uint32) FaultCause {
	return FaultCause(code)
}

// Recognized reports whether c is one of the known causes.
func (c FaultCause) Recognized() bool {
	_, ok := causeNames[c]
	return ok
}

// Code returns the raw numeric cause code.
func (c FaultCause) Code() uint32 {
	return uint32(c)
}

func (c FaultCause) String() string {
	if name, ok := causeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unrecognized(%d)", uint32(c))
}

// Description returns a short human-readable explanation of the cause.
func (c FaultCause) Description() string {
	if d, ok := causeDescriptions[c]; ok {
		return d
	}
	return "cause code not known to this tool"
}

// MarshalText encodes the cause by name so YAML and JSON output stay readable.
func (c FaultCause) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
