package trace

import (
	"bytes"
	"encoding/binary"
	"slices"
)

const (
	// Magic is the first word of every record.
	Magic uint32 = 0xFEFE2A2A

	// StackTraceLen is the number of stack trace slots in a record.
	StackTraceLen = 32

	// RegisterCount is the number of saved core registers (R0-R12, SP, LR, PC).
	RegisterCount = 16

	// FileNameLen is the size of the raw file name field.
	FileNameLen = 64

	// RecordSize is the exact encoded size of a record.
	RecordSize = 380
)

// MarkerHeader names the primary marker in FaultReport.BadMarkers.
const MarkerHeader = "header"

// Register indexes into FaultReport.Registers.
const (
	RegSP = 13
	RegLR = 14
	RegPC = 15
)

// Marker texts as written by the device, NUL padded to their field width.
var (
	HeaderMarker = marker24("FeatherTrace Data Here:")

	markerCaused    = marker8("Caused:")
	markerIType     = marker8("I type:")
	markerTraced    = marker8("Traced:")
	markerRegdump   = marker8("Regdmp:")
	markerMyBad     = marker8("My Bad:")
	markerFailCount = marker8("Fail #:")
	markerLine      = marker8("Line #:")
	markerFile      = marker8("File n:")
	markerEnd       = [4]byte{'E', 'n', 'd', 0}
)

func marker24(s string) (m [24]byte) {
	copy(m[:], s)
	return m
}

func marker8(s string) (m [8]byte) {
	copy(m[:], s)
	return m
}

// wireRecord mirrors the on-flash layout field for field.
type wireRecord struct {
	Magic         uint32
	Header        [24]byte
	Version       uint32
	CausedMark    [8]byte
	Cause         uint32
	ITypeMark     [8]byte
	InterruptType int32
	TracedMark    [8]byte
	StackTrace    [StackTraceLen]uint32
	RegdumpMark   [8]byte
	Registers     [RegisterCount]uint32
	XPSR          uint32
	MyBadMark     [8]byte
	IsCorrupted   uint32
	FailCountMark [8]byte
	FailureCount  uint32
	LineMark      [8]byte
	Line          int32
	FileMark      [8]byte
	File          [FileNameLen]byte
	EndMark       [4]byte
}

// FaultReport is a decoded record. It is built once by Decode and never
// modified afterwards.
type FaultReport struct {
	Offset        int                   `yaml:"offset" json:"offset"`
	Magic         uint32                `yaml:"magic" json:"magic"`
	Version       uint32                `yaml:"version" json:"version"`
	Cause         FaultCause            `yaml:"cause" json:"cause"`
	InterruptType int32                 `yaml:"interrupt_type" json:"interrupt_type"`
	StackTrace    [StackTraceLen]uint32 `yaml:"stack_trace,flow" json:"stack_trace"`
	Registers     [RegisterCount]uint32 `yaml:"registers,flow" json:"registers"`
	XPSR          uint32                `yaml:"xpsr" json:"xpsr"`
	IsCorrupted   bool                  `yaml:"is_corrupted" json:"is_corrupted"`
	FailureCount  uint32                `yaml:"failure_count" json:"failure_count"`
	Line          int32                 `yaml:"line" json:"line"`
	File          string                `yaml:"file" json:"file"`
	MarkersValid  bool                  `yaml:"markers_valid" json:"markers_valid"`
	BadMarkers    []string              `yaml:"bad_markers,omitempty" json:"bad_markers,omitempty"`
}

// Decode parses a RecordSize window into a FaultReport. The only failure is a
// window of the wrong length; marker mismatches are reported through
// MarkersValid and BadMarkers.
func Decode(window []byte) (*FaultReport, error) {
	return decodeAt(window, 0)
}

// DecodeAt decodes the record starting at off in buf and records off in the
// report.
func DecodeAt(buf []byte, off int) (*FaultReport, error) {
	if off < 0 || off > len(buf) {
		return nil, &DecodeError{Offset: off, Want: RecordSize, Got: 0}
	}
	end := off + RecordSize
	if end > len(buf) {
		end = len(buf)
	}
	return decodeAt(buf[off:end], off)
}

func decodeAt(window []byte, off int) (*FaultReport, error) {
	if len(window) != RecordSize {
		return nil, &DecodeError{Offset: off, Want: RecordSize, Got: len(window)}
	}

	var w wireRecord
	if err := binary.Read(bytes.NewReader(window), binary.LittleEndian, &w); err != nil {
		// Unreachable with a correctly sized window.
		return nil, &DecodeError{Offset: off, Want: RecordSize, Got: len(window)}
	}

	r := &FaultReport{
		Offset:        off,
		Magic:         w.Magic,
		Version:       w.Version,
		Cause:         ClassifyCause(w.Cause),
		InterruptType: w.InterruptType,
		StackTrace:    w.StackTrace,
		Registers:     w.Registers,
		XPSR:          w.XPSR,
		IsCorrupted:   w.IsCorrupted != 0,
		FailureCount:  w.FailureCount,
		Line:          w.Line,
		File:          cString(w.File[:]),
	}
	r.BadMarkers = checkMarkers(&w)
	r.MarkersValid = len(r.BadMarkers) == 0
	return r, nil
}

// Encode lays r out the way the device writes it, with every marker intact.
// File is truncated to leave room for its terminator. Offset, Magic,
// MarkersValid and BadMarkers are ignored.
func Encode(r *FaultReport) []byte {
	w := wireRecord{
		Magic:         Magic,
		Header:        HeaderMarker,
		Version:       r.Version,
		CausedMark:    markerCaused,
		Cause:         r.Cause.Code(),
		ITypeMark:     markerIType,
		InterruptType: r.InterruptType,
		TracedMark:    markerTraced,
		StackTrace:    r.StackTrace,
		RegdumpMark:   markerRegdump,
		Registers:     r.Registers,
		XPSR:          r.XPSR,
		MyBadMark:     markerMyBad,
		FailCountMark: markerFailCount,
		FailureCount:  r.FailureCount,
		LineMark:      markerLine,
		Line:          r.Line,
		FileMark:      markerFile,
		EndMark:       markerEnd,
	}
	if r.IsCorrupted {
		w.IsCorrupted = 1
	}
	copy(w.File[:FileNameLen-1], r.File)

	buf := bytes.NewBuffer(make([]byte, 0, RecordSize))
	// Writes to a bytes.Buffer of fixed-size fields cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, &w)
	return buf.Bytes()
}

func checkMarkers(w *wireRecord) []string {
	var bad []string
	check := func(name string, ok bool) {
		if !ok {
			bad = append(bad, name)
		}
	}
	check(MarkerHeader, w.Header == HeaderMarker)
	check("cause", w.CausedMark == markerCaused)
	check("interrupt_type", w.ITypeMark == markerIType)
	check("stack_trace", w.TracedMark == markerTraced)
	check("registers", w.RegdumpMark == markerRegdump)
	check("is_corrupted", w.MyBadMark == markerMyBad)
	check("failure_count", w.FailCountMark == markerFailCount)
	check("line", w.LineMark == markerLine)
	check("file", w.FileMark == markerFile)
	check("end", w.EndMark == markerEnd)
	return bad
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// HeaderValid reports whether the magic word and primary marker match. The
// scanner accepts a candidate only when this holds.
func (r *FaultReport) HeaderValid() bool {
	return r.Magic == Magic && !slices.Contains(r.BadMarkers, MarkerHeader)
}

// LiveTrace returns the non-zero stack trace entries in their original order.
func (r *FaultReport) LiveTrace() []uint32 {
	live := make([]uint32, 0, StackTraceLen)
	for _, addr := range r.StackTrace {
		if addr != 0 {
			live = append(live, addr)
		}
	}
	return live
}

// HasRegisters reports whether the register snapshot is meaningful, which is
// only the case when the fault was taken from an interrupt.
func (r *FaultReport) HasRegisters() bool {
	return r.InterruptType != 0
}

// GeneralRegisters returns R0 through R12.
func (r *FaultReport) GeneralRegisters() []uint32 {
	return append([]uint32(nil), r.Registers[:RegSP]...)
}

func (r *FaultReport) SP() uint32 { return r.Registers[RegSP] }
func (r *FaultReport) LR() uint32 { return r.Registers[RegLR] }
func (r *FaultReport) PC() uint32 { return r.Registers[RegPC] }
