package trace

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// sampleWire returns a fully populated record with valid markers.
func sampleWire() wireRecord {
	w := wireRecord{
		Magic:         Magic,
		Header:        HeaderMarker,
		Version:       1,
		CausedMark:    markerCaused,
		Cause:         uint32(CauseHardFault),
		ITypeMark:     markerIType,
		InterruptType: 3,
		TracedMark:    markerTraced,
		RegdumpMark:   markerRegdump,
		XPSR:          0x61000003,
		MyBadMark:     markerMyBad,
		IsCorrupted:   0,
		FailCountMark: markerFailCount,
		FailureCount:  7,
		LineMark:      markerLine,
		Line:          42,
		FileMark:      markerFile,
		EndMark:       markerEnd,
	}
	w.StackTrace[0] = 0x00002a4d
	w.StackTrace[1] = 0x00003100
	w.StackTrace[3] = 0x000041f8
	for i := range w.Registers {
		w.Registers[i] = 0x20000000 + uint32(i)*4
	}
	copy(w.File[:], "main.c")
	return w
}

func encode(t *testing.T, w wireRecord) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &w); err != nil {
		t.Fatalf("encode record: %v", err)
	}
	return buf.Bytes()
}

// filler returns n bytes of deterministic non-magic data.
func filler(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}
