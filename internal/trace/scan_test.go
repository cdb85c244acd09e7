package trace

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

func TestLocateRandomOffset(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	w := sampleWire()
	record := encode(t, w)

	for i := 0; i < 50; i++ {
		off := rng.Intn(4096)
		buf := append(filler(off), record...)
		buf = append(buf, filler(rng.Intn(512))...)

		report, err := NewScanner(zaptest.NewLogger(t)).Locate(buf)
		if err != nil {
			t.Fatalf("offset %d: unexpected error: %v", off, err)
		}
		want := &FaultReport{
			Offset:        off,
			Magic:         Magic,
			Version:       w.Version,
			Cause:         CauseHardFault,
			InterruptType: w.InterruptType,
			StackTrace:    w.StackTrace,
			Registers:     w.Registers,
			XPSR:          w.XPSR,
			FailureCount:  w.FailureCount,
			Line:          w.Line,
			File:          "main.c",
			MarkersValid:  true,
		}
		if diff := cmp.Diff(want, report); diff != "" {
			t.Fatalf("offset %d: report mismatch (-want +got):\n%s", off, diff)
		}
	}
}

func TestLocateSkipsCollision(t *testing.T) {
	collision := encode(t, sampleWire())
	copy(collision[4:], "Not the marker you want")

	valid := sampleWire()
	valid.FailureCount = 11
	buf := append(filler(17), collision...)
	buf = append(buf, filler(9)...)
	buf = append(buf, encode(t, valid)...)

	report, err := Locate(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantOff := 17 + RecordSize + 9
	if report.Offset != wantOff {
		t.Errorf("expected offset %d, got %d", wantOff, report.Offset)
	}
	if report.FailureCount != 11 {
		t.Errorf("expected failure count 11, got %d", report.FailureCount)
	}
}

func TestLocateReturnsFirstValid(t *testing.T) {
	first := sampleWire()
	first.Line = 1
	second := sampleWire()
	second.Line = 2

	buf := append(encode(t, first), encode(t, second)...)
	report, err := Locate(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Line != 1 || report.Offset != 0 {
		t.Errorf("expected first record at 0, got line %d at %d", report.Line, report.Offset)
	}
}

func TestLocateAcceptsDegradedRecord(t *testing.T) {
	w := sampleWire()
	w.EndMark = [4]byte{}
	report, err := Locate(append(filler(64), encode(t, w)...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.MarkersValid {
		t.Error("expected MarkersValid to be false")
	}
}

func TestLocateOverlappingMagic(t *testing.T) {
	// A stray magic word immediately before the real one.
	buf := append(filler(8), magicBytes...)
	buf = append(buf, encode(t, sampleWire())...)

	report, err := Locate(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Offset != 12 {
		t.Errorf("expected offset 12, got %d", report.Offset)
	}
}

func TestLocateNotFound(t *testing.T) {
	collision := encode(t, sampleWire())
	collision[4] = 'f'

	tests := []struct {
		name       string
		buf        []byte
		candidates int
		truncated  bool
	}{
		{"empty", nil, 0, false},
		{"short", []byte{0x2A, 0x2A, 0xFE}, 0, false},
		{"no magic", filler(2048), 0, false},
		{"collisions only", append(append(filler(3), collision...), collision...), 2, false},
		{"truncated tail", append(filler(32), encode(t, sampleWire())[:RecordSize-1]...), 1, true},
		{"collision then truncated", append(append(filler(5), collision...), magicBytes...), 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]byte(nil), tt.buf...)
			report, err := Locate(tt.buf)
			if report != nil {
				t.Fatalf("expected no report, got %+v", report)
			}
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if errors.Is(err, ErrTruncated) != tt.truncated {
				t.Errorf("expected errors.Is(ErrTruncated)=%v, got %v", tt.truncated, !tt.truncated)
			}
			var nf *NotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("expected *NotFoundError, got %T", err)
			}
			if nf.Candidates != tt.candidates {
				t.Errorf("expected %d candidates, got %d", tt.candidates, nf.Candidates)
			}
			if diff := cmp.Diff(before, tt.buf); diff != "" {
				t.Errorf("buffer modified (-before +after):\n%s", diff)
			}
		})
	}
}
