package trace

import "testing"

func TestClassifyCause(t *testing.T) {
	tests := []struct {
		code       uint32
		want       string
		recognized bool
	}{
		{0, "None", true},
		{1, "Unknown", true},
		{2, "Hung", true},
		{3, "HardFault", true},
		{4, "OutOfMemory", true},
		{5, "UserTriggered", true},
		{6, "Unrecognized(6)", false},
		{99, "Unrecognized(99)", false},
		{0xFFFFFFFF, "Unrecognized(4294967295)", false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			c := ClassifyCause(tt.code)
			if c.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, c.String())
			}
			if c.Recognized() != tt.recognized {
				t.Errorf("expected Recognized()=%v, got %v", tt.recognized, c.Recognized())
			}
			if c.Code() != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, c.Code())
			}
			if c.Description() == "" {
				t.Error("expected a description")
			}
		})
	}
}

func TestFaultCauseMarshalText(t *testing.T) {
	text, err := CauseHung.MarshalText()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(text) != "Hung" {
		t.Errorf("expected Hung, got %s", text)
	}
}
