package symbol

import "testing"

func TestDemangle(t *testing.T) {
	const mangled = "_ZN12FeatherTrace12GetFaultDataEv"

	tests := []struct {
		mode DemangleMode
		name string
		want string
	}{
		{DemangleFull, mangled, "FeatherTrace::GetFaultData"},
		{DemangleSimplified, mangled, "FeatherTrace::GetFaultData"},
		{DemangleFull, "_ZN7sensors8readTempEi", "sensors::readTemp"},
		{DemangleTemplates, "_ZN5QueueIiE4pushEi", "Queue<int>::push"},
		{DemangleSimplified, "_ZN5QueueIiE4pushEi", "Queue::push"},
		{DemangleNone, mangled, mangled},
		{DemangleFull, "HardFault_Handler", "HardFault_Handler"},
		{DemangleSimplified, "loop", "loop"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.name, func(t *testing.T) {
			if got := tt.mode.Demangle(tt.name); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseDemangleMode(t *testing.T) {
	tests := []struct {
		in      string
		want    DemangleMode
		wantErr bool
	}{
		{"", DemangleFull, false},
		{"none", DemangleNone, false},
		{"SIMPLIFIED", DemangleSimplified, false},
		{"templates", DemangleTemplates, false},
		{"full", DemangleFull, false},
		{"pretty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDemangleMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
