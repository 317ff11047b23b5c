package attendance

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		label    string
		expected State
	}{
		{"Sign In", NotClockedIn},
		{"Sign Out", ClockedIn},
		{"  SIGN OUT  ", ClockedIn},
		{"\n\tsign out\n", ClockedIn},
		{"Web Sign Out", ClockedIn},
		{"sign  out", NotClockedIn},
		{"Signout", NotClockedIn},
		{"", NotClockedIn},
	}

	for _, tt := range tests {
		if got := Classify(tt.label); got != tt.expected {
			t.Errorf("Classify(%q) = %v; want %v", tt.label, got, tt.expected)
		}
	}
}

func TestStateString(t *testing.T) {
	if ClockedIn.String() != "already clocked" {
		t.Errorf("ClockedIn.String() = %q", ClockedIn.String())
	}
	if NotClockedIn.String() != "not clocked" {
		t.Errorf("NotClockedIn.String() = %q", NotClockedIn.String())
	}
}
