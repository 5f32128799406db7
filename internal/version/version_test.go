package version

import (
	"strings"
	"testing"
)

func TestCalculateBuildID(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		expected  int
		wantError bool
	}{
		{
			name:     "epoch date",
			date:     "2026-01-12",
			expected: 0,
		},
		{
			name:     "next day after epoch",
			date:     "2026-01-13",
			expected: 1,
		},
		{
			name:     "one year later",
			date:     "2027-01-12",
			expected: 365,
		},
		{
			name:     "leap year included",
			date:     "2029-01-12",
			expected: 1096,
		},
		{
			name:      "invalid format",
			date:      "invalid",
			wantError: true,
		},
		{
			name:      "empty date",
			date:      "",
			wantError: true,
		},
		{
			name:      "before epoch",
			date:      "2026-01-11",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := BuildDate
			defer func() { BuildDate = old }()

			BuildDate = tt.date

			got, err := CalculateBuildID()

			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error, got nil (id=%d)", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tt.expected {
				t.Errorf("CalculateBuildID() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestInfo_CarriesProtocol(t *testing.T) {
	old := BuildDate
	defer func() { BuildDate = old }()
	BuildDate = ""

	info := Info()
	if info.Protocol != Protocol {
		t.Errorf("Protocol = %d, want %d", info.Protocol, Protocol)
	}
	if info.Calculated || info.Error == "" {
		t.Error("Empty BuildDate should be reported as an error")
	}
	if !strings.Contains(String(), "protocol[") {
		t.Errorf("String() = %q, want protocol in it", String())
	}
}

func TestCheckProtocol(t *testing.T) {
	if err := CheckProtocol(Protocol); err != nil {
		t.Errorf("same protocol: %v", err)
	}
	if err := CheckProtocol(Protocol + 1); err == nil {
		t.Error("different protocol should fail")
	}
}
