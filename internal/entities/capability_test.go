package entities

import (
	"errors"
	"testing"
)

func TestCapability_Includes(t *testing.T) {
	tests := []struct {
		name     string
		held     Capability
		required Capability
		want     bool
	}{
		{name: "none includes none", held: CapabilityNone, required: CapabilityNone, want: true},
		{name: "none does not include use", held: CapabilityNone, required: CapabilityUse, want: false},
		{name: "use includes use", held: CapabilityUse, required: CapabilityUse, want: true},
		{name: "use does not include edit", held: CapabilityUse, required: CapabilityEdit, want: false},
		{name: "edit includes use", held: CapabilityEdit, required: CapabilityUse, want: true},
		{name: "edit does not include admin", held: CapabilityEdit, required: CapabilityAdmin, want: false},
		{name: "admin includes edit", held: CapabilityAdmin, required: CapabilityEdit, want: true},
		{name: "admin includes admin", held: CapabilityAdmin, required: CapabilityAdmin, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.held.Includes(tt.required); got != tt.want {
				t.Errorf("%v.Includes(%v) = %v, want %v", tt.held, tt.required, got, tt.want)
			}
		})
	}
}

func TestCapabilities_StrictlyIncreasingRank(t *testing.T) {
	all := Capabilities()
	if len(all) != 4 {
		t.Fatalf("Expected 4 capabilities, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Rank() >= all[i].Rank() {
			t.Errorf("Expected rank(%v) < rank(%v)", all[i-1], all[i])
		}
	}
}

func TestCapability_String(t *testing.T) {
	tests := []struct {
		c    Capability
		want string
	}{
		{CapabilityNone, "None"},
		{CapabilityUse, "Use"},
		{CapabilityEdit, "Edit"},
		{CapabilityAdmin, "Admin"},
		{Capability(9), "Capability(9)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.c.String(); got != tt.want {
				t.Errorf("Capability.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCapability(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Capability
		wantErr bool
	}{
		{name: "canonical", input: "Edit", want: CapabilityEdit},
		{name: "lower case", input: "admin", want: CapabilityAdmin},
		{name: "padded", input: "  use ", want: CapabilityUse},
		{name: "empty is none", input: "", want: CapabilityNone},
		{name: "explicit none", input: "NONE", want: CapabilityNone},
		{name: "unknown", input: "owner", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCapability(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCapability() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCapability) {
					t.Errorf("Expected ErrUnknownCapability, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseCapability() = %v, want %v", got, tt.want)
			}
		})
	}
}
