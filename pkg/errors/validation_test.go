package errors

import (
	"strings"
	"testing"
)

func TestValidateArchDescription(t *testing.T) {
	tests := []struct {
		name    string
		desc    string
		wantErr bool
	}{
		{"hypercube", "hcub 3", false},
		{"multiline", "tleaf 2\n4 10 2 1", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"control", "hcub\x07 3", true},
		{"too long", strings.Repeat("a", MaxArchDescriptionLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArchDescription(tt.desc)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArchDescription(%q) error = %v, wantErr %v", tt.desc, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidArch) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidArch)
			}
		})
	}
}

func TestValidateGraphPayload(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		limit   int
		wantErr bool
	}{
		{"small", "2 1\n2\n1\n", 0, false},
		{"within limit", "2 1\n2\n1\n", 64, false},
		{"over limit", "2 1\n2\n1\n", 4, true},
		{"empty", "", 0, true},
		{"null byte", "2 1\x00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGraphPayload(tt.data, tt.limit)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGraphPayload() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
