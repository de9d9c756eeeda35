package session

import (
	"strings"
	"testing"
)

func TestValidateClientID(t *testing.T) {
	valid := []string{
		"a",
		"client-01",
		"Client_01",
		"ABCxyz019_-",
		strings.Repeat("x", 128),
	}
	for _, id := range valid {
		if err := ValidateClientID(id); err != nil {
			t.Errorf("ValidateClientID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{
		"",
		"has space",
		"has.dot",
		"has/slash",
		"has#hash",
		"über",
		strings.Repeat("x", 129),
	}
	for _, id := range invalid {
		if err := ValidateClientID(id); err == nil {
			t.Errorf("ValidateClientID(%q) = nil, want error", id)
		}
	}
}

func TestGenerateClientID(t *testing.T) {
	id := GenerateClientID("explorer")

	if !strings.HasPrefix(id, "explorer-") {
		t.Errorf("GenerateClientID() = %q, want explorer- prefix", id)
	}
	if err := ValidateClientID(id); err != nil {
		t.Errorf("generated id %q fails validation: %v", id, err)
	}
	if len(id) != len("explorer-")+8 {
		t.Errorf("GenerateClientID() = %q, want 8-character suffix", id)
	}

	if GenerateClientID("explorer") == id {
		t.Error("two generated ids collided")
	}
}

func TestGenerateClientIDDefaultPrefix(t *testing.T) {
	id := GenerateClientID("")
	if !strings.HasPrefix(id, defaultClientIDPrefix+"-") {
		t.Errorf("GenerateClientID(\"\") = %q, want default prefix", id)
	}
}
