package transport

import (
	"errors"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    Version
		wantErr bool
	}{
		{"3.1.1", Version311, false},
		{"", Version311, false},
		{"5.0", Version5, false},
		{"5", Version5, false},
		{"4.0", Version311, true},
		{"mqtt5", Version311, true},
	}

	for _, tt := range tests {
		got, err := ParseVersion(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseVersion(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestVersionString(t *testing.T) {
	if got := Version311.String(); got != "3.1.1" {
		t.Errorf("Version311.String() = %q, want %q", got, "3.1.1")
	}
	if got := Version5.String(); got != "5.0" {
		t.Errorf("Version5.String() = %q, want %q", got, "5.0")
	}
}

func TestPahoProtocolVersion(t *testing.T) {
	proto, err := pahoProtocolVersion(Version311)
	if err != nil {
		t.Fatalf("pahoProtocolVersion(Version311) error = %v", err)
	}
	if proto != 4 {
		t.Errorf("pahoProtocolVersion(Version311) = %d, want 4", proto)
	}

	_, err = pahoProtocolVersion(Version5)
	if !errors.Is(err, ErrVersionUnsupported) {
		t.Errorf("pahoProtocolVersion(Version5) error = %v, want ErrVersionUnsupported", err)
	}
}

func TestNegotiate_FallbackOnce(t *testing.T) {
	var attempts []Version
	notified := false

	got, err := negotiate(Version5,
		func(v Version) error {
			attempts = append(attempts, v)
			if v == Version5 {
				return ErrVersionUnsupported
			}
			return nil
		},
		func(from, to Version, cause error) {
			notified = true
			if from != Version5 || to != Version311 {
				t.Errorf("notify(%v, %v), want (Version5, Version311)", from, to)
			}
			if !errors.Is(cause, ErrVersionUnsupported) {
				t.Errorf("notify cause = %v, want ErrVersionUnsupported", cause)
			}
		})
	if err != nil {
		t.Fatalf("negotiate() error = %v", err)
	}

	if got != Version311 {
		t.Errorf("negotiate() = %v, want Version311", got)
	}
	if !notified {
		t.Error("fallback was not surfaced")
	}
	if len(attempts) != 2 || attempts[0] != Version5 || attempts[1] != Version311 {
		t.Errorf("attempts = %v, want exactly [Version5 Version311]", attempts)
	}
}

func TestNegotiate_NoFallbackFor311(t *testing.T) {
	cause := errors.New("dial refused")
	var attempts int

	_, err := negotiate(Version311,
		func(Version) error {
			attempts++
			return cause
		},
		func(Version, Version, error) {
			t.Error("notify called for a 3.1.1 failure")
		})
	if !errors.Is(err, cause) {
		t.Errorf("negotiate() error = %v, want %v", err, cause)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestNegotiate_SuccessFirstTry(t *testing.T) {
	got, err := negotiate(Version311,
		func(Version) error { return nil },
		func(Version, Version, error) {
			t.Error("notify called on success")
		})
	if err != nil {
		t.Fatalf("negotiate() error = %v", err)
	}
	if got != Version311 {
		t.Errorf("negotiate() = %v, want Version311", got)
	}
}

func TestNegotiate_BothFail(t *testing.T) {
	cause := errors.New("endpoint unreachable")

	_, err := negotiate(Version5,
		func(v Version) error {
			if v == Version5 {
				return ErrVersionUnsupported
			}
			return cause
		},
		func(Version, Version, error) {})
	if !errors.Is(err, cause) {
		t.Errorf("negotiate() error = %v, want fallback attempt error %v", err, cause)
	}
}
