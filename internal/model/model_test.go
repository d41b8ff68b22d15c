package model

import (
	"regexp"
	"testing"
)

// crockfordBase32 matches valid ULID strings (26 chars, Crockford Base32 alphabet).
var crockfordBase32 = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if !crockfordBase32.MatchString(id) {
		t.Errorf("NewID() = %q, does not match Crockford Base32 ULID format", id)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("NewID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestStatusConstants(t *testing.T) {
	statuses := []struct {
		constant string
		expected string
	}{
		{StatusProcessing, "processing"},
		{StatusCancelling, "cancelling"},
		{StatusCompleted, "completed"},
		{StatusError, "error"},
		{StatusCancelled, "cancelled"},
	}
	for _, s := range statuses {
		if s.constant != s.expected {
			t.Errorf("status constant = %q, want %q", s.constant, s.expected)
		}
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusProcessing, StatusCancelling, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusError, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusCancelling, StatusCompleted, true},
		{StatusCancelling, StatusError, true},
		{StatusCancelling, StatusCancelled, true},
		{StatusCancelling, StatusProcessing, false},
		{StatusCompleted, StatusError, false},
		{StatusError, StatusProcessing, false},
		{StatusCancelled, StatusCancelling, false},
		{"bogus", StatusCompleted, false},
	}
	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, status := range []string{StatusCompleted, StatusError, StatusCancelled} {
		if !Terminal(status) {
			t.Errorf("Terminal(%q) = false, want true", status)
		}
	}
	for _, status := range []string{StatusProcessing, StatusCancelling, ""} {
		if Terminal(status) {
			t.Errorf("Terminal(%q) = true, want false", status)
		}
	}
}

func TestDomainErrorMessage(t *testing.T) {
	err := &DomainError{Msg: "patient room number or name required to save note"}
	if err.Error() != "patient room number or name required to save note" {
		t.Errorf("DomainError.Error() = %q", err.Error())
	}
}
