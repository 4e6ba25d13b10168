package dsl

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitize_SizeLimit(t *testing.T) {
	old := MaxInputSize
	MaxInputSize = 16
	t.Cleanup(func() { MaxInputSize = old })

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", 15, false},
		{"Exact Limit", 16, false},
		{"Over Limit", 17, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sanitize(strings.Repeat("a", tt.inputSize))
			if tt.wantErr != (err != nil) {
				t.Fatalf("Sanitize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInputTooLarge) {
				t.Errorf("expected ErrInputTooLarge, got %v", err)
			}
		})
	}
}

func TestSanitize_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "Booking(Ann)", "Booking(Ann)"},
		{"Safe Controls", "Booking(\n\tAnn)", "Booking(\n\tAnn)"},
		{"ANSI Code", "\x1b[31mBooking\x1b[0m", "[31mBooking[0m"},
		{"Null Byte", "Book\x00ing", "Booking"},
		{"Bell", "Booking\x07", "Booking"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Sanitize() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSanitize_InvalidUTF8(t *testing.T) {
	_, err := Sanitize("\xbd\xb2\x3d\xbc\x20\xe2\x8c\x98")
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected ErrInvalidUTF8, got %v", err)
	}
}
