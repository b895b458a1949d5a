package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf_WrappedFetchError(t *testing.T) {
	base := NewParseError("https://example.com/api", errors.New("bad json"))
	wrapped := fmt.Errorf("topic: %w", base)

	if got := KindOf(wrapped); got != ParseError {
		t.Errorf("KindOf = %v, want %v", got, ParseError)
	}
}

func TestKindOf_PlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != 0 {
		t.Errorf("KindOf = %v, want 0", got)
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("https://example.com/api", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestFetchError_MessageIncludesStatus(t *testing.T) {
	err := NewStatusError("https://example.com/api", 503)

	if !strings.Contains(err.Error(), "503") {
		t.Errorf("Error() = %q, want to contain status code", err.Error())
	}
	if err.Kind != NetworkError {
		t.Errorf("Kind = %v, want %v", err.Kind, NetworkError)
	}
}

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{NetworkError, "network"},
		{ParseError, "parse"},
		{PersistenceError, "persistence"},
		{ErrorKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
