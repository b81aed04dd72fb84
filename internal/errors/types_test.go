package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"typed transient", NewTransientError(fmt.Errorf("boom"), ""), true},
		{"typed permanent", NewPermanentError(fmt.Errorf("boom"), ""), false},
		{"wrapped transient", fmt.Errorf("embed batch: %w", NewTransientError(fmt.Errorf("boom"), "")), true},
		{"connection refused", fmt.Errorf("dial tcp: connection refused"), true},
		{"rate limited status", fmt.Errorf("completion API status 429: slow down"), true},
		{"unauthorized status", fmt.Errorf("completion API status 401: bad key"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	if !IsPermanent(NewPermanentError(fmt.Errorf("boom"), "")) {
		t.Fatalf("typed permanent error must classify as permanent")
	}
	if IsPermanent(NewTransientError(fmt.Errorf("boom"), "")) {
		t.Fatalf("typed transient error must not classify as permanent")
	}
	if !IsPermanent(NewNotFound("conversation", "c1")) {
		t.Fatalf("not-found must classify as permanent")
	}
}

func TestGetErrorType(t *testing.T) {
	degraded := NewDegradedError(fmt.Errorf("vector store down"), "Search is unavailable.", "")
	if got := GetErrorType(degraded); got != ErrorTypeDegraded {
		t.Fatalf("GetErrorType(degraded) = %v", got)
	}
	if !IsDegraded(fmt.Errorf("search: %w", degraded)) {
		t.Fatalf("IsDegraded must see through wrapping")
	}
	if got := GetErrorType(NewTransientError(fmt.Errorf("boom"), "")); got != ErrorTypeTransient {
		t.Fatalf("GetErrorType(transient) = %v", got)
	}
	if got := GetErrorType(errors.New("something odd")); got != ErrorTypePermanent {
		t.Fatalf("unclassified errors must default to permanent, got %v", got)
	}
	if ErrorTypeDegraded.String() != "degraded" || ErrorTypeTransient.String() != "transient" {
		t.Fatalf("ErrorType.String mismatch")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(NewTransientError(fmt.Errorf("boom"), "Try again shortly.")); got != "Try again shortly." {
		t.Fatalf("typed message not used: %q", got)
	}
	if got := UserMessage(NewNotFound("contact", "sarah")); got == "" || got == "contact not found: sarah" {
		t.Fatalf("contact not-found should be rewritten, got %q", got)
	}
	if got := UserMessage(fmt.Errorf("context deadline exceeded")); got != "That took too long to complete. Please try again." {
		t.Fatalf("timeout rewrite missing: %q", got)
	}
}
