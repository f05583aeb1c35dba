package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("row missing")
	err := Wrap(KindNotFound, "patient not found", cause)

	wrapped := fmt.Errorf("loading record: %w", err)
	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("KindOf = %v, want KindNotFound", KindOf(wrapped))
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected cause to survive wrapping")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("plain errors must classify as internal")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindInvalidInput, http.StatusBadRequest},
		{KindInvalidOperation, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindNotFound, http.StatusNotFound},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(New(tt.kind, "x")); got != tt.want {
			t.Errorf("HTTPStatus(kind=%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestMessageHidesInternalCause(t *testing.T) {
	err := Wrap(KindInternal, "query failed: password=hunter2", errors.New("pq"))
	if Message(err) != "internal error" {
		t.Fatalf("Message = %q, want generic internal message", Message(err))
	}

	err = New(KindConflict, "time slot already booked")
	if Message(err) != "time slot already booked" {
		t.Fatalf("Message = %q", Message(err))
	}
}
