package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrap_NilPassthrough(t *testing.T) {
	if err := Wrap(KindDatabase, "query", nil); err != nil {
		t.Errorf("Wrap(nil) must return nil, got %v", err)
	}
}

func TestKindOf_ThroughChain(t *testing.T) {
	base := New(KindNotFound, "document not found")
	wrapped := fmt.Errorf("handler: %w", base)

	k, ok := KindOf(wrapped)
	if !ok || k != KindNotFound {
		t.Errorf("KindOf = %q, %v", k, ok)
	}
	if !Is(wrapped, KindNotFound) {
		t.Error("Is must find the kind through the chain")
	}
	if Is(wrapped, KindDatabase) {
		t.Error("Is must not match a different kind")
	}
	if Is(errors.New("plain"), KindDatabase) {
		t.Error("Is must not match an unclassified error")
	}
}

func TestError_Message(t *testing.T) {
	plain := New(KindValidation, "query must not be empty")
	if plain.Error() != "query must not be empty" {
		t.Errorf("unexpected message %q", plain.Error())
	}

	wrapped := Wrap(KindDatabase, "insert document", errors.New("connection refused"))
	if wrapped.Error() != "insert document: connection refused" {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
	if !errors.Is(wrapped, errors.Unwrap(wrapped)) {
		t.Error("wrapped cause must be reachable via Unwrap")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(KindNotFound, "x"), 404},
		{New(KindValidation, "x"), 400},
		{New(KindAuth, "x"), 401},
		{New(KindConflict, "x"), 409},
		{New(KindDatabase, "x"), 500},
		{New(KindSearch, "x"), 500},
		{errors.New("plain"), 500},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
