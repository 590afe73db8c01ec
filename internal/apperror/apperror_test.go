package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		err  error
		want int
	}{
		{InvalidInput("bad", nil), http.StatusBadRequest},
		{MissingCredential("no key"), http.StatusBadRequest},
		{Unauthorized("Invalid API key", cause), http.StatusUnauthorized},
		{QuotaExceeded("API quota exceeded", cause), http.StatusTooManyRequests},
		{NotFound("missing", nil), http.StatusNotFound},
		{Upstream("upstream", cause), http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", Upstream("upstream", cause)), http.StatusBadGateway},
		{cause, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := As(tc.err).Kind.HTTPStatus(); got != tc.want {
			t.Fatalf("status of %v = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Upstream("Failed to upload", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
	if err.Error() != "Failed to upload: dial tcp: refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
