package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestValidationError_Fields(t *testing.T) {
	v := Validation("invalid claim")
	if v.OrNil() != nil {
		t.Fatal("empty validation error should be nil")
	}
	v.Add("description", "must be at least 5 characters").Add("amount", "must be a positive number")

	err := v.OrNil()
	if err == nil {
		t.Fatal("expected error")
	}
	want := "invalid claim (amount: must be a positive number; description: must be at least 5 characters)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !IsValidation(fmt.Errorf("submit: %w", err)) {
		t.Error("wrapped validation error not detected")
	}
}

func TestClassifiers(t *testing.T) {
	cause := errors.New("timeout")
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"authentication", Unauthenticated("bad credentials"), IsAuthentication},
		{"authorization", Forbidden("role %s", "patient"), IsAuthorization},
		{"not found", NotFound("claim", "abc"), IsNotFound},
		{"conflict", Conflict("claim %s already reviewed", "abc"), IsConflict},
		{"upstream", Upstream("upload", cause), IsUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.is(fmt.Errorf("wrapped: %w", tt.err)) {
				t.Errorf("%v not classified", tt.err)
			}
			if IsValidation(tt.err) {
				t.Errorf("%v classified as validation", tt.err)
			}
		})
	}
	if !errors.Is(Upstream("upload", cause), cause) {
		t.Error("upstream error should unwrap to its cause")
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("bad").Add("amount", "must be positive"), http.StatusBadRequest},
		{Unauthenticated("who"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", NotFound("claim", "1")), http.StatusNotFound},
		{Conflict("late"), http.StatusConflict},
		{Upstream("upload", errors.New("timeout")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestToBody(t *testing.T) {
	body := ToBody(Validation("invalid claim").Add("amount", "must be positive"))
	if body.Error != "invalid claim" || body.Fields["amount"] != "must be positive" {
		t.Errorf("validation body = %+v", body)
	}
	if body := ToBody(errors.New("mongo: connection refused")); body.Error != "internal server error" {
		t.Errorf("internal error leaked: %+v", body)
	}
}
