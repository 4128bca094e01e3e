package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsUnwrapsWrappedErrors(t *testing.T) {
	base := NotFound("tag %q not found", "t1")
	wrapped := fmt.Errorf("resolve: %w", base)

	got := As(wrapped)
	if got != base {
		t.Fatalf("As: want original error got=%v", got)
	}
	if got.Status != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, got.Status)
	}
	if !Is(wrapped, CodeNotFound) {
		t.Fatalf("Is: want true for not_found")
	}
}

func TestAsDefaultsToInternal(t *testing.T) {
	got := As(errors.New("boom"))
	if got.Code != CodeInternal || got.Status != http.StatusInternalServerError {
		t.Fatalf("As: want internal/500 got=%s/%d", got.Code, got.Status)
	}
	if As(nil) != nil {
		t.Fatalf("As(nil): want nil")
	}
}

func TestKindsMapToStatuses(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		code   string
	}{
		{Validation("bad"), http.StatusBadRequest, CodeValidation},
		{InvalidTransition("x"), http.StatusConflict, CodeInvalidTransition},
		{Conflict("x"), http.StatusConflict, CodeConflict},
		{ExecutionFailure(errors.New("x")), http.StatusUnprocessableEntity, CodeExecutionFailure},
	}
	for _, tc := range cases {
		if tc.err.Status != tc.status || tc.err.Code != tc.code {
			t.Fatalf("%s: want=%d/%s got=%d/%s", tc.err, tc.status, tc.code, tc.err.Status, tc.err.Code)
		}
	}
}
