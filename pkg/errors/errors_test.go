package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorChain(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("handler: %w", NotFound("device not found", cause))

	if got := Code(err); got != CodeNotFound {
		t.Errorf("Code = %s, want %s", got, CodeNotFound)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if got := Code(cause); got != CodeInternal {
		t.Errorf("Code(plain) = %s, want %s", got, CodeInternal)
	}
	if msg := NewAppError(CodeBadRequest, "bad", nil).Error(); msg != "bad" {
		t.Errorf("Error() = %q", msg)
	}
}
