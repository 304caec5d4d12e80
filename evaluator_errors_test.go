package persist

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "xp * 2", "MemberData", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "xp * 2" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Type != "MemberData" {
		t.Fatalf("expected type metadata, got %q", evalErr.Type)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "Item", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Type != "Item" {
		t.Fatalf("type should be filled, got %q", existing.Type)
	}
}

func TestWrapEvaluatorErrorKeepsPrefixedErrors(t *testing.T) {
	prefixed := errors.New("persist: already described")
	if got := wrapEvaluatorError("expr", prefixed); got != prefixed {
		t.Fatalf("expected prefixed error returned unchanged, got %v", got)
	}

	got := wrapEvaluatorError("cel", errors.New("bad"))
	if !strings.HasPrefix(got.Error(), "persist: cel evaluator:") {
		t.Fatalf("expected engine prefix, got %q", got.Error())
	}
}

func TestShapeMismatchMatchesSentinel(t *testing.T) {
	var err error = ShapeMismatch{Type: "Inventory", Path: "items", Want: "sequence", Got: "number"}
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ShapeMismatch to match ErrShapeMismatch")
	}
	if !strings.Contains(err.Error(), `"items"`) {
		t.Fatalf("expected path in message, got %q", err.Error())
	}
}
