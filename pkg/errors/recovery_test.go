package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestRecoverConvertsGonumPanic(t *testing.T) {
	update := func() (err error) {
		defer Recover(&err, "SGDGLM.PartialFit")
		a := mat.NewVecDense(2, nil)
		b := mat.NewVecDense(3, nil)
		a.AddVec(a, b) // mismatched lengths panic inside gonum
		return nil
	}

	err := update()
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("expected PanicError, got %T", err)
	}
	if panicErr.Operation != "SGDGLM.PartialFit" {
		t.Errorf("Operation = %q", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("expected non-empty stack trace")
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include the stack trace")
	}
}

func TestRecoverKeepsExistingError(t *testing.T) {
	original := fmt.Errorf("original error")

	fn := func() (err error) {
		defer Recover(&err, "Update")
		err = original
		panic("after error")
	}

	err := fn()
	if !errors.Is(err, original) {
		t.Errorf("expected wrapped original error, got %v", err)
	}
	if !strings.Contains(err.Error(), "panic in Update: after error") {
		t.Errorf("missing panic info: %v", err)
	}
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name      string
		fn        func() error
		wantPanic bool
		wantErr   bool
	}{
		{"success", func() error { return nil }, false, false},
		{"error", func() error { return ErrEmptyData }, false, true},
		{"panic", func() error { panic("boom") }, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("op", tt.fn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			var panicErr *PanicError
			if got := errors.As(err, &panicErr); got != tt.wantPanic {
				t.Errorf("PanicError = %v, want %v", got, tt.wantPanic)
			}
		})
	}
}
