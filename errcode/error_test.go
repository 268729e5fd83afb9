package errcode

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestLayeredError_New(t *testing.T) {
	err := New(71, 1, "artifact", "error.artifact.write", "artifact write failed")

	if err.Code() != 710001 {
		t.Errorf("expected code 710001, got %d", err.Code())
	}
	if err.Module() != "artifact" {
		t.Errorf("expected module 'artifact', got %s", err.Module())
	}
	if err.MsgKey() != "error.artifact.write" {
		t.Errorf("unexpected msgKey %s", err.MsgKey())
	}
	if err.HTTPStatus() != http.StatusInternalServerError {
		t.Errorf("expected default httpStatus 500, got %d", err.HTTPStatus())
	}
	if err.Class() != ClassInternal {
		t.Errorf("expected default class internal, got %s", err.Class())
	}
}

func TestLayeredError_WrapAndIs(t *testing.T) {
	base := New(73, 1, "provider", "error.provider.upstream", "upstream failed", http.StatusBadGateway).
		WithClass(ClassProvider)
	cause := errors.New("connection reset")
	wrapped := base.Wrap(cause)

	if wrapped.Error() != "upstream failed: connection reset" {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match base by code")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should unwrap to cause")
	}
	if base.Cause() != nil {
		t.Error("Wrap must not modify the original instance")
	}
	if base.Wrap(nil) != base {
		t.Error("Wrap(nil) should return the receiver")
	}
}

func TestLayeredError_WithMsgAndData(t *testing.T) {
	base := New(74, 2, "report", "error.report.validation", "invalid parameter", http.StatusBadRequest)
	e := base.WithMsgf("invalid date %q", "31-02-2024").WithData("field", "date")

	if e.Message() != `invalid date "31-02-2024"` {
		t.Errorf("unexpected message %q", e.Message())
	}
	if e.Data()["field"] != "date" {
		t.Errorf("unexpected data %v", e.Data())
	}
	if len(base.Data()) != 0 {
		t.Error("WithData must not modify the original instance")
	}
}

func TestClassOf(t *testing.T) {
	validation := New(74, 2, "report", "error.report.validation", "bad", http.StatusBadRequest).
		WithClass(ClassValidation)

	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ClassInternal},
		{"layered", validation, ClassValidation},
		{"wrapped by fmt", fmt.Errorf("handler: %w", validation), ClassValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.err); got != tt.want {
				t.Errorf("ClassOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	base := New(72, 1, "cache", "error.cache.nil_producer", "producer is nil")
	le, ok := As(fmt.Errorf("wrap: %w", base))
	if !ok || le.Code() != 720001 {
		t.Errorf("As() = %v, %v", le, ok)
	}
	if _, ok := As(errors.New("plain")); ok {
		t.Error("As() should fail for plain errors")
	}
}
