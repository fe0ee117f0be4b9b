package graphgate

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

// TestGateErrorError verifies the Error() method formatting.
func TestGateErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *GateError
		want string
	}{
		{
			name: "basic error",
			err: &GateError{
				Op:   "gateway.Mount",
				Kind: KindNotFound,
				Err:  errors.New("project not found"),
			},
			want: "graphgate: gateway.Mount (not_found): project not found",
		},
		{
			name: "error with context",
			err: &GateError{
				Op:   "gateway.Query",
				Kind: KindNotMounted,
				Err:  errors.New("no project mounted"),
				Context: map[string]any{
					"user_id": "u1",
				},
			},
			want: "graphgate: gateway.Query (not_mounted): no project mounted [context:",
		},
		{
			name: "error without underlying error",
			err: &GateError{
				Op:   "gateway.CreateProject",
				Kind: KindValidation,
			},
			want: "graphgate: gateway.CreateProject (validation)",
		},
		{
			name: "error with wrapped error",
			err: &GateError{
				Op:   "gateway.New",
				Kind: KindConfiguration,
				Err:  fmt.Errorf("failed to load config: %w", errors.New("no such file")),
			},
			want: "graphgate: gateway.New (configuration): failed to load config: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if !strings.Contains(got, tt.want) {
				t.Errorf("Error() = %q, want to contain %q", got, tt.want)
			}
		})
	}
}

// TestGateErrorUnwrap verifies that wrapped errors surface through errors.Is.
func TestGateErrorUnwrap(t *testing.T) {
	sentinel := errors.New("backend unavailable")
	err := NewStorageError("gateway.ListProjects", fmt.Errorf("scan failed: %w", sentinel))

	if !errors.Is(err, sentinel) {
		t.Errorf("errors.Is() = false, want true for wrapped sentinel")
	}
	if err.Unwrap() == nil {
		t.Error("Unwrap() = nil, want wrapped error")
	}
}

// TestGateErrorIs verifies kind and op matching between GateErrors.
func TestGateErrorIs(t *testing.T) {
	err := NewPermissionError("gateway.Mount", errors.New("denied"))

	tests := []struct {
		name   string
		target error
		want   bool
	}{
		{
			name:   "same kind matches",
			target: &GateError{Kind: KindPermission},
			want:   true,
		},
		{
			name:   "different kind does not match",
			target: &GateError{Kind: KindNotFound},
			want:   false,
		},
		{
			name:   "same kind and op matches",
			target: &GateError{Kind: KindPermission, Op: "gateway.Mount"},
			want:   true,
		},
		{
			name:   "same kind wrong op does not match",
			target: &GateError{Kind: KindPermission, Op: "gateway.Query"},
			want:   false,
		},
		{
			name:   "non GateError does not match",
			target: errors.New("denied"),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGateErrorWithContext verifies that WithContext copies instead of mutating.
func TestGateErrorWithContext(t *testing.T) {
	base := NewValidationError("gateway.CreateProject", errors.New("bad id"))
	enriched := base.WithContext("project_id", "bad id!")

	if base.Context != nil {
		t.Errorf("base error context mutated: %+v", base.Context)
	}
	if got := enriched.Context["project_id"]; got != "bad id!" {
		t.Errorf("enriched context[project_id] = %v, want %q", got, "bad id!")
	}

	second := enriched.WithContext("user_id", "u1")
	if _, ok := enriched.Context["user_id"]; ok {
		t.Error("first enriched error gained key added to second")
	}
	if len(second.Context) != 2 {
		t.Errorf("second context size = %d, want 2", len(second.Context))
	}
}

// errCloser always fails to close.
type errCloser struct{}

func (errCloser) Close() error { return errors.New("close failed") }

// TestCloseWithLog verifies close errors are logged, not returned.
func TestCloseWithLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	CloseWithLog(errCloser{}, logger, "test resource")
	if !strings.Contains(buf.String(), "test resource") {
		t.Errorf("log output = %q, want mention of resource name", buf.String())
	}

	// Nil closer and nil logger must not panic.
	CloseWithLog(nil, logger, "nothing")
	CloseWithLog(errCloser{}, nil, "silent")
}
