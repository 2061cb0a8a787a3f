package target

import (
	"errors"
	"testing"

	"github.com/timvw/pigeon/internal/model"
)

func TestExplicitResolve(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		want    string
		wantErr error
	}{
		{name: "plain name", target: "proj", want: "proj"},
		{name: "verbatim with spaces", target: "my proj", want: "my proj"},
		{name: "looks like a pattern", target: "pro*", want: "pro*"},
		{name: "empty", target: "", wantErr: ErrEmptyTarget},
		{name: "whitespace only", target: "  \t", wantErr: ErrEmptyTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Explicit{}.Resolve(&model.SendRequest{TmuxTarget: tt.target, Code: "x"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExplicitResolveIsDeterministic(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	req := &model.SendRequest{File: "a.go", Code: "x", TmuxTarget: "proj"}

	first, err := Explicit{}.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	for i := 0; i < 5; i++ {
		got, err := Explicit{}.Resolve(req)
		if err != nil || got != first {
			t.Fatalf("Resolve() run %d = %q, %v; want %q", i, got, err, first)
		}
	}
}
