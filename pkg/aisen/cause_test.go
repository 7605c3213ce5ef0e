package aisen

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyCause(t *testing.T) {
	root := errors.New("root")
	wrapped := fmt.Errorf("ctx: %w", root)
	joined := errors.Join(root, wrapped)

	tests := []struct {
		name         string
		err          error
		wantKind     CauseKind
		wantParent   error
		wantChildren int
	}{
		{"leaf", root, CauseSimple, nil, 0},
		{"wrapped", wrapped, CauseSimple, root, 0},
		{"joined", joined, CauseAggregate, nil, 2},
		{"empty aggregate", &multiErr{}, CauseAggregate, nil, 0},
		{"typed nil pointer", (*nilableErr)(nil), CauseSimple, nil, 0},
		{"typed nil parent", &nilableErr{msg: "outer", parent: (*nilableErr)(nil)}, CauseSimple, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyCause(tt.err)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.Err != tt.err {
				t.Errorf("Err = %v, want %v", got.Err, tt.err)
			}
			if got.Parent != tt.wantParent {
				t.Errorf("Parent = %v, want %v", got.Parent, tt.wantParent)
			}
			if len(got.Children) != tt.wantChildren {
				t.Errorf("len(Children) = %d, want %d", len(got.Children), tt.wantChildren)
			}
		})
	}
}

func TestCauseKind_String(t *testing.T) {
	if CauseSimple.String() != "simple" {
		t.Errorf("CauseSimple = %q", CauseSimple.String())
	}
	if CauseAggregate.String() != "aggregate" {
		t.Errorf("CauseAggregate = %q", CauseAggregate.String())
	}
}
