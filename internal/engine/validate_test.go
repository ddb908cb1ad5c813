package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Cascade/internal/domain"
)

func builtin(stepType string) bool {
	switch stepType {
	case "echo", "delay", "http", "transform":
		return true
	}
	return false
}

func TestValidate_Valid(t *testing.T) {
	spec := &domain.PipelineSpec{
		Name: "release",
		Actions: domain.ActionList{
			{Name: "build", Type: "echo"},
			{Name: "test", Type: "delay", Deps: []string{"build"}},
			{Name: "notify", Type: "http", NeedsAnyOf: []domain.Dependency{domain.NeedsWith("test", domain.ActionStatusAny)}},
		},
	}

	if err := ValidateWith(spec, builtin); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		spec    *domain.PipelineSpec
		wantErr error
	}{
		{
			name:    "nil spec",
			spec:    nil,
			wantErr: ErrEmptyActions,
		},
		{
			name:    "no actions",
			spec:    &domain.PipelineSpec{Name: "empty"},
			wantErr: ErrEmptyActions,
		},
		{
			name: "empty name",
			spec: &domain.PipelineSpec{Actions: domain.ActionList{
				{Type: "echo"},
			}},
			wantErr: ErrEmptyActionName,
		},
		{
			name: "duplicate name",
			spec: &domain.PipelineSpec{Actions: domain.ActionList{
				{Name: "a", Type: "echo"},
				{Name: "a", Type: "echo"},
			}},
			wantErr: ErrDuplicateAction,
		},
		{
			name: "empty type",
			spec: &domain.PipelineSpec{Actions: domain.ActionList{
				{Name: "a"},
			}},
			wantErr: ErrUnknownStepType,
		},
		{
			name: "unknown type",
			spec: &domain.PipelineSpec{Actions: domain.ActionList{
				{Name: "a", Type: "parallel"},
			}},
			wantErr: ErrUnknownStepType,
		},
		{
			name: "unclosed if",
			spec: &domain.PipelineSpec{Actions: domain.ActionList{
				{Name: "a", Type: "echo", If: `{{ eq .Params.env "prod"`},
			}},
			wantErr: ErrTemplateParse,
		},
		{
			name: "unknown function in if",
			spec: &domain.PipelineSpec{Actions: domain.ActionList{
				{Name: "a", Type: "echo", If: "nope .Params.env"},
			}},
			wantErr: ErrTemplateParse,
		},
		{
			name: "broken config template",
			spec: &domain.PipelineSpec{Actions: domain.ActionList{
				{Name: "a", Type: "http", Config: map[string]any{
					"headers": map[string]any{"X-Env": "{{ .Params.env "},
				}},
			}},
			wantErr: ErrTemplateParse,
		},
		{
			name: "self dependency",
			spec: &domain.PipelineSpec{Actions: domain.ActionList{
				{Name: "a", Type: "echo", Deps: []string{"a"}},
			}},
			wantErr: ErrCyclicDependency,
		},
		{
			name: "unknown needs",
			spec: &domain.PipelineSpec{Actions: domain.ActionList{
				{Name: "a", Type: "echo", Needs: []domain.Dependency{domain.Needs("ghost")}},
			}},
			wantErr: ErrUnknownDependency,
		},
		{
			name: "cycle",
			spec: &domain.PipelineSpec{Actions: domain.ActionList{
				{Name: "a", Type: "echo", Deps: []string{"b"}},
				{Name: "b", Type: "echo", Deps: []string{"a"}},
			}},
			wantErr: ErrCyclicDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWith(tt.spec, builtin)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateWith_CustomTypes(t *testing.T) {
	spec := &domain.PipelineSpec{Actions: domain.ActionList{
		{Name: "a", Type: "shell"},
	}}

	if err := ValidateWith(spec, builtin); !errors.Is(err, ErrUnknownStepType) {
		t.Errorf("expected ErrUnknownStepType, got %v", err)
	}
	if err := ValidateWith(spec, nil); err != nil {
		t.Errorf("nil knownType should accept any type, got %v", err)
	}

	known := func(t string) bool { return t == "shell" }
	if err := ValidateWith(spec, known); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidationError_Format(t *testing.T) {
	err := NewValidationError("build", "type", "unknown step type: foo", ErrUnknownStepType)
	if err.Error() != "action build: unknown step type: foo" {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, ErrUnknownStepType) {
		t.Error("should unwrap to ErrUnknownStepType")
	}
}

func TestValidate_Templates(t *testing.T) {
	spec := &domain.PipelineSpec{Actions: domain.ActionList{
		{Name: "build", Type: "echo", If: `{{ eq .Params.env "prod" }}`},
		{Name: "deploy", Type: "http", Deps: []string{"build"}, If: `eq .Inputs.build.status "ok"`,
			Config: map[string]any{"url": "{{ .Params.host }}/deploy", "retries": 3}},
	}}
	if err := ValidateWith(spec, builtin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec.Actions[1].If = "{{ if }}"
	err := ValidateWith(spec, builtin)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Action != "deploy" || verr.Field != "if" {
		t.Errorf("unexpected location: %s/%s", verr.Action, verr.Field)
	}
}
