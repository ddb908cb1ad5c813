package steps

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Cascade/internal/engine"
)

// StepTypeTransform — сборка значения action из значений его deps.
const StepTypeTransform = "transform"

const configMappings = "mappings"

// TransformStep рендерит каждую строку mappings через engine.Render
// и кладёт результат под тем же ключом.
//
//	deps: [fetch]
//	config:
//	  mappings:
//	    total: "{{ len .Inputs.fetch.items }}"
//	    ids: '[{{ range $i, $v := .Inputs.fetch.items }}{{ if $i }},{{ end }}{{ $v.id }}{{ end }}]'
//	    owner:
//	      name: "{{ .Inputs.fetch.owner }}"
//
// Отрендеренный скаляр получает тип YAML: "3" станет int, "true" — bool.
// Строка в flow-форме ({...} или [...]) декодируется в map или slice.
// Вложенные mapping'и обходятся рекурсивно.
type TransformStep struct{}

func NewTransformStep() *TransformStep { return &TransformStep{} }

func (*TransformStep) Type() string { return StepTypeTransform }

func (s *TransformStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStepCancelled, err)
	}

	mappings := GetConfigMap(req.Config, configMappings)
	if mappings == nil {
		if _, ok := req.Config[configMappings]; ok {
			return nil, fmt.Errorf("%w: transform: mappings must be a mapping", ErrInvalidConfig)
		}
		return NewResponse(nil), nil
	}

	tctx := req.TemplateContext
	if tctx == nil {
		tctx = engine.NewContext(nil)
	}

	out, err := transformMapping("", mappings, tctx)
	if err != nil {
		return nil, err
	}
	return NewResponse(out), nil
}

func transformMapping(prefix string, m map[string]any, tctx *engine.Context) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for key, raw := range m {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		switch v := raw.(type) {
		case string:
			rendered, err := engine.Render(v, tctx)
			if err != nil {
				return nil, fmt.Errorf("transform %s: %w", path, err)
			}
			out[key] = typedScalar(rendered)
		case map[string]any:
			nested, err := transformMapping(path, v, tctx)
			if err != nil {
				return nil, err
			}
			out[key] = nested
		default:
			out[key] = v
		}
	}
	return out, nil
}

// typedScalar возвращает строку как есть, если YAML видит в ней
// обычную строку или блочную структуру ("a: b" остаётся строкой).
func typedScalar(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(trimmed), &node); err != nil || len(node.Content) != 1 {
		return s
	}
	doc := node.Content[0]

	switch doc.Kind {
	case yaml.ScalarNode:
		if doc.Tag == "!!str" || doc.Tag == "!!null" {
			return s
		}
	case yaml.MappingNode, yaml.SequenceNode:
		if doc.Style&yaml.FlowStyle == 0 {
			return s
		}
	default:
		return s
	}

	var v any
	if err := doc.Decode(&v); err != nil {
		return s
	}
	return v
}
