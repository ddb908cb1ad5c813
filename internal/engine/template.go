package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Context — данные, видимые шаблонам одного action:
//
//	{{ .Action }}                 имя action
//	{{ .Inputs.build.version }}   значение dep build
//	{{ .Params.env }}             параметры run
//	{{ .Env.REGION }}             окружение, заданное через SetEnv
type Context struct {
	Action string            `json:"action"`
	Inputs map[string]any    `json:"inputs"`
	Params map[string]any    `json:"params"`
	Env    map[string]string `json:"env"`
}

func NewContext(params map[string]any) *Context {
	if params == nil {
		params = map[string]any{}
	}
	return &Context{
		Inputs: map[string]any{},
		Params: params,
		Env:    map[string]string{},
	}
}

func (c *Context) AddInput(dep string, value any) { c.Inputs[dep] = value }

func (c *Context) SetEnv(key, value string) { c.Env[key] = value }

func empty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

var funcs = template.FuncMap{
	"json":   encodeJSON,
	"toJSON": encodeJSON,
	"fromJSON": func(s string) (any, error) {
		var v any
		err := json.Unmarshal([]byte(s), &v)
		return v, err
	},
	"toYAML": func(v any) (string, error) {
		b, err := yaml.Marshal(v)
		return strings.TrimSuffix(string(b), "\n"), err
	},
	"default": func(fallback, v any) any {
		if empty(v) {
			return fallback
		}
		return v
	},
	"coalesce": func(vs ...any) any {
		for _, v := range vs {
			if !empty(v) {
				return v
			}
		}
		return nil
	},
	"join":      func(sep string, items []string) string { return strings.Join(items, sep) },
	"split":     func(sep, s string) []string { return strings.Split(s, sep) },
	"contains":  strings.Contains,
	"hasPrefix": strings.HasPrefix,
	"hasSuffix": strings.HasSuffix,
	"lower":     strings.ToLower,
	"upper":     strings.ToUpper,
	"trim":      strings.TrimSpace,
	"replace":   strings.ReplaceAll,
}

// Render выполняет text/template над ctx. Строка без "{{" возвращается
// без разбора.
func Render(text string, ctx *Context) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	t, err := parse(text)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := t.Execute(&sb, ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return sb.String(), nil
}

// RenderValue рендерит каждую строку внутри map и slice, прочие значения
// копируются как есть.
func RenderValue(value any, ctx *Context) (any, error) {
	switch v := value.(type) {
	case string:
		return Render(v, ctx)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			r, err := RenderValue(item, ctx)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			r, err := RenderValue(item, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, item := range v {
			r, err := Render(item, ctx)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			r, err := Render(item, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return value, nil
}

// RenderConfig — RenderValue для config action. nil даёт пустую map.
func RenderConfig(config map[string]any, ctx *Context) (map[string]any, error) {
	if len(config) == 0 {
		return map[string]any{}, nil
	}
	out, err := RenderValue(config, ctx)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

// RenderCondition вычисляет выражение поля if как pipeline в {{ if }}.
// Выражение пишется голым (eq .Params.env "prod") или в {{ }},
// как шаблоны config. Пустое выражение истинно.
func RenderCondition(expr string, ctx *Context) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return true, nil
	}
	out, err := Render(conditionTemplate(expr), ctx)
	if err != nil {
		return false, err
	}
	return out == "1", nil
}

func conditionTemplate(expr string) string {
	e := strings.TrimSpace(expr)
	if strings.HasPrefix(e, "{{") && strings.HasSuffix(e, "}}") {
		e = strings.TrimSpace(e[2 : len(e)-2])
		e = strings.TrimPrefix(e, "- ")
		e = strings.TrimSuffix(e, " -")
	}
	return "{{ if " + e + " }}1{{ end }}"
}

func parse(text string) (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}
	return t, nil
}

// ParseCondition проверяет синтаксис выражения if без вычисления.
func ParseCondition(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := parse(conditionTemplate(expr))
	return err
}

// ParseValue проверяет синтаксис каждой строки внутри map и slice.
func ParseValue(value any) error {
	switch v := value.(type) {
	case string:
		if strings.Contains(v, "{{") {
			_, err := parse(v)
			return err
		}
	case map[string]any:
		for _, item := range v {
			if err := ParseValue(item); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range v {
			if err := ParseValue(item); err != nil {
				return err
			}
		}
	case map[string]string:
		for _, item := range v {
			if err := ParseValue(item); err != nil {
				return err
			}
		}
	case []string:
		for _, item := range v {
			if err := ParseValue(item); err != nil {
				return err
			}
		}
	}
	return nil
}
