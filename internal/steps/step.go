package steps

import (
	"context"
	"errors"
	"time"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/engine"
)

var (
	ErrStepNotFound  = errors.New("step type not found")
	ErrInvalidConfig = errors.New("invalid step config")
	ErrStepCancelled = errors.New("step execution cancelled")
)

// Step — реализация одного типа action.
//
// Возвращённая ошибка обрывает run целиком. Неудача, на которую
// потомки могут отреагировать (needs {with: failure}), сообщается
// через Response.Status.
type Step interface {
	Type() string
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Request — то, что runner action передаёт шагу.
type Request struct {
	Action string

	// Config после engine.RenderConfig.
	Config map[string]any

	// TemplateContext нужен шагам, которые рендерят сами (transform).
	TemplateContext *engine.Context

	// Timeout > 0 перекрывает таймаут из конфигурации шага.
	Timeout time.Duration
}

// NewRequest подставляет пустые Config и TemplateContext вместо nil.
func NewRequest(action string, config map[string]any, tmplCtx *engine.Context, timeout time.Duration) *Request {
	req := &Request{Action: action, Config: config, TemplateContext: tmplCtx, Timeout: timeout}
	if req.Config == nil {
		req.Config = map[string]any{}
	}
	if req.TemplateContext == nil {
		req.TemplateContext = engine.NewContext(nil)
	}
	return req
}

// Response — итог шага.
//
// Outputs становится значением action ({{ .Inputs.<action>.<key> }}).
// Пустой Status читается как success, пустой WorkflowStatus — как
// отсутствие отчёта о workflow.
type Response struct {
	Outputs        map[string]any
	Status         domain.ActionStatus
	WorkflowStatus domain.WorkflowStatus
}

func NewResponse(outputs map[string]any) *Response {
	if outputs == nil {
		outputs = map[string]any{}
	}
	return &Response{Outputs: outputs}
}

func (r *Response) WithStatus(status domain.ActionStatus) *Response {
	r.Status = status
	return r
}

// GetConfigString возвращает строку по ключу или "".
func GetConfigString(config map[string]any, key string) string {
	s, _ := config[key].(string)
	return s
}

// GetConfigInt понимает целые из YAML (int, uint64) и JSON (float64).
func GetConfigInt(config map[string]any, key string) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func GetConfigBool(config map[string]any, key string, fallback bool) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return fallback
}

func GetConfigMap(config map[string]any, key string) map[string]any {
	m, _ := config[key].(map[string]any)
	return m
}
