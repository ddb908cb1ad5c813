// Package steps содержит реализации типов шагов, которыми
// pipeline.Compile наполняет runner'ы actions.
//
// Каждый шаг получает конфигурацию (уже отрендеренную через
// engine.RenderConfig), выполняет действие и возвращает Response:
// outputs становятся значением action, Status и WorkflowStatus
// передаются orchestrator'у через Reporter.
//
//	registry := steps.DefaultRegistry() // http, delay, transform, echo
//	step, err := registry.Get("http")
//
// # Типы шагов
//
//   - http      — HTTP запрос; ответ вне 2xx даёт итог failure
//   - delay     — пауза (duration, duration_sec или duration_ms)
//   - transform — сборка значения из .Inputs через Go templates
//   - echo      — возвращает value, может сообщить status и workflow_status
//
// # Ошибки
//
// Ошибка Execute прерывает весь run. Поэтому шаги возвращают ошибку
// только для неверной конфигурации (ErrInvalidConfig) и отмены
// (ErrStepCancelled). Ожидаемые неудачи передаются через Response.Status.
package steps
