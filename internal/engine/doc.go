// Package engine содержит модель графа и правила готовности узлов.
//
// Включает:
//   - graph.go    — построение неизменяемого графа зависимостей (Build)
//   - dfs.go      — итеративный обход в глубину с хуками (Walk)
//   - scope.go    — классификация узлов, зависящих от финализации workflow
//   - resolve.go  — вычисление NodeStatus по текущему состоянию (Resolve)
//   - validate.go — валидация PipelineSpec
//   - template.go — рендеринг Go templates ({{ .Inputs.x }})
//
// Engine не запускает действия: он отвечает на вопрос "что можно
// запускать сейчас", а планировщик в orchestrator применяет ответы.
package engine
