// Package orchestrator выполняет pipelines.
//
// Orchestrator отвечает за:
//   - Компиляцию actions в неизменяемый Pipeline (граф + workflow-scope)
//   - Цикл тиков: резолв узлов, запуск готовых, каскадные пропуски
//   - Финализацию workflow, когда все узлы вне scope терминальны
//   - Сбор Result с итогами узлов и workflow
//
// Состоянием run владеет одна горутина-координатор. Guard и runner
// каждого узла работают в своей горутине и сообщают итог через канал.
package orchestrator
