// Package telemetry — логирование и метрики сервисов cascade.
//
// Логи пишутся через log/slog: JSON в stdout для сервисов (LOG_LEVEL,
// LOG_FORMAT), текст в stderr для CLI. Логгер run'а несёт поля run_id
// и pipeline, логгер HTTP запроса кладётся в context (WithLogger).
//
// Метрики регистрируются в prometheus.DefaultRegisterer при импорте
// пакета и отдаются сервисами на /metrics через promhttp.
package telemetry
