// Package scheduler запускает pipelines по расписаниям из YAML.
//
// Каждый тик (Config.Interval) Scheduler находит расписания с
// наступившим сроком и отдаёт запуск в Submitter: локальному
// worker'у (WorkerSubmitter) или в очередь runs.requested
// (QueueSubmitter). Ключ идемпотентности запуска —
// "{name}_{due_unix}", поэтому повтор одного срока не создаёт
// второй run.
//
// Пропущенные сроки не догоняются: после простоя расписание
// срабатывает один раз и считает следующий срок от текущего
// момента.
//
// С Config.Leader тики выполняет только владелец блокировки
// (repo.LeaderLock, pg_try_advisory_lock), остальные экземпляры
// ждут.
package scheduler
