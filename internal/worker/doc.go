// Package worker выполняет pipelines и ведёт историю runs.
//
// Worker принимает RunRequest тремя путями:
//
//   - Execute — синхронно, используется CLI и тестами
//   - Submit — в фоне, используется API (ответ 202 с run в PENDING)
//   - Start — из очереди runs.requested (cascade-worker)
//
// Каждый run: создание domain.Run → pipeline.Build → orchestrator.Execute →
// сохранение итогов узлов и статуса → публикация run.settled.
//
//	w := worker.New(worker.Config{
//	    Store:     repo.NewRunRepo(pool),
//	    Events:    mq.NewEventSink(publisher, logger),
//	    Publisher: publisher,
//	    Conn:      conn,
//	    Logger:    logger,
//	})
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Ошибки и очередь
//
// Сообщение из очереди подтверждается, если run создан, даже когда
// выполнение завершилось ошибкой: она уже записана в run. Невалидный
// pipeline и нечитаемый payload уходят в DLQ (mq.Permanent). Ошибки
// хранилища возвращают сообщение в очередь.
//
// Stop прекращает приём сообщений и ждёт все начатые runs.
package worker
