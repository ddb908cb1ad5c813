// Package mq — транспорт Cascade поверх RabbitMQ.
//
// Запросы на выполнение идут через cascade.runs в очередь
// runs.requested (отказы без повтора попадают в dlq.runs). События
// узлов и итоги runs публикуются в topic exchange cascade.events
// с routing key по виду события: node.started, node.finished,
// run.settled и т.д.
//
// Публикации persistent и ждут ack брокера (publisher confirms);
// nack возвращается как ErrNotConfirmed. Connection сам
// переподключается, Consumer после этого переподписывается.
//
// Сообщения — JSON-конверт {id, type, payload, timestamp}. Брокер
// только перевозит запросы и события: pipeline выполняется целиком
// внутри одного worker'а.
package mq
