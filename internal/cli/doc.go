// Package cli — команды cascade.
//
// run, validate и plan работают с pipeline локально, без сервера и
// базы. submit и runs ходят в cascade-api через Client; типы ответов
// описаны здесь заново, internal/api не импортируется.
//
// Данные печатаются в stdout таблицей или JSON (--json), сообщения
// идут в stderr, так что вывод можно передать в jq:
//
//	cascade plan release.yaml --json | jq '.order'
//
// Конструкторы команд получают clientFn и outputFn и вызывают их
// уже после разбора persistent-флагов.
package cli
