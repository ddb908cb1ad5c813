package repo

import "errors"

// Ошибки RunStore, общие для Postgres и памяти. Сравнивать через errors.Is.
var (
	ErrNotFound      = errors.New("run not found")
	ErrAlreadyExists = errors.New("run already exists")
)
