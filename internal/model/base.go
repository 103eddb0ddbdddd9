package model

import "github.com/google/uuid"

// ensureID проставляет UUID до вставки: значения генерирует приложение,
// а не БД, чтобы схема одинаково работала на postgres и sqlite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
