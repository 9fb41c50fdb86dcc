package handlers

import (
	"civsim-server/internal/domain"
	"encoding/json"
)

// Context передает хендлеру мир и цивилизацию, от имени которой применяется действие.
// Хендлер мутирует мир только через domain.Mutator.
type Context struct {
	World domain.Mutator
	Civ   string
}

// Result - возвращает результат применения действия.
// Хендлер НЕ пишет в логи сервиса напрямую, он возвращает данные.
type Result struct {
	Msg string // Текст для трассировки реплея
}

// HandlerFunc - это контракт для любого действия (MOVE, BUILD, RESEARCH).
type HandlerFunc func(ctx Context, payload json.RawMessage) (Result, error)

// EmptyResult - вспомогательная функция для пустого успешного ответа
func EmptyResult() Result {
	return Result{}
}
