package handlers

import (
	"civsim-server/internal/domain"
	"encoding/json"
	"fmt"
)

// TypedHandlerFunc - это "чистый" хендлер, который работает с готовой структурой T
type TypedHandlerFunc[T any] func(ctx Context, payload T) (Result, error)

// WithPayload берет "чистый" хендлер и превращает его в стандартный HandlerFunc.
// Она берет на себя Unmarshal и Validate. Ошибки формата оборачивают domain.ErrInvalidAction.
func WithPayload[T any](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(ctx Context, raw json.RawMessage) (Result, error) {
		var payload T

		// 1. Распаковка JSON
		if err := json.Unmarshal(raw, &payload); err != nil {
			return Result{}, fmt.Errorf("%w: invalid payload format: %v", domain.ErrInvalidAction, err)
		}

		// 2. Автоматическая валидация
		if v, ok := any(payload).(domain.Validator); ok {
			if err := v.Validate(); err != nil {
				return Result{}, fmt.Errorf("%w: validation failed: %v", domain.ErrInvalidAction, err)
			}
		}

		// 3. Вызов чистой логики
		return handler(ctx, payload)
	}
}
