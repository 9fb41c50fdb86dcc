package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderingViolation - запись в уже закрытый ход или проигрывание ходов не по порядку.
	// Это ошибка вызывающего кода, ее не нужно ловить.
	ErrOrderingViolation = errors.New("ordering violation")

	// ErrNotFound - цивилизация или ход отсутствуют в логе (лог поврежден или не от этой игры).
	ErrNotFound = errors.New("not found")

	// ErrUnitNotFound - на исходной клетке нет юнита нужного типа.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrCityNotFound - на клетке нет города.
	ErrCityNotFound = errors.New("city not found")

	// ErrInvalidAction - неизвестный тип действия или битый payload.
	ErrInvalidAction = errors.New("invalid action")

	// ErrDesync - счетчик ходов мира разошелся с логом.
	ErrDesync = errors.New("world desync")
)

// ReplayError описывает место, где реплей разошелся с миром.
// ActionIndex = -1, если ошибка случилась до применения действий хода.
type ReplayError struct {
	Civ         string
	Turn        int
	ActionIndex int
	Kind        ActionKind
	Err         error
}

func (e *ReplayError) Error() string {
	if e.ActionIndex < 0 {
		return fmt.Sprintf("replay %s turn %d: %v", e.Civ, e.Turn, e.Err)
	}
	return fmt.Sprintf("replay %s turn %d action #%d (%s): %v", e.Civ, e.Turn, e.ActionIndex, e.Kind, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}
