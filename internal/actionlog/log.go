// Package actionlog хранит записанные действия цивилизаций по ходам.
//
// Лог только дописывается: действие попадает в текущий ход цивилизации,
// закрытый ход переписать нельзя. Номера ходов у каждой цивилизации идут
// подряд с нуля, пустые ходы хранятся как пустые списки.
package actionlog

import (
	"fmt"
	"sync"
	"time"

	"civsim-server/internal/domain"

	"github.com/google/uuid"
)

// Log - лента действий одной партии плюс снимок начального состояния мира.
type Log struct {
	mu sync.RWMutex

	id           uuid.UUID
	createdAt    time.Time
	initialState []byte

	civOrder []string                    // порядок первой записи
	turns    map[string][][]domain.Action // civ -> ход -> действия
	closed   map[string]int               // civ -> последний закрытый ход (-1 если нет)
}

// New создает пустой лог со снимком начального состояния (формат снимка знает только мир).
func New(initialState []byte) *Log {
	return Restore(uuid.New(), time.Now().UTC(), initialState)
}

// Restore создает пустой лог с известными ID и временем (для загрузки из хранилища).
func Restore(id uuid.UUID, createdAt time.Time, initialState []byte) *Log {
	state := make([]byte, len(initialState))
	copy(state, initialState)
	return &Log{
		id:           id,
		createdAt:    createdAt,
		initialState: state,
		turns:        make(map[string][][]domain.Action),
		closed:       make(map[string]int),
	}
}

func (l *Log) ID() uuid.UUID        { return l.id }
func (l *Log) CreatedAt() time.Time { return l.createdAt }

// InitialState возвращает копию снимка начального состояния.
func (l *Log) InitialState() []byte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]byte, len(l.initialState))
	copy(out, l.initialState)
	return out
}

// Record дописывает действие в ход turn цивилизации civ.
//
// Ход создается лениво. Если turn больше текущего, все промежуточные ходы
// создаются пустыми и вместе с текущим закрываются. Запись в закрытый ход
// возвращает domain.ErrOrderingViolation.
func (l *Log) Record(civ string, turn int, action domain.Action) error {
	if civ == "" {
		return fmt.Errorf("%w: empty civilization name", domain.ErrInvalidAction)
	}
	if !action.Kind.Valid() {
		return fmt.Errorf("%w: kind %d", domain.ErrInvalidAction, action.Kind)
	}
	if turn < 0 {
		return fmt.Errorf("%w: negative turn %d", domain.ErrOrderingViolation, turn)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkOpen(civ, turn); err != nil {
		return err
	}

	l.extend(civ, turn)
	if turn > 0 && l.closed[civ] < turn-1 {
		l.closed[civ] = turn - 1
	}

	l.turns[civ][turn] = append(l.turns[civ][turn], action.Clone())
	return nil
}

// CloseTurn закрывает ход turn (и все предыдущие) цивилизации civ.
// Ход без действий при этом появляется в логе пустым. Повторное закрытие - no-op.
func (l *Log) CloseTurn(civ string, turn int) error {
	if civ == "" {
		return fmt.Errorf("%w: empty civilization name", domain.ErrInvalidAction)
	}
	if turn < 0 {
		return fmt.Errorf("%w: negative turn %d", domain.ErrOrderingViolation, turn)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.extend(civ, turn)
	if l.closed[civ] < turn {
		l.closed[civ] = turn
	}
	return nil
}

// Actions возвращает действия хода в порядке записи.
// Отсутствующая цивилизация или ход - domain.ErrNotFound.
func (l *Log) Actions(civ string, turn int) ([]domain.Action, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	turns, ok := l.turns[civ]
	if !ok {
		return nil, fmt.Errorf("%w: civilization %q", domain.ErrNotFound, civ)
	}
	if turn < 0 || turn >= len(turns) {
		return nil, fmt.Errorf("%w: turn %d of %q (have %d)", domain.ErrNotFound, turn, civ, len(turns))
	}

	out := make([]domain.Action, len(turns[turn]))
	for i, a := range turns[turn] {
		out[i] = a.Clone()
	}
	return out, nil
}

// Civilizations возвращает цивилизации в порядке их первой записи.
func (l *Log) Civilizations() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.civOrder))
	copy(out, l.civOrder)
	return out
}

// TurnCount - сколько ходов записано для цивилизации (0, если ее нет).
func (l *Log) TurnCount(civ string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns[civ])
}

// LastClosedTurn - последний закрытый ход цивилизации или -1.
func (l *Log) LastClosedTurn(civ string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if c, ok := l.closed[civ]; ok {
		return c
	}
	return -1
}

// ActionCount - общее число действий во всем логе.
func (l *Log) ActionCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, turns := range l.turns {
		for _, actions := range turns {
			n += len(actions)
		}
	}
	return n
}

func (l *Log) checkOpen(civ string, turn int) error {
	closed, ok := l.closed[civ]
	if ok && turn <= closed {
		return fmt.Errorf("%w: %q turn %d is closed (last closed %d)", domain.ErrOrderingViolation, civ, turn, closed)
	}
	return nil
}

// extend гарантирует, что у цивилизации есть ходы 0..turn. Вызывается под mu.
func (l *Log) extend(civ string, turn int) {
	turns, ok := l.turns[civ]
	if !ok {
		l.civOrder = append(l.civOrder, civ)
		l.closed[civ] = -1
	}
	for len(turns) <= turn {
		turns = append(turns, []domain.Action{})
	}
	l.turns[civ] = turns
}
