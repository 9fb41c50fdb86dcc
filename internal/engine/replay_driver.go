package engine

import (
	"civsim-server/internal/domain"
	"civsim-server/pkg/logger"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ReplayState - состояние реплея одной цивилизации.
type ReplayState int

const (
	StateIdle ReplayState = iota
	StateReplaying
	StateDone
	StateFailed
)

func (s ReplayState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateReplaying:
		return "REPLAYING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("ReplayState(%d)", int(s))
}

// ActionSource - то, что драйверу нужно от лога. *actionlog.Log его реализует.
type ActionSource interface {
	Civilizations() []string
	TurnCount(civ string) int
	Actions(civ string, turn int) ([]domain.Action, error)
}

// ReplayResult - итог полного прогона лога.
type ReplayResult struct {
	TurnsReplayed  int                `json:"turnsReplayed"`
	ActionsApplied int                `json:"actionsApplied"`
	FinalTurn      int                `json:"finalTurn"`
	Winner         string             `json:"winner,omitempty"`
	VictoryType    domain.VictoryType `json:"victoryType,omitempty"`
}

type civProgress struct {
	state ReplayState
	next  int   // следующий ожидаемый ход
	err   error // ошибка, на которой реплей остановился
}

// ReplayDriver проигрывает лог поверх мира в ногу со счетчиком ходов мира.
//
// Действия внутри хода применяются строго в порядке записи, ходы - строго по
// возрастанию. При ошибке драйвер останавливается на этом действии и не откатывает
// уже примененные: реплей диагностический, а не транзакционный.
// Не потокобезопасен, как и мир, которым он управляет.
type ReplayDriver struct {
	log      ActionSource
	world    domain.GameWorld
	applier  *Applier
	baseTurn int // ход мира, соответствующий ходу 0 лога
	progress map[string]*civProgress
	applied  int
}

func NewReplayDriver(log ActionSource, world domain.GameWorld, applier *Applier) *ReplayDriver {
	if applier == nil {
		applier = NewApplier()
	}
	return &ReplayDriver{
		log:      log,
		world:    world,
		applier:  applier,
		baseTurn: world.CurrentTurn(),
		progress: make(map[string]*civProgress),
	}
}

// State возвращает состояние реплея цивилизации.
func (d *ReplayDriver) State(civ string) ReplayState {
	if p, ok := d.progress[civ]; ok {
		return p.state
	}
	return StateIdle
}

func (d *ReplayDriver) civ(name string) *civProgress {
	p, ok := d.progress[name]
	if !ok {
		p = &civProgress{state: StateIdle}
		d.progress[name] = p
	}
	return p
}

// ReplayTurn применяет все действия хода turn цивилизации civ.
//
// Ходы должны идти подряд с нуля, иначе domain.ErrOrderingViolation.
// Ошибка применения возвращается как *domain.ReplayError с индексом действия.
func (d *ReplayDriver) ReplayTurn(civ string, turn int) error {
	p := d.civ(civ)

	switch {
	case p.state == StateFailed:
		return p.err
	case p.state == StateDone:
		return fmt.Errorf("%w: replay of %s is done, got turn %d", domain.ErrOrderingViolation, civ, turn)
	case turn != p.next:
		return fmt.Errorf("%w: %s expected turn %d, got %d", domain.ErrOrderingViolation, civ, p.next, turn)
	}

	actions, err := d.log.Actions(civ, turn)
	if err != nil {
		return d.fail(p, &domain.ReplayError{Civ: civ, Turn: turn, ActionIndex: -1, Err: err})
	}

	p.state = StateReplaying
	entry := logger.Log.WithFields(logrus.Fields{"component": "replay", "civ": civ, "turn": turn})

	for i, act := range actions {
		res, err := d.applier.Apply(d.world, civ, act)
		if err != nil {
			return d.fail(p, &domain.ReplayError{Civ: civ, Turn: turn, ActionIndex: i, Kind: act.Kind, Err: err})
		}
		d.applied++
		if res.Msg != "" {
			entry.WithField("action_index", i).Debug(res.Msg)
		}
	}

	p.next++
	if p.next >= d.log.TurnCount(civ) {
		p.state = StateDone
	}
	return nil
}

func (d *ReplayDriver) fail(p *civProgress, err *domain.ReplayError) error {
	p.state = StateFailed
	p.err = err
	logger.Log.WithFields(logrus.Fields{
		"component":    "replay",
		"civ":          err.Civ,
		"turn":         err.Turn,
		"action_index": err.ActionIndex,
	}).Warn(err.Err)
	return err
}

// ReplayAll проигрывает весь лог: ход за ходом, внутри хода - цивилизации в порядке
// мира (затем те, кого мир не знает), после каждого полностью проигранного хода
// мир продвигается на один ход. Останавливается на конце лога или победе.
//
// После ошибки мир не продвигается: счетчик ходов остается на сломанном ходе.
func (d *ReplayDriver) ReplayAll(ctx context.Context) (ReplayResult, error) {
	order := d.civOrder()

	lastTurn := 0
	for _, civ := range order {
		if n := d.log.TurnCount(civ); n > lastTurn {
			lastTurn = n
		}
	}

	var result ReplayResult
	for turn := 0; turn < lastTurn; turn++ {
		if err := ctx.Err(); err != nil {
			return d.finish(result), err
		}

		// 1. Мир и лог должны идти в ногу
		if got, want := d.world.CurrentTurn(), d.baseTurn+turn; got != want {
			return d.finish(result), &domain.ReplayError{
				Civ:         d.world.CurrentCivilization(),
				Turn:        turn,
				ActionIndex: -1,
				Err:         fmt.Errorf("%w: world at turn %d, log at %d", domain.ErrDesync, got, want),
			}
		}

		// 2. Действия всех цивилизаций этого хода
		for _, civ := range order {
			if turn >= d.log.TurnCount(civ) {
				continue // цивилизация выбыла раньше
			}
			if err := d.ReplayTurn(civ, turn); err != nil {
				return d.finish(result), err
			}
		}

		// 3. Следующий ход
		if err := d.world.AdvanceTurn(); err != nil {
			return d.finish(result), &domain.ReplayError{Civ: d.world.CurrentCivilization(), Turn: turn, ActionIndex: -1, Err: err}
		}
		result.TurnsReplayed++

		if winner, victory, ok := d.victory(); ok {
			result.Winner, result.VictoryType = winner, victory
			for _, civ := range order {
				if p := d.civ(civ); p.state != StateFailed {
					p.state = StateDone
				}
			}
			break
		}
	}

	return d.finish(result), nil
}

func (d *ReplayDriver) finish(r ReplayResult) ReplayResult {
	r.ActionsApplied = d.applied
	r.FinalTurn = d.world.CurrentTurn()
	return r
}

// civOrder - цивилизации лога в порядке мира, затем оставшиеся в порядке лога.
func (d *ReplayDriver) civOrder() []string {
	inLog := make(map[string]bool)
	for _, civ := range d.log.Civilizations() {
		inLog[civ] = true
	}

	order := make([]string, 0, len(inLog))
	for _, c := range d.world.Civilizations() {
		if inLog[c.Name] {
			order = append(order, c.Name)
			delete(inLog, c.Name)
		}
	}
	for _, civ := range d.log.Civilizations() {
		if inLog[civ] {
			order = append(order, civ)
		}
	}
	return order
}

func (d *ReplayDriver) victory() (string, domain.VictoryType, bool) {
	for _, c := range d.world.Civilizations() {
		if c.IsSpectator() {
			continue
		}
		if v, ok := d.world.VictoryTypeAchieved(c.Name); ok {
			return c.Name, v, true
		}
	}
	return "", "", false
}
