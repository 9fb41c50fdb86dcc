package engine

import (
	"civsim-server/internal/actionlog"
	"civsim-server/internal/domain"
	"fmt"
)

// Recorder применяет действия к миру и записывает успешные в лог.
// Номер хода в логе отсчитывается от хода мира на момент создания.
type Recorder struct {
	world     domain.GameWorld
	log       *actionlog.Log
	applier   *Applier
	startTurn int
}

func NewRecorder(world domain.GameWorld, log *actionlog.Log, applier *Applier) *Recorder {
	if applier == nil {
		applier = NewApplier()
	}
	return &Recorder{world: world, log: log, applier: applier, startTurn: world.CurrentTurn()}
}

func (r *Recorder) Log() *actionlog.Log { return r.log }

// Turn - текущий ход в нумерации лога.
func (r *Recorder) Turn() int {
	return r.world.CurrentTurn() - r.startTurn
}

// Do применяет действие от имени civ. Неудачное действие в лог не попадает.
func (r *Recorder) Do(civ string, act domain.Action) error {
	if _, err := r.applier.Apply(r.world, civ, act); err != nil {
		return err
	}
	return r.log.Record(civ, r.Turn(), act)
}

// EndTurn закрывает текущий ход всех играющих цивилизаций и продвигает мир.
func (r *Recorder) EndTurn() error {
	turn := r.Turn()
	for _, c := range r.world.Civilizations() {
		if c.IsSpectator() {
			continue
		}
		if err := r.log.CloseTurn(c.Name, turn); err != nil {
			return err
		}
	}
	if err := r.world.AdvanceTurn(); err != nil {
		return fmt.Errorf("advance turn %d: %w", turn, err)
	}
	return nil
}
