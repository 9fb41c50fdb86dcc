package engine

import (
	"civsim-server/internal/domain"
	"errors"
	"fmt"
)

// Helper: мир в памяти для тестов реплея.
// trace хранит порядок примененных мутаций в виде "civ:что".
type fakeWorld struct {
	turn  int
	step  int // на сколько AdvanceTurn двигает счетчик (1 по умолчанию)
	civs  []domain.CivInfo
	units []domain.UnitRef

	cities   []domain.CityRef
	builds   map[string][]string
	research map[string][]string
	trace    []string

	winner string
	winAt  int // ход, с которого winner побеждает (0 - никогда)
}

func newFakeWorld(civs ...string) *fakeWorld {
	w := &fakeWorld{
		step:     1,
		builds:   map[string][]string{},
		research: map[string][]string{},
	}
	for _, c := range civs {
		w.civs = append(w.civs, domain.CivInfo{Name: c, Role: domain.RoleMajor})
	}
	w.civs = append(w.civs, domain.CivInfo{Name: "Observer", Role: domain.RoleSpectator})
	return w
}

func (w *fakeWorld) FindUnit(kind string, at domain.Position) (domain.UnitRef, bool) {
	for _, u := range w.units {
		if u.Kind == kind && u.Pos == at {
			return u, true
		}
	}
	return domain.UnitRef{}, false
}

func (w *fakeWorld) FindUnitByID(id string) (domain.UnitRef, bool) {
	for _, u := range w.units {
		if u.ID == id {
			return u, true
		}
	}
	return domain.UnitRef{}, false
}

func (w *fakeWorld) FindCity(at domain.Position) (domain.CityRef, bool) {
	for _, c := range w.cities {
		if c.Pos == at {
			return c, true
		}
	}
	return domain.CityRef{}, false
}

func (w *fakeWorld) MoveUnit(unit domain.UnitRef, dest domain.Position) error {
	for i := range w.units {
		if w.units[i].ID == unit.ID {
			w.units[i].Pos = dest
			w.trace = append(w.trace, fmt.Sprintf("%s:move %s %s", unit.Civ, unit.ID, dest))
			return nil
		}
	}
	return errors.New("no such unit")
}

func (w *fakeWorld) EnqueueConstruction(city domain.CityRef, name string) error {
	w.builds[city.Name] = append(w.builds[city.Name], name)
	w.trace = append(w.trace, city.Civ+":build "+name)
	return nil
}

func (w *fakeWorld) EnqueueResearch(civ, tech string) error {
	w.research[civ] = append(w.research[civ], tech)
	w.trace = append(w.trace, civ+":"+tech)
	return nil
}

func (w *fakeWorld) AdvanceTurn() error {
	w.turn += w.step
	return nil
}

func (w *fakeWorld) CurrentTurn() int { return w.turn }

func (w *fakeWorld) CurrentCivilization() string {
	if len(w.civs) == 0 {
		return ""
	}
	return w.civs[0].Name
}

func (w *fakeWorld) Civilizations() []domain.CivInfo {
	out := make([]domain.CivInfo, len(w.civs))
	copy(out, w.civs)
	return out
}

func (w *fakeWorld) VictoryTypeAchieved(civ string) (domain.VictoryType, bool) {
	if w.winAt > 0 && civ == w.winner && w.turn >= w.winAt {
		return domain.VictoryDomination, true
	}
	return "", false
}

func (w *fakeWorld) CivStats(civ string) (domain.CivStats, bool) {
	for _, c := range w.civs {
		if c.Name == civ {
			return domain.CivStats{Population: len(w.research[civ])}, true
		}
	}
	return domain.CivStats{}, false
}

func (w *fakeWorld) SetSimulation(bool, int) {}
