package worldgen

import (
	"civsim-server/internal/domain"
)

// playAI - решения цивилизации в режиме симуляции.
// Все случайности берутся из rng мира, поэтому партия воспроизводима.
func (w *World) playAI(cv *civ) {
	name := cv.Info.Name

	// 1. Наука: следующая неизвестная технология
	if len(cv.Research) == 0 {
		for _, t := range Techs {
			if !cv.Known[t.Name] {
				cv.Research = append(cv.Research, t.Name)
				break
			}
		}
	}

	// 2. Города: армия, затем постройки
	army := w.countMilitary(name)
	for _, c := range w.cities {
		if c.Civ != name || len(c.Queue) > 0 {
			continue
		}
		c.Queue = append(c.Queue, w.pickConstruction(c, army))
	}

	// 3. Юниты. Копия списка: бой удаляет юнитов.
	units := make([]*unit, 0, len(w.units))
	for _, u := range w.units {
		if u.Civ == name {
			units = append(units, u)
		}
	}

	attack := cv.Info.IsMajor() && army >= w.setup.Template.Rule(RuleAttackArmy, 3)
	for _, u := range units {
		if w.unitByID(u.ID) == nil || w.winner != "" {
			continue // погиб раньше в этом ходу
		}
		switch {
		case Units[u.Kind].Military && attack:
			if target, ok := w.nearestEnemyCity(u); ok {
				w.stepToward(u, target)
			}
		case !Units[u.Kind].Military:
			w.wander(u)
		}
	}
}

func (w *World) countMilitary(name string) int {
	n := 0
	for _, u := range w.units {
		if u.Civ == name && Units[u.Kind].Military {
			n++
		}
	}
	return n
}

func (w *World) pickConstruction(c *city, army int) string {
	if army < 2*w.cityCount(c.Civ) {
		if c.Built["Workshop"] {
			return "Archer"
		}
		return "Warrior"
	}
	for _, b := range Buildings {
		if !c.Built[b.Name] {
			return b.Name
		}
	}
	return "Warrior"
}

func (w *World) cityCount(name string) int {
	n := 0
	for _, c := range w.cities {
		if c.Civ == name {
			n++
		}
	}
	return n
}

func (w *World) nearestEnemyCity(u *unit) (domain.Position, bool) {
	best, bestDist := domain.Position{}, -1
	for _, c := range w.cities {
		if c.Civ == u.Civ {
			continue
		}
		if d := distance(u.Pos, c.Pos); bestDist < 0 || d < bestDist {
			best, bestDist = c.Pos, d
		}
	}
	return best, bestDist >= 0
}

// stepToward делает один шаг к цели по соседней проходимой клетке.
func (w *World) stepToward(u *unit, target domain.Position) {
	best, bestDist := u.Pos, distance(u.Pos, target)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			p := domain.Position{X: u.Pos.X + dx, Y: u.Pos.Y + dy}
			if p == u.Pos || !w.inBounds(p) || !w.tiles[p.Y][p.X].Passable() {
				continue
			}
			if d := distance(p, target); d < bestDist {
				best, bestDist = p, d
			}
		}
	}
	if best != u.Pos {
		_ = w.MoveUnit(u.ref(), best)
	}
}

// wander - случайный ход разведчика на свободную клетку.
func (w *World) wander(u *unit) {
	speed := Units[u.Kind].Speed
	p := domain.Position{
		X: u.Pos.X + w.rng.Intn(2*speed+1) - speed,
		Y: u.Pos.Y + w.rng.Intn(2*speed+1) - speed,
	}
	if p == u.Pos || !w.inBounds(p) || !w.tiles[p.Y][p.X].Passable() || w.enemyAt(p, u.Civ) != nil {
		return
	}
	_ = w.MoveUnit(u.ref(), p)
}
