package worldgen

import (
	"civsim-server/internal/domain"
)

func (c *city) bonus(field func(BuildingTemplate) int) int {
	n := 0
	for _, b := range Buildings {
		if c.Built[b.Name] {
			n += field(b)
		}
	}
	return n
}

func (c *city) food(t Terrain) int {
	return 2 + c.Population + terrainYields[t][0] + c.bonus(func(b BuildingTemplate) int { return b.Food })
}

func (c *city) production(t Terrain) int {
	return 1 + c.Population + terrainYields[t][1] + c.bonus(func(b BuildingTemplate) int { return b.Production })
}

func (c *city) science() int {
	return 1 + c.Population + c.bonus(func(b BuildingTemplate) int { return b.Science })
}

// processCities: рост и производство городов цивилизации.
func (w *World) processCities(cv *civ) {
	for _, c := range w.cities {
		if c.Civ != cv.Info.Name {
			continue
		}
		terrain := w.tiles[c.Pos.Y][c.Pos.X]

		// 1. Рост
		c.Food += c.food(terrain) - c.Population
		if c.Food >= growthBase*(c.Population+1) {
			c.Population++
			c.Food = 0
		}

		// 2. Производство головы очереди
		c.Stored += c.production(terrain)
		if len(c.Queue) == 0 {
			continue
		}
		head := c.Queue[0]
		cost, _ := constructionCost(head)
		if c.Stored < cost {
			continue
		}
		c.Stored -= cost
		c.Queue = c.Queue[1:]

		if _, isUnit := Units[head]; isUnit {
			w.spawnUnit(head, c.Civ, c.Pos)
		} else {
			c.Built[head] = true
		}
	}
}

// processResearch: очки науки идут в голову очереди исследований.
func (w *World) processResearch(cv *civ) {
	for _, c := range w.cities {
		if c.Civ == cv.Info.Name {
			cv.Science += c.science()
		}
	}
	for len(cv.Research) > 0 {
		cost, _ := techCost(cv.Research[0])
		if cv.Science < cost {
			return
		}
		cv.Science -= cost
		cv.Known[cv.Research[0]] = true
		cv.Research = cv.Research[1:]
	}
}

// checkVictory проверяет условия, разрешенные шаблоном. Побеждают только основные цивилизации.
func (w *World) checkVictory(cv *civ) (domain.VictoryType, bool) {
	if !cv.Info.IsMajor() {
		return "", false
	}
	tmpl := w.setup.Template

	for _, v := range tmpl.Victories {
		switch v {
		case domain.VictoryScientific:
			need := tmpl.Rule(RuleScienceVictoryTechs, len(Techs))
			if len(cv.Known) >= need {
				return v, true
			}
		case domain.VictoryDomination:
			if w.holdsAllCapitals(cv.Info.Name) {
				return v, true
			}
		}
	}
	return "", false
}

// holdsAllCapitals: цивилизация владеет всеми столицами основных цивилизаций.
func (w *World) holdsAllCapitals(name string) bool {
	rivals := 0
	for _, c := range w.cities {
		if !c.Capital {
			continue
		}
		founder := w.founderOf(c)
		if founder == nil || !founder.Info.IsMajor() {
			continue
		}
		if c.Civ != name {
			return false
		}
		if founder.Info.Name != name {
			rivals++
		}
	}
	return rivals > 0
}

// founderOf - цивилизация, основавшая столицу (по имени города).
func (w *World) founderOf(c *city) *civ {
	for _, cv := range w.civs {
		if c.Name == cv.Info.Name+" Capital" {
			return cv
		}
	}
	return nil
}
