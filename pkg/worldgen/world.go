// Package worldgen - небольшой детерминированный мир для симуляций и реплеев.
//
// Это не правила настоящей игры, а исполнимый партнер для ядра: клеточная
// карта, столицы, юниты, очереди построек и исследований, научная победа и
// победа захватом столиц. Одинаковые (шаблон, seed) дают одинаковую партию.
package worldgen

import (
	"civsim-server/internal/domain"
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrGameOver    = errors.New("game is over")
	ErrIllegalMove = errors.New("illegal move")
	ErrUnknownItem = errors.New("unknown construction or tech")
	ErrUnknownCiv  = errors.New("unknown civilization")
)

type unit struct {
	ID   string
	Kind string
	Civ  string
	Pos  domain.Position
}

type city struct {
	Name       string
	Civ        string
	Pos        domain.Position
	Capital    bool // основан как столица (нужен для победы захватом)
	Population int
	Food       int
	Stored     int // накопленное производство
	Queue      []string
	Built      map[string]bool
}

type civ struct {
	Info     domain.CivInfo
	Alive    bool
	Science  int
	Research []string
	Known    map[string]bool
}

// World реализует domain.GameWorld. Не потокобезопасен.
type World struct {
	setup Setup
	rng   *rand.Rand

	width, height int
	tiles         [][]Terrain

	civs   []*civ
	units  []*unit
	cities []*city

	turn     int
	current  int // индекс цивилизации, которая ходит (или победила)
	nextUnit int

	simulation bool
	maxTurns   int

	winner  string
	victory domain.VictoryType
}

// New генерирует мир по шаблону. Зрители в мир не попадают.
func New(tmpl domain.GameTemplate, seed int64) (*World, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	tmpl = withDefaults(tmpl)

	w := &World{
		setup:  Setup{Template: tmpl, Seed: seed},
		rng:    rand.New(rand.NewSource(seed)),
		width:  tmpl.MapWidth,
		height: tmpl.MapHeight,
	}

	// 1. Карта
	w.generateTerrain()

	// 2. Цивилизации и столицы
	for _, info := range tmpl.Playable() {
		c := &civ{Info: info, Alive: true, Known: make(map[string]bool)}
		w.civs = append(w.civs, c)

		pos, err := w.placeCapital()
		if err != nil {
			return nil, fmt.Errorf("place capital of %s: %w", info.Name, err)
		}
		w.cities = append(w.cities, &city{
			Name: info.Name + " Capital", Civ: info.Name, Pos: pos,
			Capital: true, Population: 1, Built: make(map[string]bool),
		})

		// 3. Стартовые юниты
		w.spawnUnit("Warrior", info.Name, pos)
		if info.IsMajor() {
			w.spawnUnit("Scout", info.Name, pos)
		}
	}

	return w, nil
}

// Factory - domain.WorldFactory для симулятора.
func Factory(tmpl domain.GameTemplate, seed int64) (domain.GameWorld, error) {
	return New(tmpl, seed)
}

func withDefaults(t domain.GameTemplate) domain.GameTemplate {
	if t.MapWidth <= 0 {
		t.MapWidth = DefaultMapWidth
	}
	if t.MapHeight <= 0 {
		t.MapHeight = DefaultMapHeight
	}
	if len(t.Victories) == 0 {
		t.Victories = []domain.VictoryType{domain.VictoryDomination, domain.VictoryScientific}
	}
	return t
}

func (w *World) generateTerrain() {
	w.tiles = make([][]Terrain, w.height)
	for y := 0; y < w.height; y++ {
		row := make([]Terrain, w.width)
		for x := 0; x < w.width; x++ {
			switch r := w.rng.Intn(100); {
			case r < 8:
				row[x] = Water
			case r < 14:
				row[x] = Mountain
			case r < 30:
				row[x] = Hills
			case r < 60:
				row[x] = Plains
			default:
				row[x] = Grassland
			}
		}
		w.tiles[y] = row
	}
}

// placeCapital выбирает проходимую клетку подальше от других городов.
// Если места нет, требование к расстоянию ослабляется.
func (w *World) placeCapital() (domain.Position, error) {
	for gap := MinCapitalGap; gap >= 0; gap-- {
		for attempt := 0; attempt < 200; attempt++ {
			p := domain.Position{X: w.rng.Intn(w.width), Y: w.rng.Intn(w.height)}
			if !w.tiles[p.Y][p.X].Passable() {
				continue
			}
			if w.cityNear(p, gap) {
				continue
			}
			return p, nil
		}
	}
	return domain.Position{}, errors.New("map is full")
}

func (w *World) cityNear(p domain.Position, gap int) bool {
	for _, c := range w.cities {
		if distance(c.Pos, p) < gap || c.Pos == p {
			return true
		}
	}
	return false
}

func (w *World) spawnUnit(kind, civName string, at domain.Position) *unit {
	w.nextUnit++
	u := &unit{ID: fmt.Sprintf("u%d", w.nextUnit), Kind: kind, Civ: civName, Pos: at}
	w.units = append(w.units, u)
	return u
}

func (w *World) inBounds(p domain.Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < w.width && p.Y < w.height
}

func distance(a, b domain.Position) int {
	return max(abs(a.X-b.X), abs(a.Y-b.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (w *World) civByName(name string) *civ {
	for _, c := range w.civs {
		if c.Info.Name == name {
			return c
		}
	}
	return nil
}

func (w *World) cityAt(p domain.Position) *city {
	for _, c := range w.cities {
		if c.Pos == p {
			return c
		}
	}
	return nil
}

func (w *World) unitByID(id string) *unit {
	for _, u := range w.units {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (w *World) removeUnit(id string) {
	for i, u := range w.units {
		if u.ID == id {
			w.units = append(w.units[:i], w.units[i+1:]...)
			return
		}
	}
}

// --- domain.Mutator ---

func (w *World) FindUnit(kind string, at domain.Position) (domain.UnitRef, bool) {
	for _, u := range w.units {
		if u.Kind == kind && u.Pos == at {
			return u.ref(), true
		}
	}
	return domain.UnitRef{}, false
}

func (w *World) FindUnitByID(id string) (domain.UnitRef, bool) {
	if u := w.unitByID(id); u != nil {
		return u.ref(), true
	}
	return domain.UnitRef{}, false
}

func (w *World) FindCity(at domain.Position) (domain.CityRef, bool) {
	if c := w.cityAt(at); c != nil {
		return domain.CityRef{Name: c.Name, Civ: c.Civ, Pos: c.Pos}, true
	}
	return domain.CityRef{}, false
}

func (u *unit) ref() domain.UnitRef {
	return domain.UnitRef{ID: u.ID, Kind: u.Kind, Civ: u.Civ, Pos: u.Pos}
}

// MoveUnit двигает юнита. Вражеский юнит на клетке назначения - бой,
// пустой вражеский город - захват.
func (w *World) MoveUnit(ref domain.UnitRef, dest domain.Position) error {
	if w.winner != "" {
		return ErrGameOver
	}
	u := w.unitByID(ref.ID)
	if u == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnitNotFound, ref.ID)
	}
	if !w.inBounds(dest) || !w.tiles[dest.Y][dest.X].Passable() {
		return fmt.Errorf("%w: %s is not passable", ErrIllegalMove, dest)
	}
	if d := distance(u.Pos, dest); d == 0 || d > Units[u.Kind].Speed {
		return fmt.Errorf("%w: %s cannot reach %s from %s", ErrIllegalMove, u.Kind, dest, u.Pos)
	}

	// 1. Бой с вражеским юнитом
	if enemy := w.enemyAt(dest, u.Civ); enemy != nil {
		if !Units[u.Kind].Military {
			return fmt.Errorf("%w: %s cannot attack", ErrIllegalMove, u.Kind)
		}
		if !w.resolveCombat(u, enemy) {
			return nil // атакующий погиб
		}
	}

	u.Pos = dest

	// 2. Захват города
	if c := w.cityAt(dest); c != nil && c.Civ != u.Civ && Units[u.Kind].Military {
		w.captureCity(c, u.Civ)
	}
	return nil
}

func (w *World) enemyAt(p domain.Position, civName string) *unit {
	for _, u := range w.units {
		if u.Pos == p && u.Civ != civName {
			return u
		}
	}
	return nil
}

// resolveCombat возвращает true, если атакующий победил.
func (w *World) resolveCombat(attacker, defender *unit) bool {
	att := Units[attacker.Kind].Strength
	def := Units[defender.Kind].Strength
	if c := w.cityAt(defender.Pos); c != nil && c.Civ == defender.Civ {
		def += c.Population
		if b, ok := building("Walls"); ok && c.Built["Walls"] {
			def += b.Defense
		}
	}

	if w.rng.Intn(att+def) < att {
		w.removeUnit(defender.ID)
		return true
	}
	w.removeUnit(attacker.ID)
	return false
}

func (w *World) captureCity(c *city, newOwner string) {
	old := c.Civ
	c.Civ = newOwner
	c.Queue = nil
	c.Stored = 0
	if c.Population > 1 {
		c.Population--
	}
	w.updateAlive(old)
}

// updateAlive: цивилизация без городов выбывает вместе с юнитами.
func (w *World) updateAlive(name string) {
	for _, c := range w.cities {
		if c.Civ == name {
			return
		}
	}
	if cv := w.civByName(name); cv != nil {
		cv.Alive = false
		cv.Research = nil
	}
	kept := w.units[:0]
	for _, u := range w.units {
		if u.Civ != name {
			kept = append(kept, u)
		}
	}
	w.units = kept
}

func (w *World) EnqueueConstruction(ref domain.CityRef, name string) error {
	c := w.cityAt(ref.Pos)
	if c == nil {
		return fmt.Errorf("%w: at %s", domain.ErrCityNotFound, ref.Pos)
	}
	if _, ok := constructionCost(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, name)
	}
	if _, isBuilding := building(name); isBuilding && (c.Built[name] || contains(c.Queue, name)) {
		return nil // уже построено или в очереди
	}
	c.Queue = append(c.Queue, name)
	return nil
}

func (w *World) EnqueueResearch(civName, tech string) error {
	cv := w.civByName(civName)
	if cv == nil {
		return fmt.Errorf("%w: %q", ErrUnknownCiv, civName)
	}
	if _, ok := techCost(tech); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, tech)
	}
	if cv.Known[tech] || contains(cv.Research, tech) {
		return nil
	}
	cv.Research = append(cv.Research, tech)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// --- domain.GameWorld ---

func (w *World) CurrentTurn() int { return w.turn }

func (w *World) CurrentCivilization() string {
	if w.current < len(w.civs) {
		return w.civs[w.current].Info.Name
	}
	return ""
}

func (w *World) Civilizations() []domain.CivInfo {
	out := make([]domain.CivInfo, len(w.civs))
	for i, c := range w.civs {
		out[i] = c.Info
	}
	return out
}

func (w *World) VictoryTypeAchieved(civName string) (domain.VictoryType, bool) {
	if w.winner != "" && w.winner == civName {
		return w.victory, true
	}
	return "", false
}

func (w *World) CivStats(civName string) (domain.CivStats, bool) {
	cv := w.civByName(civName)
	if cv == nil || !cv.Alive {
		return domain.CivStats{}, false
	}
	var s domain.CivStats
	for _, c := range w.cities {
		if c.Civ != civName {
			continue
		}
		s.Cities++
		s.Population += c.Population
		s.Production += c.production(w.tiles[c.Pos.Y][c.Pos.X])
	}
	return s, true
}

func (w *World) SetSimulation(untilWin bool, maxTurns int) {
	w.simulation = untilWin
	w.maxTurns = maxTurns
}

// AdvanceTurn проигрывает один круг: каждая живая цивилизация по очереди
// получает доходы (и в режиме симуляции ходит сама). Победа прерывает круг.
func (w *World) AdvanceTurn() error {
	if w.winner != "" {
		return ErrGameOver
	}

	for i, cv := range w.civs {
		if !cv.Alive {
			continue
		}
		w.current = i

		if w.simulation {
			w.playAI(cv)
		}
		w.processCities(cv)
		w.processResearch(cv)

		if v, ok := w.checkVictory(cv); ok {
			w.winner, w.victory = cv.Info.Name, v
			break
		}
	}

	w.turn++
	if w.winner == "" {
		w.current = w.firstAlive()
	}
	return nil
}

func (w *World) firstAlive() int {
	for i, cv := range w.civs {
		if cv.Alive {
			return i
		}
	}
	return 0
}
