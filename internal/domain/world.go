package domain

// VictoryType - условие победы из набора правил ("Domination", "Scientific", ...).
type VictoryType string

const (
	VictoryDomination VictoryType = "Domination"
	VictoryScientific VictoryType = "Scientific"
	VictoryCultural   VictoryType = "Cultural"
	VictoryDiplomatic VictoryType = "Diplomatic"
)

// UnitRef - непрозрачная ссылка на юнита, которую выдает мир.
type UnitRef struct {
	ID   string
	Kind string
	Civ  string
	Pos  Position
}

// CityRef - непрозрачная ссылка на город.
type CityRef struct {
	Name string
	Civ  string
	Pos  Position
}

// CivStats - срез показателей цивилизации для статистики симуляций.
type CivStats struct {
	Population int `json:"population"`
	Production int `json:"production"`
	Cities     int `json:"cities"`
}

// Mutator - узкий контракт мира, которого достаточно для применения действий.
type Mutator interface {
	FindUnit(kind string, at Position) (UnitRef, bool)
	FindUnitByID(id string) (UnitRef, bool)
	FindCity(at Position) (CityRef, bool)
	MoveUnit(unit UnitRef, destination Position) error
	EnqueueConstruction(city CityRef, name string) error
	EnqueueResearch(civ, tech string) error
}

// GameWorld - внешний мир игры. Реализация владеет всем изменяемым состоянием;
// ядро реплея и симуляций работает только через этот интерфейс.
//
// Экземпляр не потокобезопасен: один мир принадлежит одной горутине.
type GameWorld interface {
	Mutator

	// AdvanceTurn проигрывает один полный круг всех цивилизаций.
	AdvanceTurn() error
	CurrentTurn() int
	CurrentCivilization() string
	Civilizations() []CivInfo

	VictoryTypeAchieved(civ string) (VictoryType, bool)
	CivStats(civ string) (CivStats, bool)

	// SetSimulation переводит мир в режим симуляции: все цивилизации ходят сами,
	// maxTurns - ход, до которого планируется игра. Счетчик ходов двигает
	// только AdvanceTurn, по одному ходу за вызов.
	SetSimulation(untilWin bool, maxTurns int)
}

// WorldFactory создает новый мир из шаблона. Одинаковые (шаблон, seed) дают одинаковый мир.
type WorldFactory func(tmpl GameTemplate, seed int64) (GameWorld, error)
