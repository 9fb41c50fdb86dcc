package worldgen

// Константы генерации
const (
	DefaultMapWidth  = 24
	DefaultMapHeight = 16
	MinCapitalGap    = 5 // минимальное расстояние между столицами

	growthBase = 5 // еды на рост: growthBase * (pop + 1)
)

// Terrain - тип клетки.
type Terrain uint8

const (
	Grassland Terrain = iota
	Plains
	Hills
	Mountain
	Water
)

func (t Terrain) Passable() bool {
	return t != Mountain && t != Water
}

// terrainYields - бонус клетки города: еда, производство.
var terrainYields = map[Terrain][2]int{
	Grassland: {2, 0},
	Plains:    {1, 1},
	Hills:     {0, 2},
}

// UnitTemplate - описание типа юнита.
type UnitTemplate struct {
	Kind     string
	Cost     int
	Strength int
	Speed    int // максимальная дальность одного хода (Чебышев)
	Military bool
}

var Units = map[string]UnitTemplate{
	"Warrior": {Kind: "Warrior", Cost: 20, Strength: 8, Speed: 1, Military: true},
	"Archer":  {Kind: "Archer", Cost: 30, Strength: 10, Speed: 1, Military: true},
	"Scout":   {Kind: "Scout", Cost: 15, Strength: 3, Speed: 2},
}

// BuildingTemplate - постройка и ее постоянный эффект на город.
type BuildingTemplate struct {
	Name       string
	Cost       int
	Food       int
	Production int
	Science    int
	Defense    int
}

// Buildings в порядке, в котором их строит ИИ.
var Buildings = []BuildingTemplate{
	{Name: "Monument", Cost: 25, Science: 1},
	{Name: "Granary", Cost: 35, Food: 2},
	{Name: "Workshop", Cost: 40, Production: 2},
	{Name: "Library", Cost: 50, Science: 3},
	{Name: "Walls", Cost: 40, Defense: 6},
}

func building(name string) (BuildingTemplate, bool) {
	for _, b := range Buildings {
		if b.Name == name {
			return b, true
		}
	}
	return BuildingTemplate{}, false
}

// constructionCost - стоимость юнита или постройки; false, если такого нет.
func constructionCost(name string) (int, bool) {
	if u, ok := Units[name]; ok {
		return u.Cost, true
	}
	if b, ok := building(name); ok {
		return b.Cost, true
	}
	return 0, false
}

// Tech - технология дерева (линейного: ИИ учит по порядку).
type Tech struct {
	Name string
	Cost int
}

var Techs = []Tech{
	{"Pottery", 20},
	{"Mining", 25},
	{"Writing", 35},
	{"Bronze Working", 40},
	{"Mathematics", 55},
	{"Philosophy", 70},
	{"Astronomy", 90},
	{"Education", 110},
}

func techCost(name string) (int, bool) {
	for _, t := range Techs {
		if t.Name == name {
			return t.Cost, true
		}
	}
	return 0, false
}

// Имена правил шаблона
const (
	RuleScienceVictoryTechs = "scienceVictoryTechs" // сколько технологий нужно для научной победы
	RuleAttackArmy          = "aiAttackArmy"        // с какого числа воинов ИИ идет в атаку
)
