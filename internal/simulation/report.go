package simulation

import (
	"civsim-server/internal/domain"
	"sort"
	"sync"
	"time"
)

// StatSummary - сумма показателей цивилизации на ходу Turn по всем партиям,
// где этот ход был записан.
type StatSummary struct {
	Turn          int `json:"turn"` // EndTurn для конца партии
	Count         int `json:"count"`
	PopulationSum int `json:"populationSum"`
	ProductionSum int `json:"productionSum"`
	CitiesSum     int `json:"citiesSum"`
}

func (s StatSummary) AvgPopulation() float64 { return avg(s.PopulationSum, s.Count) }
func (s StatSummary) AvgProduction() float64 { return avg(s.ProductionSum, s.Count) }
func (s StatSummary) AvgCities() float64     { return avg(s.CitiesSum, s.Count) }

func avg(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// Report - накопитель результатов пакета. Add вызывается по одному разу на
// готовую партию, под одной блокировкой. Производные величины (проценты,
// скорость) здесь не хранятся: их считает Summary после завершения всех воркеров.
type Report struct {
	mu sync.Mutex

	civs      []string // основные цивилизации в порядке шаблона
	victories []domain.VictoryType
	total     int // ожидаемое число партий, только для прогресса

	steps      int
	failures   int
	totalTurns int

	wins              map[string]int
	winsByVictory     map[string]map[domain.VictoryType]int
	winTurnsByVictory map[string]map[domain.VictoryType]int
	stats             map[string]map[int]*StatSummary
}

func NewReport(majorCivs []string, victories []domain.VictoryType, total int) *Report {
	r := &Report{
		civs:              append([]string(nil), majorCivs...),
		victories:         append([]domain.VictoryType(nil), victories...),
		total:             total,
		wins:              make(map[string]int),
		winsByVictory:     make(map[string]map[domain.VictoryType]int),
		winTurnsByVictory: make(map[string]map[domain.VictoryType]int),
		stats:             make(map[string]map[int]*StatSummary),
	}
	for _, civ := range r.civs {
		r.wins[civ] = 0
		r.winsByVictory[civ] = make(map[domain.VictoryType]int)
		r.winTurnsByVictory[civ] = make(map[domain.VictoryType]int)
	}
	return r
}

// Add учитывает готовую партию и возвращает число учтенных партий.
func (r *Report) Add(step Step) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps++
	r.totalTurns += step.Turns

	if step.HasWinner() {
		r.wins[step.Winner]++
		if step.VictoryType != "" {
			if r.winsByVictory[step.Winner] == nil {
				r.winsByVictory[step.Winner] = make(map[domain.VictoryType]int)
				r.winTurnsByVictory[step.Winner] = make(map[domain.VictoryType]int)
			}
			r.winsByVictory[step.Winner][step.VictoryType]++
			r.winTurnsByVictory[step.Winner][step.VictoryType] += step.Turns
		}
	}

	for civ, turns := range step.TurnStats {
		for turn, st := range turns {
			acc := r.stat(civ, turn)
			acc.Count++
			acc.PopulationSum += st.Population
			acc.ProductionSum += st.Production
			acc.CitiesSum += st.Cities
		}
	}

	return r.steps
}

// AddFailure учитывает упавшую партию (в знаменатель она не входит).
func (r *Report) AddFailure() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
	return r.failures
}

// Progress - сколько партий готово и сколько упало. Только для индикации.
func (r *Report) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Progress{Completed: r.steps, Failed: r.failures, Total: r.total}
}

func (r *Report) stat(civ string, turn int) *StatSummary {
	byTurn, ok := r.stats[civ]
	if !ok {
		byTurn = make(map[int]*StatSummary)
		r.stats[civ] = byTurn
	}
	acc, ok := byTurn[turn]
	if !ok {
		acc = &StatSummary{Turn: turn}
		byTurn[turn] = acc
	}
	return acc
}

// Finalize снимает неизменяемую сводку. wall - полное время пакета.
func (r *Report) Finalize(wall time.Duration) Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		Civilizations:     append([]string(nil), r.civs...),
		Victories:         append([]domain.VictoryType(nil), r.victories...),
		Steps:             r.steps,
		Failures:          r.failures,
		TotalTurns:        r.totalTurns,
		WallClock:         wall,
		Wins:              make(map[string]int, len(r.wins)),
		WinsByVictory:     make(map[string]map[domain.VictoryType]int, len(r.winsByVictory)),
		WinTurnsByVictory: make(map[string]map[domain.VictoryType]int, len(r.winTurnsByVictory)),
		Stats:             make(map[string][]StatSummary, len(r.stats)),
	}

	for civ, n := range r.wins {
		s.Wins[civ] = n
	}
	for civ, byVictory := range r.winsByVictory {
		s.WinsByVictory[civ] = copyCounts(byVictory)
	}
	for civ, byVictory := range r.winTurnsByVictory {
		s.WinTurnsByVictory[civ] = copyCounts(byVictory)
	}

	for civ, byTurn := range r.stats {
		list := make([]StatSummary, 0, len(byTurn))
		for _, acc := range byTurn {
			list = append(list, *acc)
		}
		// По возрастанию хода, END в конце
		sort.Slice(list, func(i, j int) bool {
			a, b := list[i].Turn, list[j].Turn
			if a == EndTurn || b == EndTurn {
				return b == EndTurn && a != EndTurn
			}
			return a < b
		})
		s.Stats[civ] = list
	}

	return s
}

func copyCounts(in map[domain.VictoryType]int) map[domain.VictoryType]int {
	out := make(map[domain.VictoryType]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Progress - состояние пакета на текущий момент.
type Progress struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// Done сообщает, что все партии либо сыграны, либо упали.
func (p Progress) Done() bool {
	return p.Completed+p.Failed >= p.Total
}
