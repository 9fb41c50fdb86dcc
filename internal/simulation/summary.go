package simulation

import (
	"civsim-server/internal/domain"
	"fmt"
	"math"
	"strings"
	"time"
)

// Summary - неизменяемая сводка завершенного пакета.
// Хранит только счетчики, все проценты и средние вычисляются по запросу.
type Summary struct {
	Civilizations []string             `json:"civilizations"`
	Victories     []domain.VictoryType `json:"victories"`

	Steps      int           `json:"steps"`
	Failures   int           `json:"failures"`
	TotalTurns int           `json:"totalTurns"`
	WallClock  time.Duration `json:"wallClock"`

	Wins              map[string]int                        `json:"wins"`
	WinsByVictory     map[string]map[domain.VictoryType]int `json:"winsByVictory"`
	WinTurnsByVictory map[string]map[domain.VictoryType]int `json:"winTurnsByVictory"`
	Stats             map[string][]StatSummary              `json:"stats,omitempty"`
}

// WinRatePercent = 100 * победы / число партий; 0, если партий нет.
func (s Summary) WinRatePercent(civ string) float64 {
	if s.Steps == 0 {
		return 0
	}
	return 100 * float64(s.Wins[civ]) / float64(s.Steps)
}

// VictoryShare - доля побед civ типа v среди всех ее побед, в процентах.
func (s Summary) VictoryShare(civ string, v domain.VictoryType) float64 {
	wins := s.Wins[civ]
	if wins == 0 {
		return 0
	}
	return 100 * float64(s.WinsByVictory[civ][v]) / float64(wins)
}

// AverageVictoryTurn - средний ход победы civ типа v; 0, если таких побед нет.
func (s Summary) AverageVictoryTurn(civ string, v domain.VictoryType) float64 {
	return avg(s.WinTurnsByVictory[civ][v], s.WinsByVictory[civ][v])
}

// Draws - партии без победителя.
func (s Summary) Draws() int {
	won := 0
	for _, n := range s.Wins {
		won += n
	}
	return s.Steps - won
}

// AverageTurnsPerSecond = все сыгранные ходы / время пакета в секундах.
func (s Summary) AverageTurnsPerSecond() float64 {
	if s.WallClock <= 0 {
		return 0
	}
	return float64(s.TotalTurns) / s.WallClock.Seconds()
}

// AverageGameDuration = время пакета / число партий.
func (s Summary) AverageGameDuration() time.Duration {
	if s.Steps == 0 {
		return 0
	}
	return s.WallClock / time.Duration(s.Steps)
}

// PValue - односторонний биномиальный тест "civ побеждает чаще 1/N".
// ok = false, если выборка мала для нормального приближения.
func (s Summary) PValue(civ string) (pval float64, ok bool) {
	if len(s.Civilizations) == 0 {
		return 0, false
	}
	n := float64(max(s.Steps, 1))
	p := 1 / float64(len(s.Civilizations))
	if n*p < 10 || n*(1-p) < 10 {
		return 0, false
	}
	return binomialGreater(float64(s.Wins[civ]), n, p), true
}

// binomialGreater - P(X >= successes) через нормальное приближение.
func binomialGreater(successes, trials, p float64) float64 {
	mean := trials * p
	stdDev := math.Sqrt(trials * p * (1 - p))
	z := (successes - mean) / stdDev
	return 1 - 0.5*(1+math.Erf(z/math.Sqrt2))
}

// Text - текстовый отчет: по каждой основной цивилизации процент побед,
// разбивка по типам побед, средний ход победы и статистика по ходам.
func (s Summary) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Simulations: %d completed, %d failed, %d draws\n", s.Steps, s.Failures, s.Draws())

	for _, civ := range s.Civilizations {
		fmt.Fprintf(&b, "\n%s:\n", civ)
		fmt.Fprintf(&b, "%.1f%% total win rate \n", s.WinRatePercent(civ))
		if pval, ok := s.PValue(civ); ok {
			fmt.Fprintf(&b, "one-tail binomial pval = %.4g\n", pval)
		}

		for _, v := range s.Victories {
			fmt.Fprintf(&b, "%s: %.0f%%    ", v, s.VictoryShare(civ, v))
		}
		b.WriteString("\n")
		for _, v := range s.Victories {
			fmt.Fprintf(&b, "%s: %.0f    ", v, s.AverageVictoryTurn(civ, v))
		}
		b.WriteString("avg turns\n")

		for _, st := range s.Stats[civ] {
			turn := fmt.Sprint(st.Turn)
			if st.Turn == EndTurn {
				turn = "END"
			}
			fmt.Fprintf(&b, "@%s: popSum avg=%.1f cnt=%d\n", turn, st.AvgPopulation(), st.Count)
		}
	}

	fmt.Fprintf(&b, "\nAverage speed: %.1f turns/s \n", s.AverageTurnsPerSecond())
	fmt.Fprintf(&b, "Average game duration: %s\n", s.AverageGameDuration().Round(time.Millisecond))
	fmt.Fprintf(&b, "Total time: %s\n", s.WallClock.Round(time.Millisecond))

	return b.String()
}
