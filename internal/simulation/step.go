package simulation

import (
	"civsim-server/internal/domain"
	"time"
)

// EndTurn - псевдо-ход статистики "конец партии".
const EndTurn = -1

// Step - итог одной сыгранной партии. После создания не меняется и
// передается агрегатору целиком.
type Step struct {
	Worker    int   `json:"worker"`
	Iteration int   `json:"iteration"`
	Seed      int64 `json:"seed"`

	Turns       int                `json:"turns"`
	Winner      string             `json:"winner,omitempty"`      // пусто при ничьей
	VictoryType domain.VictoryType `json:"victoryType,omitempty"` // пусто при ничьей
	Duration    time.Duration      `json:"duration"`

	// TurnStats: civ -> ход (или EndTurn) -> показатели
	TurnStats map[string]map[int]domain.CivStats `json:"turnStats,omitempty"`
}

func (s Step) HasWinner() bool {
	return s.Winner != ""
}

func (s *Step) saveTurnStats(world domain.GameWorld, civs []string, turn int) {
	if s.TurnStats == nil {
		s.TurnStats = make(map[string]map[int]domain.CivStats, len(civs))
	}
	for _, civ := range civs {
		stats, ok := world.CivStats(civ)
		if !ok {
			continue // цивилизация уничтожена
		}
		if s.TurnStats[civ] == nil {
			s.TurnStats[civ] = make(map[int]domain.CivStats)
		}
		s.TurnStats[civ][turn] = stats
	}
}
