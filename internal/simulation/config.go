package simulation

import (
	"fmt"
	"sort"
)

// Config - параметры пакетного прогона.
type Config struct {
	Workers              int   `json:"workers" yaml:"workers"`
	SimulationsPerWorker int   `json:"simulationsPerWorker" yaml:"simulationsPerWorker"`
	MaxTurns             int   `json:"maxTurns" yaml:"maxTurns"`
	StatTurns            []int `json:"statTurns,omitempty" yaml:"statTurns,omitempty"`
	// Seed - базовое зерно. Итерация i воркера w играет с зерном Seed + w*SimulationsPerWorker + i.
	// В YAML не читается: зерно задается только верхнеуровневым seed конфига сервера.
	Seed int64 `json:"seed" yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Workers:              1,
		SimulationsPerWorker: 1,
		MaxTurns:             500,
	}
}

func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.SimulationsPerWorker < 1 {
		return fmt.Errorf("simulationsPerWorker must be positive, got %d", c.SimulationsPerWorker)
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("maxTurns must be positive, got %d", c.MaxTurns)
	}
	for _, t := range c.StatTurns {
		if t < 1 || t > c.MaxTurns {
			return fmt.Errorf("stat turn %d outside 1..%d", t, c.MaxTurns)
		}
	}
	return nil
}

// Total - сколько игр будет сыграно.
func (c Config) Total() int {
	return c.Workers * c.SimulationsPerWorker
}

// SeedFor возвращает зерно итерации, чтобы упавшую игру можно было повторить.
func (c Config) SeedFor(worker, iteration int) int64 {
	return c.Seed + int64(worker*c.SimulationsPerWorker+iteration)
}

// sortedStatTurns - ходы статистики по возрастанию, без повторов.
func (c Config) sortedStatTurns() []int {
	seen := make(map[int]bool, len(c.StatTurns))
	out := make([]int, 0, len(c.StatTurns))
	for _, t := range c.StatTurns {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out
}
