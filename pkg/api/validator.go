package api

import "errors"

// Пределы одного задания.
const (
	MaxWorkers              = 64
	MaxSimulationsPerWorker = 10000
	MaxTurnsLimit           = 5000
)

func (r BatchRequest) Validate() error {
	if r.Workers < 0 || r.Workers > MaxWorkers {
		return errors.New("workers must be within 0..64")
	}
	if r.SimulationsPerWorker < 0 || r.SimulationsPerWorker > MaxSimulationsPerWorker {
		return errors.New("simulationsPerWorker must be within 0..10000")
	}
	if r.MaxTurns < 0 || r.MaxTurns > MaxTurnsLimit {
		return errors.New("maxTurns must be within 0..5000")
	}
	for _, t := range r.StatTurns {
		if t < 1 {
			return errors.New("statTurns must be positive")
		}
	}
	return nil
}
