package simulation

import (
	"errors"
	"fmt"
)

// ErrAllSimulationsFailed - ни одна итерация пакета не дала результата.
var ErrAllSimulationsFailed = errors.New("all simulations failed")

// IterationError - падение одной игры пакета. Итерация ничего не добавляет в отчет.
type IterationError struct {
	Worker    int
	Iteration int
	Seed      int64
	Err       error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("simulation worker %d iteration %d (seed %d): %v", e.Worker, e.Iteration, e.Seed, e.Err)
}

func (e *IterationError) Unwrap() error {
	return e.Err
}
