package simulation

import (
	"civsim-server/internal/domain"
	"civsim-server/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Observer получает каждую учтенную партию (nil при падении) и прогресс пакета.
// Вызывается из горутины-агрегатора, по одному вызову за раз.
type Observer func(step *Step, progress Progress)

type Option func(*Simulator)

func WithObserver(fn Observer) Option {
	return func(s *Simulator) { s.observer = fn }
}

// Simulator играет пакеты независимых партий на пуле воркеров.
type Simulator struct {
	factory  domain.WorldFactory
	observer Observer
}

func NewSimulator(factory domain.WorldFactory, opts ...Option) *Simulator {
	s := &Simulator{factory: factory}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type outcome struct {
	step Step
	err  error
}

// Run играет cfg.Workers * cfg.SimulationsPerWorker партий и возвращает сводку.
//
// Каждый воркер играет свои партии последовательно, мир принадлежит одной
// итерации. Готовые партии уходят по каналу единственному агрегатору.
// Упавшая итерация логируется и пропускается; ErrAllSimulationsFailed - только
// если упали все. Отмена ctx останавливает воркеры между партиями, уже
// сыгранные партии остаются в сводке.
func (s *Simulator) Run(ctx context.Context, tmpl domain.GameTemplate, cfg Config) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	tmpl = tmpl.WithoutSpectators()
	if err := tmpl.Validate(); err != nil {
		return Summary{}, err
	}

	log := logger.Component("simulation")
	log.Infof("Starting new game with major civs: %s and minor civs: %s",
		strings.Join(tmpl.MajorCivs(), ", "), strings.Join(tmpl.MinorCivs(), ", "))

	start := time.Now()
	report := NewReport(tmpl.MajorCivs(), tmpl.Victories, cfg.Total())
	statTurns := cfg.sortedStatTurns()

	results := make(chan outcome, cfg.Workers)

	var g errgroup.Group
	for w := 0; w < cfg.Workers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < cfg.SimulationsPerWorker; i++ {
				if ctx.Err() != nil {
					return nil
				}
				step, err := s.play(tmpl, cfg, statTurns, w, i)
				results <- outcome{step: step, err: err}
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	// Агрегатор: единственный, кто пишет в отчет
	for o := range results {
		if o.err != nil {
			report.AddFailure()
			entry := log.WithError(o.err)
			var ie *IterationError
			if errors.As(o.err, &ie) {
				entry = entry.WithFields(logrus.Fields{"worker": ie.Worker, "iteration": ie.Iteration, "seed": ie.Seed})
			}
			entry.Warn("simulation iteration failed")
			s.notify(nil, report.Progress())
			continue
		}

		step := o.step
		n := report.Add(step)
		entry := log.WithFields(logrus.Fields{"worker": step.Worker, "iteration": step.Iteration})
		if step.HasWinner() {
			entry.Infof("%s won %s victory on turn %d", step.Winner, step.VictoryType, step.Turns)
		} else {
			entry.Infof("Max simulation %d turns reached: Draw", step.Turns)
		}
		log.Debugf("Simulation step (%d/%d)", n, cfg.Total())
		s.notify(&step, report.Progress())
	}

	summary := report.Finalize(time.Since(start))

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if summary.Steps == 0 && summary.Failures > 0 {
		return summary, fmt.Errorf("%w: %d of %d", ErrAllSimulationsFailed, summary.Failures, cfg.Total())
	}
	return summary, nil
}

func (s *Simulator) notify(step *Step, p Progress) {
	if s.observer != nil {
		s.observer(step, p)
	}
}

// play - одна итерация. Паника мира превращается в *IterationError.
func (s *Simulator) play(tmpl domain.GameTemplate, cfg Config, statTurns []int, worker, iteration int) (step Step, err error) {
	seed := cfg.SeedFor(worker, iteration)
	step = Step{Worker: worker, Iteration: iteration, Seed: seed}

	defer func() {
		if r := recover(); r != nil {
			err = &IterationError{Worker: worker, Iteration: iteration, Seed: seed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	wrap := func(err error) error {
		return &IterationError{Worker: worker, Iteration: iteration, Seed: seed, Err: err}
	}

	start := time.Now()
	world, err := s.factory(tmpl, seed)
	if err != nil {
		return step, wrap(err)
	}
	civs := tmpl.MajorCivs()

	// 1. Прогон до каждого хода статистики
	for _, turn := range statTurns {
		world.SetSimulation(true, turn)
		won, err := advanceUntil(world, turn, &step)
		if err != nil {
			return step, wrap(err)
		}
		if won {
			break
		}
		step.saveTurnStats(world, civs, turn)
	}

	// 2. Доигрываем до победы или лимита
	if !step.HasWinner() {
		world.SetSimulation(true, cfg.MaxTurns)
		if _, err := advanceUntil(world, cfg.MaxTurns, &step); err != nil {
			return step, wrap(err)
		}
	}

	step.Turns = world.CurrentTurn()
	step.saveTurnStats(world, civs, EndTurn)
	step.Duration = time.Since(start)
	return step, nil
}

// advanceUntil двигает мир по одному ходу, пока не будет победы или хода limit.
func advanceUntil(world domain.GameWorld, limit int, step *Step) (bool, error) {
	if winner, v, ok := checkVictory(world); ok {
		step.Winner, step.VictoryType = winner, v
		return true, nil
	}
	for world.CurrentTurn() < limit {
		before := world.CurrentTurn()
		if err := world.AdvanceTurn(); err != nil {
			return false, fmt.Errorf("turn %d: %w", before, err)
		}
		if world.CurrentTurn() <= before {
			return false, errors.New("world did not advance")
		}
		if winner, v, ok := checkVictory(world); ok {
			step.Winner, step.VictoryType = winner, v
			return true, nil
		}
	}
	return false, nil
}

// checkVictory: первой проверяется текущая цивилизация, затем остальные по порядку.
func checkVictory(world domain.GameWorld) (string, domain.VictoryType, bool) {
	current := world.CurrentCivilization()
	if current != "" {
		if v, ok := world.VictoryTypeAchieved(current); ok {
			return current, v, true
		}
	}
	for _, c := range world.Civilizations() {
		if c.Name == current || c.IsSpectator() {
			continue
		}
		if v, ok := world.VictoryTypeAchieved(c.Name); ok {
			return c.Name, v, true
		}
	}
	return "", "", false
}
