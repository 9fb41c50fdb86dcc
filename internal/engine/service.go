package engine

import (
	"civsim-server/internal/domain"
	"civsim-server/internal/infrastructure/reports"
	"civsim-server/internal/infrastructure/storage"
	"civsim-server/internal/network"
	"civsim-server/internal/simulation"
	"civsim-server/pkg/api"
	"civsim-server/pkg/logger"
	"civsim-server/pkg/worldgen"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrJobNotFound - задания с таким ID нет.
var ErrJobNotFound = errors.New("job not found")

// sinkTimeout - сколько ждем выгрузки отчета после завершения пакета.
const sinkTimeout = 30 * time.Second

type job struct {
	mu         sync.RWMutex
	id         string
	status     string
	progress   simulation.Progress
	createdAt  time.Time
	finishedAt *time.Time
	err        error
	summary    *simulation.Summary
	cancel     context.CancelFunc
}

func (j *job) view() api.JobView {
	j.mu.RLock()
	defer j.mu.RUnlock()

	v := api.JobView{
		ID:         j.id,
		Status:     j.status,
		Progress:   progressView(j.progress),
		CreatedAt:  j.createdAt,
		FinishedAt: j.finishedAt,
	}
	if j.err != nil {
		v.Error = j.err.Error()
	}
	if j.summary != nil {
		r := ReportView(*j.summary)
		v.Report = &r
	}
	return v
}

// GameService - ядро сервера: пакеты симуляций, хранилище логов и реплеи.
type GameService struct {
	cfg      Config
	template domain.GameTemplate
	store    *storage.SQLiteStore
	sinks    []reports.Sink
	applier  *Applier

	// Factory создает мир для каждой итерации и реплея.
	Factory domain.WorldFactory

	Hub *network.Broadcaster

	mu   sync.RWMutex
	jobs map[string]*job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService собирает сервис. store может быть nil: тогда сохранение логов недоступно.
func NewService(cfg Config, tmpl domain.GameTemplate, store *storage.SQLiteStore, sinks ...reports.Sink) *GameService {
	ctx, cancel := context.WithCancel(context.Background())
	return &GameService{
		cfg:      cfg,
		template: tmpl,
		store:    store,
		sinks:    sinks,
		applier:  NewApplier(),
		Factory:  worldgen.Factory,
		Hub:      network.NewBroadcaster(),
		jobs:     make(map[string]*job),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *GameService) Config() Config                { return s.cfg }
func (s *GameService) Template() domain.GameTemplate { return s.template }

// batchConfig накладывает запрос на пакетные параметры сервера.
func (s *GameService) batchConfig(req api.BatchRequest) simulation.Config {
	cfg := s.cfg.Batch
	cfg.Seed = s.cfg.Seed
	if req.Workers > 0 {
		cfg.Workers = req.Workers
	}
	if req.SimulationsPerWorker > 0 {
		cfg.SimulationsPerWorker = req.SimulationsPerWorker
	}
	if req.MaxTurns > 0 {
		cfg.MaxTurns = req.MaxTurns
	}
	if len(req.StatTurns) > 0 {
		cfg.StatTurns = req.StatTurns
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	return cfg
}

// StartBatch запускает пакет в фоне и сразу возвращает ID задания.
// Прогресс публикуется в Hub под этим ID.
func (s *GameService) StartBatch(req api.BatchRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidAction, err)
	}
	cfg := s.batchConfig(req)
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidAction, err)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	j := &job{
		id:        uuid.NewString(),
		status:    api.JobRunning,
		progress:  simulation.Progress{Total: cfg.Total()},
		createdAt: time.Now().UTC(),
		cancel:    cancel,
	}

	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.runBatch(ctx, j, cfg)
	}()

	return j.id, nil
}

func (s *GameService) runBatch(ctx context.Context, j *job, cfg simulation.Config) {
	log := logger.Log.WithFields(logrus.Fields{"component": "service", "job_id": j.id})
	log.Infof("Batch started: %d workers x %d simulations, seed %d", cfg.Workers, cfg.SimulationsPerWorker, cfg.Seed)

	sim := simulation.NewSimulator(s.Factory, simulation.WithObserver(func(step *simulation.Step, p simulation.Progress) {
		j.mu.Lock()
		j.progress = p
		j.mu.Unlock()

		msg := api.ProgressMessage{Type: api.MsgFailed, JobID: j.id, Progress: progressView(p)}
		if step != nil {
			msg.Type = api.MsgStep
			msg.Winner = step.Winner
			msg.VictoryType = string(step.VictoryType)
			msg.Turns = step.Turns
		}
		s.Hub.Publish(j.id, msg)
	}))

	summary, err := sim.Run(ctx, s.template, cfg)

	// 1. Фиксируем итог задания
	now := time.Now().UTC()
	j.mu.Lock()
	j.finishedAt = &now
	j.err = err
	switch {
	case errors.Is(err, context.Canceled):
		j.status = api.JobCancelled
	case err != nil:
		j.status = api.JobFailed
	default:
		j.status = api.JobDone
	}
	if summary.Steps > 0 || summary.Failures > 0 {
		j.summary = &summary
	}
	progress := j.progress
	j.mu.Unlock()

	// 2. Выгружаем отчет
	if err == nil {
		s.saveReport(j.id, summary)
		log.Infof("Batch done: %d steps, %d failures in %s", summary.Steps, summary.Failures, summary.WallClock.Round(time.Millisecond))
	} else {
		log.WithError(err).Warn("Batch finished with error")
	}

	// 3. Финальное сообщение подписчикам
	done := api.ProgressMessage{Type: api.MsgDone, JobID: j.id, Progress: progressView(progress)}
	if j.summary != nil {
		r := ReportView(summary)
		done.Report = &r
	}
	s.Hub.Publish(j.id, done)
	s.Hub.CloseTopic(j.id)
}

func (s *GameService) saveReport(id string, summary simulation.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	for _, sink := range s.sinks {
		if err := sink.Save(ctx, id, summary); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"component": "service",
				"job_id":    id,
				"sink":      sink.Name(),
			}).WithError(err).Error("failed to save report")
		}
	}
}

// Job возвращает состояние задания.
func (s *GameService) Job(id string) (api.JobView, error) {
	j, err := s.job(id)
	if err != nil {
		return api.JobView{}, err
	}
	return j.view(), nil
}

// Jobs - все задания, от старых к новым.
func (s *GameService) Jobs() []api.JobView {
	s.mu.RLock()
	views := make([]api.JobView, 0, len(s.jobs))
	for _, j := range s.jobs {
		views = append(views, j.view())
	}
	s.mu.RUnlock()

	sort.Slice(views, func(a, b int) bool {
		return views[a].CreatedAt.Before(views[b].CreatedAt)
	})
	return views
}

// JobSummary - сводка завершенного задания (для текстового отчета).
func (s *GameService) JobSummary(id string) (simulation.Summary, bool, error) {
	j, err := s.job(id)
	if err != nil {
		return simulation.Summary{}, false, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.summary == nil {
		return simulation.Summary{}, false, nil
	}
	return *j.summary, true, nil
}

// JobFinished сообщает, завершено ли задание. Подписка на завершенное задание не получит сообщений.
func (s *GameService) JobFinished(id string) (bool, error) {
	j, err := s.job(id)
	if err != nil {
		return false, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.finishedAt != nil, nil
}

// CancelJob останавливает задание между итерациями.
func (s *GameService) CancelJob(id string) error {
	j, err := s.job(id)
	if err != nil {
		return err
	}
	j.cancel()
	return nil
}

func (s *GameService) job(id string) (*job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j, nil
}

// Wait ждет завершения всех запущенных заданий.
func (s *GameService) Wait() {
	s.wg.Wait()
}

// Shutdown отменяет все задания и ждет их остановки (или ctx).
func (s *GameService) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func progressView(p simulation.Progress) api.ProgressView {
	return api.ProgressView{Completed: p.Completed, Failed: p.Failed, Total: p.Total}
}

// ReportView переводит сводку в DTO с уже посчитанными процентами.
func ReportView(s simulation.Summary) api.ReportView {
	v := api.ReportView{
		Steps:             s.Steps,
		Failures:          s.Failures,
		Draws:             s.Draws(),
		TotalTurns:        s.TotalTurns,
		WallClockMs:       s.WallClock.Milliseconds(),
		AvgTurnsPerSecond: s.AverageTurnsPerSecond(),
		AvgGameDuration:   s.AverageGameDuration().Milliseconds(),
		Civilizations:     make([]api.CivResultView, 0, len(s.Civilizations)),
	}

	for _, civ := range s.Civilizations {
		cv := api.CivResultView{
			Name:           civ,
			Wins:           s.Wins[civ],
			WinRatePercent: s.WinRatePercent(civ),
			Victories:      make([]api.VictoryResultView, 0, len(s.Victories)),
		}
		if pval, ok := s.PValue(civ); ok {
			cv.PValue = &pval
		}
		for _, vt := range s.Victories {
			cv.Victories = append(cv.Victories, api.VictoryResultView{
				Type:         string(vt),
				Wins:         s.WinsByVictory[civ][vt],
				SharePercent: s.VictoryShare(civ, vt),
				AvgTurn:      s.AverageVictoryTurn(civ, vt),
			})
		}
		v.Civilizations = append(v.Civilizations, cv)
	}
	return v
}
