package engine

import (
	"bytes"
	"civsim-server/internal/actionlog"
	"civsim-server/internal/domain"
	"civsim-server/internal/infrastructure/storage"
	"civsim-server/pkg/api"
	"civsim-server/pkg/logger"
	"civsim-server/pkg/worldgen"
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrNoStore - сервис запущен без хранилища.
var ErrNoStore = errors.New("storage is not configured")

// UploadReplay разбирает лог формата CRPL и сохраняет его.
func (s *GameService) UploadReplay(ctx context.Context, data []byte) (api.ReplaySummary, error) {
	if s.store == nil {
		return api.ReplaySummary{}, ErrNoStore
	}

	log, err := storage.Decode(bytes.NewReader(data))
	if err != nil {
		return api.ReplaySummary{}, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err)
	}
	if err := s.store.SaveLog(ctx, log); err != nil {
		return api.ReplaySummary{}, err
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "service",
		"log_id":    log.ID(),
	}).Infof("Action log stored: %d civilizations, %d actions", len(log.Civilizations()), log.ActionCount())

	return replaySummary(log), nil
}

// ReplayInfo - метаданные сохраненного лога.
func (s *GameService) ReplayInfo(ctx context.Context, id string) (api.ReplaySummary, error) {
	if s.store == nil {
		return api.ReplaySummary{}, ErrNoStore
	}
	info, err := s.store.LogInfo(ctx, id)
	if err != nil {
		return api.ReplaySummary{}, err
	}
	return api.ReplaySummary{
		ID:            info.ID,
		CreatedAt:     info.CreatedAt,
		Civilizations: info.CivCount,
		Actions:       info.ActionCount,
	}, nil
}

// RunStoredReplay проигрывает сохраненный лог на свежем мире.
func (s *GameService) RunStoredReplay(ctx context.Context, id string) (api.ReplayRunView, error) {
	if s.store == nil {
		return api.ReplayRunView{}, ErrNoStore
	}
	log, err := s.store.LoadLog(ctx, id)
	if err != nil {
		return api.ReplayRunView{}, err
	}
	return s.RunReplay(ctx, log)
}

// RunReplay строит мир по начальному снимку лога и проигрывает лог целиком.
// Расхождение с миром - не ошибка вызова: оно возвращается в Divergence.
func (s *GameService) RunReplay(ctx context.Context, log *actionlog.Log) (api.ReplayRunView, error) {
	world, err := s.restoreWorld(log.InitialState())
	if err != nil {
		return api.ReplayRunView{}, err
	}

	driver := NewReplayDriver(log, world, s.applier)
	res, err := driver.ReplayAll(ctx)

	view := api.ReplayRunView{
		TurnsReplayed:  res.TurnsReplayed,
		ActionsApplied: res.ActionsApplied,
		FinalTurn:      res.FinalTurn,
		Winner:         res.Winner,
		VictoryType:    string(res.VictoryType),
	}

	var rerr *domain.ReplayError
	switch {
	case err == nil:
		return view, nil
	case errors.As(err, &rerr):
		view.Divergence = &api.ReplayErrorView{
			Civ:         rerr.Civ,
			Turn:        rerr.Turn,
			ActionIndex: rerr.ActionIndex,
			Message:     rerr.Err.Error(),
		}
		if rerr.ActionIndex >= 0 {
			view.Divergence.Kind = rerr.Kind.String()
		}
		return view, nil
	default:
		return view, err
	}
}

// restoreWorld создает мир, с которого начинался лог.
// Снимок - это Setup{Template, Seed}; мир строится через Factory.
func (s *GameService) restoreWorld(state []byte) (domain.GameWorld, error) {
	setup, err := worldgen.ParseSetup(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err)
	}
	return s.Factory(setup.Template, setup.Seed)
}

func replaySummary(log *actionlog.Log) api.ReplaySummary {
	return api.ReplaySummary{
		ID:            log.ID().String(),
		CreatedAt:     log.CreatedAt(),
		Civilizations: len(log.Civilizations()),
		Actions:       log.ActionCount(),
	}
}
