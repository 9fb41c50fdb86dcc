// Package reports выгружает готовые сводки пакетов симуляций во внешние хранилища.
package reports

import (
	"civsim-server/internal/infrastructure/storage"
	"civsim-server/internal/simulation"
	"context"
	"encoding/json"
	"fmt"
)

// Sink принимает финальную сводку пакета.
type Sink interface {
	Name() string
	Save(ctx context.Context, id string, summary simulation.Summary) error
}

// SQLiteSink кладет сводку JSON-ом в локальное хранилище.
type SQLiteSink struct {
	store *storage.SQLiteStore
}

func NewSQLiteSink(store *storage.SQLiteStore) *SQLiteSink {
	return &SQLiteSink{store: store}
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Save(ctx context.Context, id string, summary simulation.Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return s.store.SaveReport(ctx, id, summary.Steps, raw)
}

// Load читает сводку, сохраненную Save.
func (s *SQLiteSink) Load(ctx context.Context, id string) (simulation.Summary, error) {
	raw, err := s.store.LoadReport(ctx, id)
	if err != nil {
		return simulation.Summary{}, err
	}
	var summary simulation.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return simulation.Summary{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	return summary, nil
}
