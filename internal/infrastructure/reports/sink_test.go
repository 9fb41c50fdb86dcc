package reports

import (
	"civsim-server/internal/domain"
	"civsim-server/internal/infrastructure/storage"
	"civsim-server/internal/simulation"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testSummary() simulation.Summary {
	r := simulation.NewReport([]string{"Rome", "Greece"}, []domain.VictoryType{domain.VictoryDomination}, 2)
	r.Add(simulation.Step{Turns: 40, Winner: "Rome", VictoryType: domain.VictoryDomination})
	r.Add(simulation.Step{Turns: 100})
	return r.Finalize(3 * time.Second)
}

func TestSQLiteSink_SaveLoad(t *testing.T) {
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	sink := NewSQLiteSink(store)
	ctx := context.Background()
	want := testSummary()

	if err := sink.Save(ctx, "job-1", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := sink.Load(ctx, "job-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.Steps != want.Steps || got.Wins["Rome"] != 1 || got.WallClock != want.WallClock {
		t.Errorf("loaded %+v, want %+v", got, want)
	}
	if got.Text() != want.Text() {
		t.Errorf("text differs after round trip:\n%s\nvs\n%s", got.Text(), want.Text())
	}

	if _, err := sink.Load(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

// Нужен живой Postgres: CIVSIM_TEST_DATABASE_URL=postgres://...
func TestPostgresSink_Save(t *testing.T) {
	url := os.Getenv("CIVSIM_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CIVSIM_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	sink, err := NewPostgresSink(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	id := "test-" + time.Now().Format("150405.000000")
	if err := sink.Save(ctx, id, testSummary()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Повторное сохранение перезаписывает
	if err := sink.Save(ctx, id, testSummary()); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	var wins int
	err = sink.Pool.QueryRow(ctx,
		`SELECT wins FROM simulation_civ_results WHERE report_id = $1 AND civ = 'Rome'`, id).Scan(&wins)
	if err != nil {
		t.Fatal(err)
	}
	if wins != 1 {
		t.Errorf("wins = %d, want 1", wins)
	}
	_, _ = sink.Pool.Exec(ctx, `DELETE FROM simulation_reports WHERE id = $1`, id)
}
