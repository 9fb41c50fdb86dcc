package engine

import (
	"civsim-server/internal/actionlog"
	"civsim-server/internal/domain"
	"context"
	"errors"
	"reflect"
	"testing"
)

func research(tech string) domain.Action { return domain.NewResearchAction(tech) }

func mustRecord(t *testing.T, l *actionlog.Log, civ string, turn int, acts ...domain.Action) {
	t.Helper()
	for _, a := range acts {
		if err := l.Record(civ, turn, a); err != nil {
			t.Fatalf("Record(%s, %d): %v", civ, turn, err)
		}
	}
}

func TestReplayAll_AppliesInOrder(t *testing.T) {
	l := actionlog.New(nil)
	mustRecord(t, l, "Rome", 0, research("Pottery"), research("Mining"))
	mustRecord(t, l, "Greece", 0, research("Writing"))
	mustRecord(t, l, "Rome", 1, research("Bronze"))
	_ = l.CloseTurn("Greece", 1)

	// Мир ходит Greece первой, хотя в логе первым записан Rome
	w := newFakeWorld("Greece", "Rome")
	d := NewReplayDriver(l, w, nil)

	res, err := d.ReplayAll(context.Background())
	if err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}

	want := []string{"Greece:Writing", "Rome:Pottery", "Rome:Mining", "Rome:Bronze"}
	if !reflect.DeepEqual(w.trace, want) {
		t.Errorf("trace = %v, want %v", w.trace, want)
	}
	if res.TurnsReplayed != 2 || res.FinalTurn != 2 || res.ActionsApplied != 4 {
		t.Errorf("result = %+v, want 2 turns, final turn 2, 4 actions", res)
	}
	for _, civ := range []string{"Rome", "Greece"} {
		if got := d.State(civ); got != StateDone {
			t.Errorf("State(%s) = %s, want DONE", civ, got)
		}
	}
}

func TestReplayAll_UnitNotFoundHaltsAtAction(t *testing.T) {
	l := actionlog.New(nil)
	mustRecord(t, l, "Rome", 0, research("Pottery"))
	mustRecord(t, l, "Rome", 1,
		research("Mining"),
		domain.NewMoveAction("Warrior", domain.Position{X: 3, Y: 3}, domain.Position{X: 3, Y: 4}),
		research("Writing"),
	)

	w := newFakeWorld("Rome")
	d := NewReplayDriver(l, w, nil)

	_, err := d.ReplayAll(context.Background())
	if !errors.Is(err, domain.ErrUnitNotFound) {
		t.Fatalf("got %v, want ErrUnitNotFound", err)
	}

	var re *domain.ReplayError
	if !errors.As(err, &re) {
		t.Fatalf("expected *ReplayError, got %T", err)
	}
	if re.Civ != "Rome" || re.Turn != 1 || re.ActionIndex != 1 || re.Kind != domain.ActionMove {
		t.Errorf("ReplayError = %+v, want Rome turn 1 action #1 MOVE", re)
	}

	// Ход 1 не завершен: мир не продвинут, частичные мутации остались
	if w.turn != 1 {
		t.Errorf("world turn = %d, want 1", w.turn)
	}
	if got := w.research["Rome"]; !reflect.DeepEqual(got, []string{"Pottery", "Mining"}) {
		t.Errorf("research = %v", got)
	}
	if got := d.State("Rome"); got != StateFailed {
		t.Errorf("State = %s, want FAILED", got)
	}
	if err2 := d.ReplayTurn("Rome", 1); err2 != err {
		t.Errorf("failed driver must keep returning the same error, got %v", err2)
	}
}

func TestReplayTurn_Ordering(t *testing.T) {
	l := actionlog.New(nil)
	mustRecord(t, l, "Rome", 0, research("Pottery"))
	mustRecord(t, l, "Rome", 1, research("Mining"))
	mustRecord(t, l, "Rome", 2, research("Writing"))

	d := NewReplayDriver(l, newFakeWorld("Rome"), nil)

	if got := d.State("Rome"); got != StateIdle {
		t.Fatalf("initial state = %s, want IDLE", got)
	}
	if err := d.ReplayTurn("Rome", 1); !errors.Is(err, domain.ErrOrderingViolation) {
		t.Errorf("skipping turn 0: got %v, want ErrOrderingViolation", err)
	}
	if err := d.ReplayTurn("Rome", 0); err != nil {
		t.Fatal(err)
	}
	if got := d.State("Rome"); got != StateReplaying {
		t.Errorf("state = %s, want REPLAYING", got)
	}
	if err := d.ReplayTurn("Rome", 0); !errors.Is(err, domain.ErrOrderingViolation) {
		t.Errorf("repeating turn 0: got %v, want ErrOrderingViolation", err)
	}
	_ = d.ReplayTurn("Rome", 1)
	_ = d.ReplayTurn("Rome", 2)
	if got := d.State("Rome"); got != StateDone {
		t.Errorf("state = %s, want DONE", got)
	}
	if err := d.ReplayTurn("Rome", 3); !errors.Is(err, domain.ErrOrderingViolation) {
		t.Errorf("turn after done: got %v, want ErrOrderingViolation", err)
	}
}

func TestReplayTurn_MissingCivIsNotFound(t *testing.T) {
	l := actionlog.New(nil)
	mustRecord(t, l, "Rome", 0, research("Pottery"))

	d := NewReplayDriver(l, newFakeWorld("Rome"), nil)

	err := d.ReplayTurn("Carthage", 0)
	var re *domain.ReplayError
	if !errors.As(err, &re) || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ReplayError wrapping ErrNotFound", err)
	}
	if re.ActionIndex != -1 {
		t.Errorf("ActionIndex = %d, want -1", re.ActionIndex)
	}
}

func TestReplayAll_StopsOnVictory(t *testing.T) {
	l := actionlog.New(nil)
	for turn := 0; turn < 5; turn++ {
		mustRecord(t, l, "Rome", turn, research("Tech"))
	}

	w := newFakeWorld("Rome", "Greece")
	w.winner, w.winAt = "Rome", 2
	d := NewReplayDriver(l, w, nil)

	res, err := d.ReplayAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.TurnsReplayed != 2 || res.Winner != "Rome" || res.VictoryType != domain.VictoryDomination {
		t.Errorf("result = %+v, want 2 turns won by Rome", res)
	}
	if got := d.State("Rome"); got != StateDone {
		t.Errorf("state = %s, want DONE", got)
	}
}

func TestReplayAll_Desync(t *testing.T) {
	l := actionlog.New(nil)
	mustRecord(t, l, "Rome", 0, research("Pottery"))
	mustRecord(t, l, "Rome", 1, research("Mining"))

	w := newFakeWorld("Rome")
	w.step = 2
	d := NewReplayDriver(l, w, nil)

	_, err := d.ReplayAll(context.Background())
	if !errors.Is(err, domain.ErrDesync) {
		t.Fatalf("got %v, want ErrDesync", err)
	}
}

func TestReplayAll_Cancelled(t *testing.T) {
	l := actionlog.New(nil)
	mustRecord(t, l, "Rome", 0, research("Pottery"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := newFakeWorld("Rome")
	if _, err := NewReplayDriver(l, w, nil).ReplayAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if len(w.trace) != 0 {
		t.Errorf("nothing must be applied, got %v", w.trace)
	}
}
