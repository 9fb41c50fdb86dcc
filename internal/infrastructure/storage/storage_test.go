package storage

import (
	"bytes"
	"civsim-server/internal/actionlog"
	"civsim-server/internal/domain"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"testing"
)

// Helper: лог двух цивилизаций с пустым ходом в середине
func createTestLog(t *testing.T) *actionlog.Log {
	t.Helper()
	l := actionlog.New([]byte(`{"seed":42}`))

	steps := []struct {
		civ  string
		turn int
		act  domain.Action
	}{
		{"Rome", 0, domain.NewMoveAction("Warrior", domain.Position{X: 1, Y: 1}, domain.Position{X: 2, Y: 1})},
		{"Rome", 0, domain.NewResearchAction("Pottery")},
		{"Greece", 0, domain.NewBuildAction("Monument", domain.Position{X: 5, Y: 5})},
		{"Rome", 2, domain.NewMoveUnitAction("u7", "Scout", domain.Position{X: 0, Y: 0}, domain.Position{X: 0, Y: 1})},
	}
	for _, s := range steps {
		if err := l.Record(s.civ, s.turn, s.act); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := l.CloseTurn("Greece", 3); err != nil {
		t.Fatal(err)
	}
	return l
}

func assertSameLog(t *testing.T, got, want *actionlog.Log) {
	t.Helper()

	if got.ID() != want.ID() {
		t.Errorf("ID = %s, want %s", got.ID(), want.ID())
	}
	if !got.CreatedAt().Equal(want.CreatedAt()) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt(), want.CreatedAt())
	}
	if !bytes.Equal(got.InitialState(), want.InitialState()) {
		t.Errorf("InitialState = %q, want %q", got.InitialState(), want.InitialState())
	}
	if !reflect.DeepEqual(got.Civilizations(), want.Civilizations()) {
		t.Fatalf("Civilizations = %v, want %v", got.Civilizations(), want.Civilizations())
	}

	for _, civ := range want.Civilizations() {
		if got.TurnCount(civ) != want.TurnCount(civ) {
			t.Fatalf("%s TurnCount = %d, want %d", civ, got.TurnCount(civ), want.TurnCount(civ))
		}
		for turn := 0; turn < want.TurnCount(civ); turn++ {
			g, _ := got.Actions(civ, turn)
			w, _ := want.Actions(civ, turn)
			if !reflect.DeepEqual(g, w) {
				t.Errorf("%s turn %d: got %v, want %v", civ, turn, g, w)
			}
		}
	}
}

func TestEncodeDecode_PreservesOrdering(t *testing.T) {
	original := createTestLog(t)

	var buf bytes.Buffer
	if err := Encode(&buf, original); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	assertSameLog(t, decoded, original)

	// Прочитанный лог закрыт целиком
	if got := decoded.LastClosedTurn("Rome"); got != 2 {
		t.Errorf("LastClosedTurn(Rome) = %d, want 2", got)
	}
	if err := decoded.Record("Rome", 2, domain.NewResearchAction("Writing")); !errors.Is(err, domain.ErrOrderingViolation) {
		t.Errorf("decoded turns must be closed, got %v", err)
	}
}

func TestDecode_Corrupted(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, createTestLog(t)); err != nil {
		t.Fatal(err)
	}
	valid := buf.Bytes()

	badMagic := append([]byte{}, valid...)
	copy(badMagic, "XXXX")

	badVersion := append([]byte{}, valid...)
	badVersion[4] = 9

	// Заголовок обещает снимок в 2 ГиБ, тела нет
	var huge bytes.Buffer
	hdr := ReplayFileHeader{Version: Version1, InitialStateLen: 1 << 31}
	copy(hdr.Magic[:], MagicHeader)
	if err := binary.Write(&huge, binary.LittleEndian, hdr); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", badMagic},
		{"bad version", badVersion},
		{"truncated", valid[:len(valid)-3]},
		{"oversized initial state", huge.Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(bytes.NewReader(tt.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	_, err := Decode(bytes.NewReader(huge.Bytes()))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("got %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReplayService_SaveLoad(t *testing.T) {
	svc, err := NewReplayService(filepath.Join(t.TempDir(), "replays"))
	if err != nil {
		t.Fatal(err)
	}
	original := createTestLog(t)

	path, err := svc.Save(original)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := svc.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSameLog(t, loaded, original)
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "civsim.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Logs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	original := createTestLog(t)

	if err := store.SaveLog(ctx, original); err != nil {
		t.Fatalf("SaveLog: %v", err)
	}

	loaded, err := store.LoadLog(ctx, original.ID().String())
	if err != nil {
		t.Fatalf("LoadLog: %v", err)
	}
	assertSameLog(t, loaded, original)

	info, err := store.LogInfo(ctx, original.ID().String())
	if err != nil {
		t.Fatalf("LogInfo: %v", err)
	}
	if info.CivCount != 2 || info.ActionCount != 4 {
		t.Errorf("LogInfo = %+v, want 2 civs and 4 actions", info)
	}

	if _, err := store.LoadLog(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_RelayFiles(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutFile(ctx, "game-1", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := store.PutFile(ctx, "game-1", []byte("v2")); err != nil {
		t.Fatal(err)
	}

	data, err := store.GetFile(ctx, "game-1")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v2" {
		t.Errorf("GetFile = %q, want v2", data)
	}

	if err := store.DeleteFile(ctx, "game-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetFile(ctx, "game-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteFile(ctx, "game-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("deleting twice: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_Reports(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SaveReport(ctx, "job-1", 6, []byte(`{"steps":6}`)); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadReport(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"steps":6}` {
		t.Errorf("LoadReport = %s", got)
	}
}
