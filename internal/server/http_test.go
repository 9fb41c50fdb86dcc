package server

import (
	"bytes"
	"civsim-server/internal/actionlog"
	"civsim-server/internal/domain"
	"civsim-server/internal/engine"
	"civsim-server/internal/infrastructure/reports"
	"civsim-server/internal/infrastructure/storage"
	"civsim-server/pkg/api"
	"civsim-server/pkg/worldgen"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Helper: сервер на временной sqlite
func createTestServer(t *testing.T) (*Server, *engine.GameService) {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "civsim.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := engine.NewConfig()
	cfg.Seed = 3
	cfg.Batch.MaxTurns = 20

	svc := engine.NewService(cfg, worldgen.DefaultTemplate(), store, reports.NewSQLiteSink(store))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.Shutdown(ctx)
	})
	return New(svc, store, "0"), svc
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T from %q: %v", v, rec.Body.String(), err)
	}
	return v
}

func TestHealthAndVersion(t *testing.T) {
	srv, _ := createTestServer(t)
	h := srv.Router()

	if rec := do(t, h, http.MethodGet, "/health", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("/health = %d %q", rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("/version = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q, want *", got)
	}
}

func TestSimulationsAPI(t *testing.T) {
	srv, svc := createTestServer(t)
	h := srv.Router()

	rec := do(t, h, http.MethodPost, "/simulations", []byte(`{"workers":2,"simulationsPerWorker":2,"statTurns":[10]}`))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /simulations = %d: %s", rec.Code, rec.Body.String())
	}
	job := decode[api.JobView](t, rec)
	if job.ID == "" || job.Progress.Total != 4 {
		t.Fatalf("job = %+v", job)
	}

	svc.Wait()

	rec = do(t, h, http.MethodGet, "/simulations/"+job.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET job = %d", rec.Code)
	}
	job = decode[api.JobView](t, rec)
	if job.Status != api.JobDone || job.Report == nil || job.Report.Steps != 4 {
		t.Errorf("finished job = %+v", job)
	}

	rec = do(t, h, http.MethodGet, "/simulations/"+job.ID+"/text", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET text = %d", rec.Code)
	}
	for _, want := range []string{"Simulations: 4 completed", "Rome:", "@10: popSum avg=", "@END: popSum avg="} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("text report misses %q:\n%s", want, rec.Body.String())
		}
	}

	rec = do(t, h, http.MethodGet, "/debug/jobs", nil)
	if jobs := decode[[]api.JobView](t, rec); len(jobs) != 1 {
		t.Errorf("/debug/jobs returned %d jobs, want 1", len(jobs))
	}
}

func TestSimulationsAPI_Errors(t *testing.T) {
	srv, _ := createTestServer(t)
	h := srv.Router()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed json", http.MethodPost, "/simulations", `{"workers":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/simulations", `{"threads":2}`, http.StatusBadRequest},
		{"invalid limits", http.MethodPost, "/simulations", `{"workers":1000}`, http.StatusBadRequest},
		{"unknown job", http.MethodGet, "/simulations/nope", "", http.StatusNotFound},
		{"unknown job text", http.MethodGet, "/simulations/nope/text", "", http.StatusNotFound},
		{"cancel unknown job", http.MethodDelete, "/simulations/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, []byte(tt.body))
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

// Helper: лог в формате CRPL, записанный на мире worldgen
func encodedLog(t *testing.T) []byte {
	t.Helper()
	world, err := worldgen.New(worldgen.DefaultTemplate(), 11)
	if err != nil {
		t.Fatal(err)
	}
	snapshot, _ := world.Snapshot()

	rec := engine.NewRecorder(world, actionlog.New(snapshot), nil)
	if err := rec.Do("Greece", domain.NewResearchAction("Mining")); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := rec.EndTurn(); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := storage.Encode(&buf, rec.Log()); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReplaysAPI(t *testing.T) {
	srv, _ := createTestServer(t)
	h := srv.Router()

	rec := do(t, h, http.MethodPost, "/replays", encodedLog(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /replays = %d: %s", rec.Code, rec.Body.String())
	}
	summary := decode[api.ReplaySummary](t, rec)

	rec = do(t, h, http.MethodGet, "/replays/"+summary.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET replay = %d", rec.Code)
	}
	if got := decode[api.ReplaySummary](t, rec); got.Actions != 1 {
		t.Errorf("summary = %+v, want 1 action", got)
	}

	rec = do(t, h, http.MethodPost, "/replays/"+summary.ID+"/run", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("run replay = %d: %s", rec.Code, rec.Body.String())
	}
	run := decode[api.ReplayRunView](t, rec)
	if run.Divergence != nil || run.TurnsReplayed != 2 || run.ActionsApplied != 1 {
		t.Errorf("run = %+v", run)
	}

	if rec := do(t, h, http.MethodPost, "/replays", []byte("not a replay")); rec.Code != http.StatusBadRequest {
		t.Errorf("garbage upload = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/replays/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing replay = %d, want 404", rec.Code)
	}
}

func TestRelay(t *testing.T) {
	srv, _ := createTestServer(t)
	h := srv.Router()

	rec := do(t, h, http.MethodGet, "/isalive", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("/isalive = %d", rec.Code)
	}
	if got := decode[api.ServerFeatureSet](t, rec); got.AuthVersion != 0 {
		t.Errorf("feature set = %+v", got)
	}

	if rec := do(t, h, http.MethodPut, "/files/game-1_Preview", []byte("save data")); rec.Code != http.StatusOK {
		t.Fatalf("PUT = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/files/game-1_Preview", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "save data" {
		t.Errorf("GET = %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodDelete, "/files/game-1_Preview", nil); rec.Code != http.StatusOK {
		t.Errorf("DELETE = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/files/game-1_Preview", nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete = %d, want 404", rec.Code)
	}

	tests := []struct {
		name string
		path string
		body []byte
		want int
	}{
		{"bad name", "/files/a$b", []byte("x"), http.StatusBadRequest},
		{"name too long", "/files/" + strings.Repeat("a", 129), []byte("x"), http.StatusBadRequest},
		{"too large", "/files/big", bytes.Repeat([]byte("x"), MaxFileSize+1), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, h, http.MethodPut, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("PUT %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func dialProgress(t *testing.T, ts *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/simulations/" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntilDone(t *testing.T, conn *websocket.Conn) (steps int, done api.ProgressMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	for {
		var msg api.ProgressMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch msg.Type {
		case api.MsgStep:
			steps++
		case api.MsgDone:
			return steps, msg
		}
	}
}

func TestProgressWebSocket_Live(t *testing.T) {
	srv, svc := createTestServer(t)

	// Миры создаются только после подключения клиента
	release := make(chan struct{})
	inner := svc.Factory
	svc.Factory = func(tmpl domain.GameTemplate, seed int64) (domain.GameWorld, error) {
		<-release
		return inner(tmpl, seed)
	}

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	id, err := svc.StartBatch(api.BatchRequest{Workers: 1, SimulationsPerWorker: 3})
	if err != nil {
		t.Fatal(err)
	}
	conn := dialProgress(t, ts, id)

	// Подписка происходит в обработчике апгрейда; ждем ее
	deadline := time.Now().Add(5 * time.Second)
	for svc.Hub.SubscriberCount(id) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	close(release)

	steps, done := readUntilDone(t, conn)
	if steps != 3 {
		t.Errorf("got %d STEP messages, want 3", steps)
	}
	if done.Report == nil || done.Report.Steps != 3 {
		t.Errorf("DONE message = %+v", done)
	}
}

func TestProgressWebSocket_FinishedJob(t *testing.T) {
	srv, svc := createTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	id, err := svc.StartBatch(api.BatchRequest{Workers: 1, SimulationsPerWorker: 1})
	if err != nil {
		t.Fatal(err)
	}
	svc.Wait()

	conn := dialProgress(t, ts, id)
	_, done := readUntilDone(t, conn)
	if done.JobID != id || done.Report == nil {
		t.Errorf("DONE message = %+v", done)
	}
}

func TestProgressWebSocket_UnknownJob(t *testing.T) {
	srv, _ := createTestServer(t)
	rec := do(t, srv.Router(), http.MethodGet, "/ws/simulations/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown job = %d, want 404", rec.Code)
	}
}
