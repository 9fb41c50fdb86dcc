package api

import "time"

// --- КЛИЕНТ -> СЕРВЕР ---

// BatchRequest - тело POST /simulations.
// Нулевые поля берутся из конфигурации сервера.
type BatchRequest struct {
	// Workers число параллельных воркеров.
	Workers int `json:"workers,omitempty"`

	// SimulationsPerWorker сколько партий играет каждый воркер последовательно.
	SimulationsPerWorker int `json:"simulationsPerWorker,omitempty"`

	// MaxTurns предел ходов одной партии (ничья по достижении).
	MaxTurns int `json:"maxTurns,omitempty"`

	// StatTurns ходы, на которых снимается статистика цивилизаций.
	StatTurns []int `json:"statTurns,omitempty"`

	// Seed базовое зерно. Если не задано - зерно сервера.
	Seed *int64 `json:"seed,omitempty"`
}

// --- СЕРВЕР -> КЛИЕНТ ---

// Статусы задания
const (
	JobRunning   = "RUNNING"
	JobDone      = "DONE"
	JobFailed    = "FAILED"
	JobCancelled = "CANCELLED"
)

// JobView - состояние пакетного задания. Report появляется после завершения.
type JobView struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"`
	Progress   ProgressView `json:"progress"`
	CreatedAt  time.Time    `json:"createdAt"`
	FinishedAt *time.Time   `json:"finishedAt,omitempty"`
	Error      string       `json:"error,omitempty"`
	Report     *ReportView  `json:"report,omitempty"`
}

type ProgressView struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// ReportView - итоговая сводка пакета с уже вычисленными процентами.
type ReportView struct {
	Steps             int             `json:"steps"`
	Failures          int             `json:"failures"`
	Draws             int             `json:"draws"`
	TotalTurns        int             `json:"totalTurns"`
	WallClockMs       int64           `json:"wallClockMs"`
	AvgTurnsPerSecond float64         `json:"avgTurnsPerSecond"`
	AvgGameDuration   int64           `json:"avgGameDurationMs"`
	Civilizations     []CivResultView `json:"civilizations"`
}

// CivResultView - итог одной основной цивилизации.
type CivResultView struct {
	Name           string  `json:"name"`
	Wins           int     `json:"wins"`
	WinRatePercent float64 `json:"winRatePercent"`

	// PValue односторонний биномиальный тест; нет, если выборка мала.
	PValue *float64 `json:"pValue,omitempty"`

	Victories []VictoryResultView `json:"victories"`
}

type VictoryResultView struct {
	Type         string  `json:"type"`
	Wins         int     `json:"wins"`
	SharePercent float64 `json:"sharePercent"` // доля среди побед цивилизации
	AvgTurn      float64 `json:"avgTurn"`
}

// ProgressMessage - сообщение websocket-потока /ws/simulations/{id}.
type ProgressMessage struct {
	// Type: "STEP" - партия сыграна, "FAILED" - партия упала, "DONE" - пакет завершен.
	Type     string       `json:"type"`
	JobID    string       `json:"jobId"`
	Progress ProgressView `json:"progress"`

	Winner      string `json:"winner,omitempty"`
	VictoryType string `json:"victoryType,omitempty"`
	Turns       int    `json:"turns,omitempty"`

	// Report только в сообщении DONE.
	Report *ReportView `json:"report,omitempty"`
}

// Типы ProgressMessage
const (
	MsgStep   = "STEP"
	MsgFailed = "FAILED"
	MsgDone   = "DONE"
)

// ReplaySummary - метаданные сохраненного лога действий.
type ReplaySummary struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Civilizations int       `json:"civilizations"`
	Actions       int       `json:"actions"`
}

// ReplayRunView - результат POST /replays/{id}/run.
type ReplayRunView struct {
	TurnsReplayed  int              `json:"turnsReplayed"`
	ActionsApplied int              `json:"actionsApplied"`
	FinalTurn      int              `json:"finalTurn"`
	Winner         string           `json:"winner,omitempty"`
	VictoryType    string           `json:"victoryType,omitempty"`
	Divergence     *ReplayErrorView `json:"divergence,omitempty"`
}

// ReplayErrorView - место, где реплей разошелся с миром.
type ReplayErrorView struct {
	Civ         string `json:"civ"`
	Turn        int    `json:"turn"`
	ActionIndex int    `json:"actionIndex"`
	Kind        string `json:"kind,omitempty"`
	Message     string `json:"message"`
}

// ErrorResponse - тело любого ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServerFeatureSet - ответ релея на GET /isalive.
type ServerFeatureSet struct {
	AuthVersion int `json:"authVersion"`
}
