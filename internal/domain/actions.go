package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionKind - Внутренний числовой идентификатор записанного действия.
// Значения пишутся в файл реплея одним байтом, порядок менять нельзя.
type ActionKind uint8

const (
	ActionUnknown ActionKind = iota
	ActionMove
	ActionBuild
	ActionResearch
)

// Маппинг для конвертации JSON -> Domain
var actionStringToKind = map[string]ActionKind{
	"MOVE":     ActionMove,
	"BUILD":    ActionBuild,
	"RESEARCH": ActionResearch,
}

// Маппинг для логов Domain -> String
var actionKindToString = map[ActionKind]string{
	ActionMove:     "MOVE",
	ActionBuild:    "BUILD",
	ActionResearch: "RESEARCH",
}

// ParseActionKind конвертирует строку в ActionKind (без учета регистра).
func ParseActionKind(s string) ActionKind {
	if val, ok := actionStringToKind[strings.ToUpper(s)]; ok {
		return val
	}
	return ActionUnknown
}

// String реализует интерфейс Stringer (для fmt.Printf)
func (k ActionKind) String() string {
	if val, ok := actionKindToString[k]; ok {
		return val
	}
	return "UNKNOWN"
}

// Valid сообщает, знает ли движок такой вид действия.
func (k ActionKind) Valid() bool {
	_, ok := actionKindToString[k]
	return ok
}

// MarshalText позволяет писать ActionKind строкой в JSON/YAML.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ActionKind) UnmarshalText(text []byte) error {
	parsed := ParseActionKind(string(text))
	if parsed == ActionUnknown {
		return fmt.Errorf("%w: unknown action kind %q", ErrInvalidAction, string(text))
	}
	*k = parsed
	return nil
}

// Action - одно записанное изменение мира (tagged union Move/Build/Research).
//
// Kind - тег, Payload - JSON одной из структур MovePayload, BuildPayload,
// ResearchPayload. После создания не меняется: лог и реплей работают с копиями.
type Action struct {
	Kind    ActionKind      `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// NewMoveAction создает действие перемещения юнита.
func NewMoveAction(unitKind string, origin, destination Position) Action {
	return newAction(ActionMove, MovePayload{
		UnitKind:    unitKind,
		Origin:      origin,
		Destination: destination,
	})
}

// NewMoveUnitAction - то же, но с идентификатором юнита (формат ревизии 2).
// Старые логи без UnitID проигрываются по (тип, клетка), как раньше.
func NewMoveUnitAction(unitID, unitKind string, origin, destination Position) Action {
	return newAction(ActionMove, MovePayload{
		UnitID:      unitID,
		UnitKind:    unitKind,
		Origin:      origin,
		Destination: destination,
	})
}

// NewBuildAction ставит постройку в очередь города.
func NewBuildAction(construction string, city Position) Action {
	return newAction(ActionBuild, BuildPayload{Construction: construction, City: city})
}

// NewResearchAction добавляет технологию в очередь исследований цивилизации.
func NewResearchAction(tech string) Action {
	return newAction(ActionResearch, ResearchPayload{Tech: tech})
}

func newAction(kind ActionKind, payload any) Action {
	// Payload-структуры состоят из строк и чисел, Marshal для них не падает.
	raw, _ := json.Marshal(payload)
	return Action{Kind: kind, Payload: raw}
}

// Clone возвращает копию с собственным буфером payload.
func (a Action) Clone() Action {
	payload := make(json.RawMessage, len(a.Payload))
	copy(payload, a.Payload)
	return Action{Kind: a.Kind, Payload: payload}
}

// String дает человекочитаемое описание для логов и logdump.
func (a Action) String() string {
	switch a.Kind {
	case ActionMove:
		var p MovePayload
		if err := json.Unmarshal(a.Payload, &p); err == nil {
			return fmt.Sprintf("MOVE %s %s -> %s", p.UnitKind, p.Origin, p.Destination)
		}
	case ActionBuild:
		var p BuildPayload
		if err := json.Unmarshal(a.Payload, &p); err == nil {
			return fmt.Sprintf("BUILD %s @ %s", p.Construction, p.City)
		}
	case ActionResearch:
		var p ResearchPayload
		if err := json.Unmarshal(a.Payload, &p); err == nil {
			return fmt.Sprintf("RESEARCH %s", p.Tech)
		}
	}
	return fmt.Sprintf("%s %s", a.Kind, string(a.Payload))
}
