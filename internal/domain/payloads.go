package domain

import (
	"errors"
	"fmt"
)

// Position - координаты клетки на карте.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Validator - интерфейс, который могут реализовать payload-структуры и DTO.
// Обертка handlers.WithPayload вызывает его автоматически.
type Validator interface {
	Validate() error
}

// MovePayload - данные действия MOVE.
// Юнит ищется по типу и исходной клетке; UnitID (если есть) уточняет выбор.
type MovePayload struct {
	UnitID      string   `json:"unitId,omitempty"`
	UnitKind    string   `json:"unitKind"`
	Origin      Position `json:"origin"`
	Destination Position `json:"destination"`
}

// BuildPayload - данные действия BUILD.
type BuildPayload struct {
	Construction string   `json:"construction"`
	City         Position `json:"city"`
}

// ResearchPayload - данные действия RESEARCH.
type ResearchPayload struct {
	Tech string `json:"tech"`
}

func (p MovePayload) Validate() error {
	if p.UnitKind == "" {
		return errors.New("unitKind is required")
	}
	return nil
}

func (p BuildPayload) Validate() error {
	if p.Construction == "" {
		return errors.New("construction is required")
	}
	return nil
}

func (p ResearchPayload) Validate() error {
	if p.Tech == "" {
		return errors.New("tech is required")
	}
	return nil
}
