package domain

import (
	"errors"
	"fmt"
)

// CivRole - роль цивилизации в партии.
type CivRole string

const (
	RoleMajor     CivRole = "major"
	RoleCityState CivRole = "cityState"
	RoleSpectator CivRole = "spectator"
)

// CivInfo - описание участника партии.
type CivInfo struct {
	Name string  `json:"name" yaml:"name"`
	Role CivRole `json:"role" yaml:"role"`
}

func (c CivInfo) IsMajor() bool     { return c.Role == RoleMajor || c.Role == "" }
func (c CivInfo) IsCityState() bool { return c.Role == RoleCityState }
func (c CivInfo) IsSpectator() bool { return c.Role == RoleSpectator }

// GameTemplate - параметры новой партии. Передается явно, глобального "текущего
// шаблона" нет.
type GameTemplate struct {
	Name          string         `json:"name" yaml:"name"`
	MapWidth      int            `json:"mapWidth" yaml:"mapWidth"`
	MapHeight     int            `json:"mapHeight" yaml:"mapHeight"`
	Civilizations []CivInfo      `json:"civilizations" yaml:"civilizations"`
	Victories     []VictoryType  `json:"victories" yaml:"victories"`
	Rules         map[string]int `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Playable возвращает участников без зрителей.
func (t GameTemplate) Playable() []CivInfo {
	out := make([]CivInfo, 0, len(t.Civilizations))
	for _, c := range t.Civilizations {
		if !c.IsSpectator() {
			out = append(out, c)
		}
	}
	return out
}

// WithoutSpectators - копия шаблона, из которой убраны зрители.
func (t GameTemplate) WithoutSpectators() GameTemplate {
	out := t
	out.Civilizations = t.Playable()
	return out
}

// MajorCivs - имена основных цивилизаций в порядке шаблона.
func (t GameTemplate) MajorCivs() []string {
	var out []string
	for _, c := range t.Civilizations {
		if c.IsMajor() {
			out = append(out, c.Name)
		}
	}
	return out
}

// MinorCivs - имена городов-государств.
func (t GameTemplate) MinorCivs() []string {
	var out []string
	for _, c := range t.Civilizations {
		if c.IsCityState() {
			out = append(out, c.Name)
		}
	}
	return out
}

// Rule возвращает числовое правило или значение по умолчанию.
func (t GameTemplate) Rule(name string, fallback int) int {
	if v, ok := t.Rules[name]; ok {
		return v
	}
	return fallback
}

func (t GameTemplate) Validate() error {
	if len(t.MajorCivs()) == 0 {
		return errors.New("template has no major civilizations")
	}
	seen := make(map[string]bool, len(t.Civilizations))
	for _, c := range t.Civilizations {
		if c.Name == "" {
			return errors.New("civilization name is required")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate civilization %q", c.Name)
		}
		seen[c.Name] = true
		switch c.Role {
		case "", RoleMajor, RoleCityState, RoleSpectator:
		default:
			return fmt.Errorf("civilization %q: unknown role %q", c.Name, c.Role)
		}
	}
	return nil
}
