package worldgen

import (
	"civsim-server/internal/domain"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultTemplate - партия по умолчанию: три основные цивилизации,
// город-государство и зритель.
func DefaultTemplate() domain.GameTemplate {
	return domain.GameTemplate{
		Name:      "default",
		MapWidth:  DefaultMapWidth,
		MapHeight: DefaultMapHeight,
		Civilizations: []domain.CivInfo{
			{Name: "Rome", Role: domain.RoleMajor},
			{Name: "Greece", Role: domain.RoleMajor},
			{Name: "Egypt", Role: domain.RoleMajor},
			{Name: "Geneva", Role: domain.RoleCityState},
			{Name: "Spectator", Role: domain.RoleSpectator},
		},
		Victories: []domain.VictoryType{domain.VictoryDomination, domain.VictoryScientific},
		Rules: map[string]int{
			RuleScienceVictoryTechs: len(Techs),
			RuleAttackArmy:          3,
		},
	}
}

// ParseTemplate читает шаблон из YAML и проверяет его.
func ParseTemplate(data []byte) (domain.GameTemplate, error) {
	var tmpl domain.GameTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return domain.GameTemplate{}, fmt.Errorf("parse template: %w", err)
	}
	tmpl = withDefaults(tmpl)
	if err := tmpl.Validate(); err != nil {
		return domain.GameTemplate{}, err
	}
	return tmpl, nil
}

// LoadTemplate читает шаблон из файла; пустой путь - DefaultTemplate.
func LoadTemplate(path string) (domain.GameTemplate, error) {
	if path == "" {
		return DefaultTemplate(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.GameTemplate{}, fmt.Errorf("read template %s: %w", path, err)
	}
	return ParseTemplate(data)
}
