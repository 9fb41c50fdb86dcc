package domain

import (
	"reflect"
	"testing"
)

func testTemplate() GameTemplate {
	return GameTemplate{
		Name: "test",
		Civilizations: []CivInfo{
			{Name: "Rome", Role: RoleMajor},
			{Name: "Spectator", Role: RoleSpectator},
			{Name: "Geneva", Role: RoleCityState},
			{Name: "Greece"},
		},
	}
}

func TestGameTemplate_Playable(t *testing.T) {
	tmpl := testTemplate()

	var names []string
	for _, c := range tmpl.Playable() {
		names = append(names, c.Name)
	}
	if want := []string{"Rome", "Geneva", "Greece"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Playable() = %v, want %v", names, want)
	}

	if got := len(tmpl.WithoutSpectators().Civilizations); got != 3 {
		t.Errorf("WithoutSpectators kept %d civs, want 3", got)
	}
	if len(tmpl.Civilizations) != 4 {
		t.Error("WithoutSpectators must not modify the original template")
	}
}

func TestGameTemplate_MajorMinor(t *testing.T) {
	tmpl := testTemplate()

	if got, want := tmpl.MajorCivs(), []string{"Rome", "Greece"}; !reflect.DeepEqual(got, want) {
		t.Errorf("MajorCivs() = %v, want %v", got, want)
	}
	if got, want := tmpl.MinorCivs(), []string{"Geneva"}; !reflect.DeepEqual(got, want) {
		t.Errorf("MinorCivs() = %v, want %v", got, want)
	}
}

func TestGameTemplate_Validate(t *testing.T) {
	if err := testTemplate().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := testTemplate()
	dup.Civilizations = append(dup.Civilizations, CivInfo{Name: "Rome"})
	if err := dup.Validate(); err == nil {
		t.Error("expected duplicate civilization error")
	}

	noMajors := GameTemplate{Civilizations: []CivInfo{{Name: "Geneva", Role: RoleCityState}}}
	if err := noMajors.Validate(); err == nil {
		t.Error("expected error for template without major civs")
	}

	badRole := GameTemplate{Civilizations: []CivInfo{{Name: "Rome", Role: "emperor"}}}
	if err := badRole.Validate(); err == nil {
		t.Error("expected unknown role error")
	}
}
