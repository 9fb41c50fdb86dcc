package worldgen

import (
	"civsim-server/internal/domain"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Setup - все, из чего мир строится заново: шаблон и зерно.
// Его JSON кладется в лог как снимок начального состояния.
type Setup struct {
	Template domain.GameTemplate `json:"template"`
	Seed     int64               `json:"seed"`
}

// Snapshot возвращает снимок начального состояния мира.
func (w *World) Snapshot() ([]byte, error) {
	return json.Marshal(w.setup)
}

// ParseSetup разбирает снимок из Snapshot.
func ParseSetup(raw []byte) (Setup, error) {
	var s Setup
	if err := json.Unmarshal(raw, &s); err != nil {
		return Setup{}, fmt.Errorf("invalid world snapshot: %w", err)
	}
	return s, nil
}

// Restore строит мир заново по снимку из Snapshot.
func Restore(raw []byte) (*World, error) {
	s, err := ParseSetup(raw)
	if err != nil {
		return nil, err
	}
	return New(s.Template, s.Seed)
}

// Fingerprint - хеш полного изменяемого состояния. Два мира с одинаковым
// отпечатком неразличимы для игры.
func (w *World) Fingerprint() string {
	var b strings.Builder

	fmt.Fprintf(&b, "turn=%d current=%d winner=%s/%s next=%d\n", w.turn, w.current, w.winner, w.victory, w.nextUnit)
	for _, cv := range w.civs {
		known := make([]string, 0, len(cv.Known))
		for t := range cv.Known {
			known = append(known, t)
		}
		sort.Strings(known)
		fmt.Fprintf(&b, "civ %s alive=%t sci=%d research=%v known=%v\n", cv.Info.Name, cv.Alive, cv.Science, cv.Research, known)
	}
	for _, c := range w.cities {
		built := make([]string, 0, len(c.Built))
		for name := range c.Built {
			built = append(built, name)
		}
		sort.Strings(built)
		fmt.Fprintf(&b, "city %s civ=%s pos=%s pop=%d food=%d stored=%d queue=%v built=%v\n",
			c.Name, c.Civ, c.Pos, c.Population, c.Food, c.Stored, c.Queue, built)
	}
	for _, u := range w.units {
		fmt.Fprintf(&b, "unit %s %s civ=%s pos=%s\n", u.ID, u.Kind, u.Civ, u.Pos)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// UnitsOf возвращает юнитов цивилизации в порядке создания.
func (w *World) UnitsOf(civName string) []domain.UnitRef {
	var out []domain.UnitRef
	for _, u := range w.units {
		if u.Civ == civName {
			out = append(out, u.ref())
		}
	}
	return out
}

// CitiesOf возвращает города цивилизации.
func (w *World) CitiesOf(civName string) []domain.CityRef {
	var out []domain.CityRef
	for _, c := range w.cities {
		if c.Civ == civName {
			out = append(out, domain.CityRef{Name: c.Name, Civ: c.Civ, Pos: c.Pos})
		}
	}
	return out
}

// Terrain возвращает тип клетки (Water вне карты).
func (w *World) Terrain(p domain.Position) Terrain {
	if !w.inBounds(p) {
		return Water
	}
	return w.tiles[p.Y][p.X]
}
