package actions

import (
	"civsim-server/internal/domain"
	"civsim-server/internal/engine/handlers"
	"fmt"
)

// HandleMove находит юнита и отправляет его на клетку назначения.
//
// Если в payload есть UnitID и этот юнит стоит на исходной клетке, берется он.
// Иначе (старые логи, юнит потерян) - первый юнит нужного типа на исходной клетке.
func HandleMove(ctx handlers.Context, p domain.MovePayload) (handlers.Result, error) {
	unit, ok := locateUnit(ctx.World, p)
	if !ok {
		return handlers.EmptyResult(), fmt.Errorf("%w: %s at %s", domain.ErrUnitNotFound, p.UnitKind, p.Origin)
	}

	if err := ctx.World.MoveUnit(unit, p.Destination); err != nil {
		return handlers.EmptyResult(), fmt.Errorf("move %s %s -> %s: %w", unit.Kind, p.Origin, p.Destination, err)
	}

	return handlers.Result{
		Msg: fmt.Sprintf("%s %s moved %s -> %s", ctx.Civ, unit.Kind, p.Origin, p.Destination),
	}, nil
}

func locateUnit(world domain.Mutator, p domain.MovePayload) (domain.UnitRef, bool) {
	if p.UnitID != "" {
		if unit, ok := world.FindUnitByID(p.UnitID); ok && unit.Pos == p.Origin && unit.Kind == p.UnitKind {
			return unit, true
		}
	}
	return world.FindUnit(p.UnitKind, p.Origin)
}
