package actions

import (
	"civsim-server/internal/domain"
	"civsim-server/internal/engine/handlers"
	"fmt"
)

// HandleBuild ставит постройку в очередь города на клетке p.City.
func HandleBuild(ctx handlers.Context, p domain.BuildPayload) (handlers.Result, error) {
	city, ok := ctx.World.FindCity(p.City)
	if !ok {
		return handlers.EmptyResult(), fmt.Errorf("%w: at %s", domain.ErrCityNotFound, p.City)
	}

	if err := ctx.World.EnqueueConstruction(city, p.Construction); err != nil {
		return handlers.EmptyResult(), fmt.Errorf("enqueue %s in %s: %w", p.Construction, city.Name, err)
	}

	return handlers.Result{Msg: fmt.Sprintf("%s queued %s", city.Name, p.Construction)}, nil
}
