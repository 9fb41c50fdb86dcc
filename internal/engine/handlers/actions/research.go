package actions

import (
	"civsim-server/internal/domain"
	"civsim-server/internal/engine/handlers"
	"fmt"
)

func HandleResearch(ctx handlers.Context, p domain.ResearchPayload) (handlers.Result, error) {
	if err := ctx.World.EnqueueResearch(ctx.Civ, p.Tech); err != nil {
		return handlers.EmptyResult(), fmt.Errorf("research %s: %w", p.Tech, err)
	}
	return handlers.Result{Msg: fmt.Sprintf("%s researching %s", ctx.Civ, p.Tech)}, nil
}
