package engine

import (
	"civsim-server/internal/domain"
	"civsim-server/internal/engine/handlers"
	"civsim-server/internal/engine/handlers/actions"
	"fmt"
)

// Applier - таблица диспетчеризации: вид действия -> мутация мира.
// Детерминирован: кроме вызовов мира, побочных эффектов нет.
type Applier struct {
	handlers map[domain.ActionKind]handlers.HandlerFunc
}

func NewApplier() *Applier {
	a := &Applier{handlers: make(map[domain.ActionKind]handlers.HandlerFunc)}
	a.registerHandlers()
	return a
}

func (a *Applier) registerHandlers() {
	a.handlers[domain.ActionMove] = handlers.WithPayload(actions.HandleMove)
	a.handlers[domain.ActionBuild] = handlers.WithPayload(actions.HandleBuild)
	a.handlers[domain.ActionResearch] = handlers.WithPayload(actions.HandleResearch)
}

// Apply применяет одно действие от имени цивилизации civ.
func (a *Applier) Apply(world domain.Mutator, civ string, act domain.Action) (handlers.Result, error) {
	handler, ok := a.handlers[act.Kind]
	if !ok {
		return handlers.EmptyResult(), fmt.Errorf("%w: no handler for %s", domain.ErrInvalidAction, act.Kind)
	}
	return handler(handlers.Context{World: world, Civ: civ}, act.Payload)
}
