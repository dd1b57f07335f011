package engine

import (
	"fmt"

	"BunkerWars/internal/gameerr"
)

func (e *Engine) requireOwner(caller string) error {
	if caller != e.params.Owner {
		return gameerr.New(gameerr.CodeNotOwner, fmt.Sprintf("caller %s", caller))
	}
	return nil
}

func (e *Engine) requireOracle(caller string) error {
	if caller != e.params.Oracle {
		return gameerr.New(gameerr.CodeNotOracle, fmt.Sprintf("caller %s", caller))
	}
	return nil
}
