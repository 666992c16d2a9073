package adapter

import (
	"github.com/fathomio/fathom-core/internal/complexity"
)

// genericJSONFactory parses the GenericInput wire format directly into an
// InputAdapter. Registered as "generic-json", the default for any caller
// that does not feed the core through a MetricsEngine (e.g. a non-Go
// producer, or a replay harness reading recorded InputSnapshot JSON).
type genericJSONFactory struct{}

func init() {
	Register(genericJSONFactory{})
}

func (genericJSONFactory) Name() string { return "generic-json" }

func (genericJSONFactory) Build(payload []byte) (complexity.InputAdapter, error) {
	g, err := complexity.GenericInputFromJSON(payload)
	if err != nil {
		return nil, err
	}
	return g, nil
}
