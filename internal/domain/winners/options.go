package winners

import (
	"math/rand"

	"github.com/okian/gamesdesk/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRand sets the source used to draw new swag winners.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithSponsor names who gives out the swag in the summary text.
func WithSponsor(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.sponsor = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}
