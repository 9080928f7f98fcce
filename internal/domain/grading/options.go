package grading

import "github.com/okian/gamesdesk/pkg/logger"

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithMissingWindowLogLimit caps the "no matching window" notices logged
// per game before further ones are suppressed.
func WithMissingWindowLogLimit(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.missLimit = n
		}
	}
}

// WithMaxTokens sets the completion budget for rubric and verdict calls.
func WithMaxTokens(rubric, verdict int) Option {
	return func(o *Orchestrator) {
		if rubric > 0 {
			o.rubricTokens = rubric
		}
		if verdict > 0 {
			o.verdictTokens = verdict
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}
