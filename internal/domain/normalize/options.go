package normalize

import (
	"strings"
	"time"

	"github.com/okian/gamesdesk/pkg/logger"
)

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithLocation sets the zone timestamps are canonicalized in.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// WithListAliases names envelope senders that relay for readers; mail from
// them is attributed to its Reply-To address.
func WithListAliases(aliases ...string) Option {
	return func(n *Normalizer) {
		for _, a := range aliases {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				n.aliases[a] = true
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) { n.log = l }
}
