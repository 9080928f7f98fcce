package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

const pushJobName = "gamesdesk"

// Push ships the registry to a Prometheus Pushgateway under the given
// instance grouping. A batch job exits before any scrape, so this is how its
// numbers reach Prometheus.
func Push(ctx context.Context, gatewayURL, instance string) error {
	if gatewayURL == "" {
		return nil
	}
	p := push.New(gatewayURL, pushJobName).Gatherer(customRegistry)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	return nil
}
