package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the current metric values to a Prometheus Pushgateway. One-shot
// runs exit before a scrape could happen, so they push instead.
func Push(ctx context.Context, url, job string, m *Metrics) error {
	if err := push.New(url, job).Gatherer(m.Gatherer()).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
