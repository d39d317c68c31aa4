package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName identifies generator runs on the Pushgateway.
const JobName = "cybermap"

// Push sends the run's metrics to a Pushgateway, replacing the previous
// group for this job. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, JobName).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
