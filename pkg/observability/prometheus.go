package observability

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrNoRegistry is returned when metrics are exported without a Prometheus registry.
var ErrNoRegistry = errors.New("prometheus registry not initialized")

// WriteTextfile writes the gathered metrics to path in the Prometheus text
// format, for node_exporter's textfile collector.
func WriteTextfile(registry *prometheus.Registry, path string) error {
	if registry == nil {
		return ErrNoRegistry
	}

	err := prometheus.WriteToTextfile(path, registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
