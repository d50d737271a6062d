package metrics

import "strings"

const prefix = "tdl_"

// IngestDurationBuckets defines latency buckets for whole ingestion runs.
var IngestDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// HTTPDurationBuckets defines latency buckets for HTTP request duration metrics.
var HTTPDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// MetricName prefixes name with the tdl namespace unless already present.
func MetricName(name string) string {
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}
