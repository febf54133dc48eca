package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRegistry builds the registry backing the /metrics endpoint. Runtime and
// process collectors come pre-registered; the HTTP, database and business
// metric families are attached by their own Register functions so tests can
// compose a registry out of only the families they exercise.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
