package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Namespace = "gymtrack"
	Subsystem = "tracker"
)

func FQName(name string) string {
	return prometheus.BuildFQName(Namespace, Subsystem, name)
}
