package metrics

import (
	"fmt"
	"log"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
)

var Metrics *statsd.Client
var StatsEnabled bool

func FormatTag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}
func SendGaugeMetric(name string, tags []string, value float64) {
	if StatsEnabled {
		err := Metrics.Gauge(name, value, tags, 1)
		if err != nil {
			log.Printf("Got error trying to send metric %s", err.Error())
		}
	}
}
func SendCountMetric(name string, tags []string) {
	if StatsEnabled {
		err := Metrics.Incr(name, tags, 1)
		if err != nil {
			log.Printf("Got error trying to send metric %s", err.Error())
		}
	}
}
func SendTimingMetric(name string, tags []string, start time.Time) {
	if StatsEnabled {
		err := Metrics.Timing(name, time.Since(start), tags, 1)
		if err != nil {
			log.Printf("Got error trying to send metric %s", err.Error())
		}
	}
}
