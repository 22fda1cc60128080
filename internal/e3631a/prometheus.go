package e3631a

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	channelVoltage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "supplyChannelVoltage",
			Help: "Last commanded voltage for an output channel.",
		},
		[]string{
			"name",
			"channel",
		},
	)
	channelCurrent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "supplyChannelCurrent",
			Help: "Last commanded current for an output channel.",
		},
		[]string{
			"name",
			"channel",
		},
	)
	exchangeCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplyExchangesTotal",
			Help: "Serial exchanges performed against the supply.",
		},
		[]string{
			"name",
			"result",
		},
	)
)

func init() {
	prometheus.MustRegister(channelVoltage)
	prometheus.MustRegister(channelCurrent)
	prometheus.MustRegister(exchangeCount)
}
