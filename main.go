package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/mitchellh/panicwrap"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jgulick48/e3631a/internal/e3631a"
	"github.com/jgulick48/e3631a/internal/metrics"
	"github.com/jgulick48/e3631a/internal/models"
	"github.com/jgulick48/e3631a/internal/telemetry"
)

func main() {
	exitStatus, err := panicwrap.BasicWrap(panicHandler)
	if err != nil {
		panic(err)
	}
	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}

	config := loadClientConfig("./config.json")
	if config.StatsServer != "" {
		statsClient, err := statsd.New(config.StatsServer)
		if err != nil {
			log.Printf("Error creating stats client: %s", err)
		} else {
			metrics.Metrics = statsClient
			metrics.StatsEnabled = true
		}
	}

	limits := e3631a.NewLimitRegistry()
	applyLimitOverrides(limits, config.Limits)
	supply, err := e3631a.NewClient(config.SupplyConfig, limits)
	if err != nil {
		log.Panic(err)
	}
	identity, err := supply.Identify()
	if err != nil {
		log.Printf("Error identifying the supply: %s", err)
	} else {
		log.Printf("Connected to %s", identity)
	}

	mqttClient := telemetry.NewClient(config.MQTTConfig, supply)
	if mqttClient.IsEnabled() {
		go mqttClient.Connect()
	}

	if config.Port != "" {
		http.Handle("/metrics", promhttp.Handler())
		log.Printf("Starting metrics server on port %s", config.Port)
		log.Fatal(http.ListenAndServe(fmt.Sprintf(":%s", config.Port), nil))
	}
	select {}
}

func loadClientConfig(filename string) models.Config {
	configFile, err := ioutil.ReadFile(filename)
	if err != nil {
		log.Printf("No config file found at %s", filename)
		panic(err)
	}
	var config models.Config
	err = json.Unmarshal(configFile, &config)
	if err != nil {
		log.Printf("Invalid config file provided")
		panic(err)
	}
	return config
}

func applyLimitOverrides(limits *e3631a.LimitRegistry, overrides map[string]models.LimitConfig) {
	for name, override := range overrides {
		channel := e3631a.Channel(strings.ToUpper(name))
		applyLimitOverride(limits, channel, e3631a.Voltage, override.MinVoltage.Ptr(), override.MaxVoltage.Ptr())
		applyLimitOverride(limits, channel, e3631a.Current, override.MinCurrent.Ptr(), override.MaxCurrent.Ptr())
	}
}

func applyLimitOverride(limits *e3631a.LimitRegistry, channel e3631a.Channel, kind e3631a.Kind, min, max *float64) {
	if min == nil && max == nil {
		return
	}
	current, ok := limits.UserRange(channel, kind)
	if !ok {
		log.Printf("Unknown channel %q in limit config, skipping", channel)
		return
	}
	if min != nil {
		current.Min = *min
	}
	if max != nil {
		current.Max = *max
	}
	if err := limits.SetUserRange(channel, kind, current.Min, current.Max); err != nil {
		log.Printf("Error applying limit override for %s %s: %s", channel, kind, err)
	}
}

func panicHandler(output string) {
	log.Printf("The child panicked:\n\n%s\n", output)
	os.Exit(1)
}
