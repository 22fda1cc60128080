package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/guregu/null"
)

type Config struct {
	Port         string                 `json:"port"`
	SupplyConfig SupplyConfig           `json:"supplyConfig"`
	Limits       map[string]LimitConfig `json:"limits"`
	MQTTConfig   MQTTConfiguration      `json:"mqttConfig"`
	StatsServer  string                 `json:"statsServer"`
}

type SupplyConfig struct {
	Name     string   `json:"name"`
	Device   string   `json:"device"`
	Baud     int      `json:"baud"`
	Parity   string   `json:"parity"`
	DataBits int      `json:"dataBits"`
	Timeout  null.Int `json:"timeout"`
	Quiet    bool     `json:"quiet"`
}

// SerialTimeout resolves the configured response timeout in seconds. An
// absent value falls back to the given default, an explicit zero disables
// the timeout entirely.
func (c SupplyConfig) SerialTimeout(defaultTimeout time.Duration) time.Duration {
	if !c.Timeout.Valid {
		return defaultTimeout
	}
	return time.Duration(c.Timeout.Int64) * time.Second
}

// LimitConfig narrows (or widens) the allowed setpoint window for one output
// channel. Absent fields keep the factory bound.
type LimitConfig struct {
	MinVoltage null.Float `json:"minVoltage"`
	MaxVoltage null.Float `json:"maxVoltage"`
	MinCurrent null.Float `json:"minCurrent"`
	MaxCurrent null.Float `json:"maxCurrent"`
}

type MQTTConfiguration struct {
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	DeviceID string   `json:"deviceID"`
	Interval Duration `json:"interval"`
}

type Message struct {
	Value null.Float `json:"value"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		return err
	default:
		return errors.New("invalid duration")
	}
}
