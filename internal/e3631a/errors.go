package e3631a

import (
	"fmt"
)

// LimitSource says which layer of bounds rejected a setpoint.
type LimitSource string

const (
	FactoryLimit LimitSource = "factory"
	UserLimit    LimitSource = "user"
)

// RangeError is returned when a setpoint falls outside the factory or user
// bounds for its channel. Nothing was sent to the supply.
type RangeError struct {
	Source  LimitSource
	Channel Channel
	Kind    Kind
	Value   float64
	Min     float64
	Max     float64
}

func (e *RangeError) Error() string {
	unit := "V"
	if e.Kind == Current {
		unit = "A"
	}
	return fmt.Sprintf("the attempted %s value is %v, this is outside the %s limits for the %s output: %v <= %s <= %v",
		e.Kind, e.Value, e.Source, e.Channel, e.Min, unit, e.Max)
}

// ConfigurationError signals unusable connection parameters. It is fatal to
// construction of the driver.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid serial configuration: %s", e.Reason)
}

type InvalidChannelError struct {
	Channel string
}

func (e *InvalidChannelError) Error() string {
	return fmt.Sprintf("the output specified is %q, it must be one of the following: P6V, P25V, N25V", e.Channel)
}

// MalformedResponseError is returned when the supply's reply does not parse
// as the expected shape. It is surfaced to the caller, never retried.
type MalformedResponseError struct {
	Response string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from the supply: %q", e.Response)
}

// TransportError wraps an I/O failure at the serial layer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("serial %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StateDriftError reports that the supply's reported value does not match
// the last value commanded through this driver. Either the value was read
// before ever being set, or the front panel was used while the supply was
// nominally in remote mode. Resynchronize with a fresh Set.
type StateDriftError struct {
	Channel Channel
	Kind    Kind
	Local   float64
	Device  float64
}

func (e *StateDriftError) Error() string {
	return fmt.Sprintf("the supply %s %s and the driver's %s are not the same, assign a %s via the driver before reading it and keep the supply in remote mode: driver %v, supply %v",
		e.Channel, e.Kind, e.Kind, e.Kind, e.Local, e.Device)
}

// UnsupportedOperationError is returned by Delete. A setpoint can only be
// overwritten, never removed.
type UnsupportedOperationError struct {
	Channel Channel
	Kind    Kind
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("you cannot delete the %s %s of your power supply", e.Channel, e.Kind)
}
