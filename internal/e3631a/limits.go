package e3631a

import (
	"fmt"
)

// Channel is one of the three output rails of the supply.
type Channel string

const (
	P6V  Channel = "P6V"
	P25V Channel = "P25V"
	N25V Channel = "N25V"
)

// Channels lists the supply's outputs in front panel order.
var Channels = []Channel{P6V, P25V, N25V}

// Kind selects which setpoint of a channel an operation works on.
type Kind string

const (
	Voltage Kind = "voltage"
	Current Kind = "current"
)

type Range struct {
	Min float64
	Max float64
}

func (r Range) contains(value float64) bool {
	return r.Min <= value && value <= r.Max
}

type LimitSet struct {
	Voltage Range
	Current Range
}

func (s LimitSet) rangeFor(kind Kind) (Range, bool) {
	switch kind {
	case Voltage:
		return s.Voltage, true
	case Current:
		return s.Current, true
	}
	return Range{}, false
}

// Factory bounds per output, fixed by the hardware. See the E3631A user's
// guide, http://literature.cdn.keysight.com/litweb/pdf/E3631-90002.pdf
var factoryLimits = map[Channel]LimitSet{
	P6V:  {Voltage: Range{Min: 0, Max: 6}, Current: Range{Min: 0, Max: 5}},
	P25V: {Voltage: Range{Min: 0, Max: 25}, Current: Range{Min: 0, Max: 1}},
	N25V: {Voltage: Range{Min: -25, Max: 0}, Current: Range{Min: 0, Max: 1}},
}

// LimitRegistry holds the user configurable setpoint bounds next to the
// factory ones. User ranges start out equal to the factory ranges and can be
// moved at any time, last write wins. A user range is checked independently
// of the factory range, so it may be wider, but a value has to pass both
// checks to be accepted.
type LimitRegistry struct {
	user map[Channel]LimitSet
}

func NewLimitRegistry() *LimitRegistry {
	user := make(map[Channel]LimitSet, len(factoryLimits))
	for channel, limits := range factoryLimits {
		user[channel] = limits
	}
	return &LimitRegistry{user: user}
}

// FactoryRange returns the hardware bound for a channel and kind.
func (r *LimitRegistry) FactoryRange(channel Channel, kind Kind) (Range, bool) {
	limits, ok := factoryLimits[channel]
	if !ok {
		return Range{}, false
	}
	return limits.rangeFor(kind)
}

// UserRange returns the current user bound for a channel and kind.
func (r *LimitRegistry) UserRange(channel Channel, kind Kind) (Range, bool) {
	limits, ok := r.user[channel]
	if !ok {
		return Range{}, false
	}
	return limits.rangeFor(kind)
}

// SetUserRange replaces the user bound for a channel and kind. It takes
// effect on the next Set call.
func (r *LimitRegistry) SetUserRange(channel Channel, kind Kind, min, max float64) error {
	limits, ok := r.user[channel]
	if !ok {
		return &InvalidChannelError{Channel: string(channel)}
	}
	if min > max {
		return fmt.Errorf("invalid range for %s %s: min %v is greater than max %v", channel, kind, min, max)
	}
	switch kind {
	case Voltage:
		limits.Voltage = Range{Min: min, Max: max}
	case Current:
		limits.Current = Range{Min: min, Max: max}
	default:
		return fmt.Errorf("unknown setpoint kind %q", kind)
	}
	r.user[channel] = limits
	return nil
}

// Validate checks a setpoint against the factory bound and then the user
// bound, both inclusive on both ends. It has no side effects.
func (r *LimitRegistry) Validate(channel Channel, kind Kind, value float64) error {
	factory, ok := r.FactoryRange(channel, kind)
	if !ok {
		if _, known := factoryLimits[channel]; !known {
			return &InvalidChannelError{Channel: string(channel)}
		}
		return fmt.Errorf("unknown setpoint kind %q", kind)
	}
	if !factory.contains(value) {
		return &RangeError{
			Source:  FactoryLimit,
			Channel: channel,
			Kind:    kind,
			Value:   value,
			Min:     factory.Min,
			Max:     factory.Max,
		}
	}
	user, _ := r.UserRange(channel, kind)
	if !user.contains(value) {
		return &RangeError{
			Source:  UserLimit,
			Channel: channel,
			Kind:    kind,
			Value:   value,
			Min:     user.Min,
			Max:     user.Max,
		}
	}
	return nil
}
