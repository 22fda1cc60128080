package e3631a

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ValidateFactoryBounds(t *testing.T) {
	limits := NewLimitRegistry()
	cases := []struct {
		name    string
		channel Channel
		kind    Kind
		value   float64
		ok      bool
	}{
		{"P6V voltage inside", P6V, Voltage, 3.3, true},
		{"P6V voltage at min", P6V, Voltage, 0, true},
		{"P6V voltage at max", P6V, Voltage, 6, true},
		{"P6V voltage above max", P6V, Voltage, 6.01, false},
		{"P6V voltage below min", P6V, Voltage, -0.01, false},
		{"P6V current at max", P6V, Current, 5, true},
		{"P6V current above max", P6V, Current, 5.1, false},
		{"P25V voltage at max", P25V, Voltage, 25, true},
		{"P25V voltage above max", P25V, Voltage, 25.5, false},
		{"P25V current above max", P25V, Current, 1.2, false},
		{"N25V voltage inside", N25V, Voltage, -12.5, true},
		{"N25V voltage at min", N25V, Voltage, -25, true},
		{"N25V voltage at max", N25V, Voltage, 0, true},
		{"N25V voltage positive", N25V, Voltage, 0.1, false},
		{"N25V voltage below min", N25V, Voltage, -25.1, false},
		{"N25V current inside", N25V, Current, 0.5, true},
	}
	for _, c := range cases {
		err := limits.Validate(c.channel, c.kind, c.value)
		if c.ok {
			assert.NoError(t, err, c.name)
			continue
		}
		var rangeErr *RangeError
		if assert.ErrorAs(t, err, &rangeErr, c.name) {
			assert.Equal(t, FactoryLimit, rangeErr.Source, c.name)
			assert.Equal(t, c.channel, rangeErr.Channel, c.name)
			assert.Equal(t, c.kind, rangeErr.Kind, c.name)
			assert.Equal(t, c.value, rangeErr.Value, c.name)
		}
	}
}

func Test_ValidateUserBounds(t *testing.T) {
	limits := NewLimitRegistry()
	err := limits.SetUserRange(P6V, Voltage, 1, 5)
	assert.NoError(t, err)

	assert.NoError(t, limits.Validate(P6V, Voltage, 1))
	assert.NoError(t, limits.Validate(P6V, Voltage, 5))
	assert.NoError(t, limits.Validate(P6V, Voltage, 3.3))

	var rangeErr *RangeError
	err = limits.Validate(P6V, Voltage, 5.5)
	if assert.ErrorAs(t, err, &rangeErr) {
		assert.Equal(t, UserLimit, rangeErr.Source)
		assert.Equal(t, 1.0, rangeErr.Min)
		assert.Equal(t, 5.0, rangeErr.Max)
	}

	err = limits.Validate(P6V, Voltage, 0.5)
	if assert.ErrorAs(t, err, &rangeErr) {
		assert.Equal(t, UserLimit, rangeErr.Source)
	}

	// Other kinds and channels are untouched by the user range write.
	assert.NoError(t, limits.Validate(P6V, Current, 4.5))
	assert.NoError(t, limits.Validate(P25V, Voltage, 20))
}

func Test_ValidateWideUserRange(t *testing.T) {
	// A user range wider than the factory range is allowed, but the factory
	// check still rejects values outside the hardware bounds.
	limits := NewLimitRegistry()
	assert.NoError(t, limits.SetUserRange(P6V, Voltage, -10, 10))

	var rangeErr *RangeError
	err := limits.Validate(P6V, Voltage, 8)
	if assert.ErrorAs(t, err, &rangeErr) {
		assert.Equal(t, FactoryLimit, rangeErr.Source)
	}
	assert.NoError(t, limits.Validate(P6V, Voltage, 5))
}

func Test_SetUserRangeRejectsInvertedRange(t *testing.T) {
	limits := NewLimitRegistry()
	assert.Error(t, limits.SetUserRange(P6V, Voltage, 5, 1))

	// The previous range stays in effect.
	userRange, ok := limits.UserRange(P6V, Voltage)
	assert.True(t, ok)
	assert.Equal(t, Range{Min: 0, Max: 6}, userRange)
}

func Test_ValidateUnknownChannel(t *testing.T) {
	limits := NewLimitRegistry()
	var invalidErr *InvalidChannelError
	assert.ErrorAs(t, limits.Validate(Channel("P12V"), Voltage, 1), &invalidErr)
	assert.ErrorAs(t, limits.SetUserRange(Channel("P12V"), Voltage, 0, 1), &invalidErr)
}

func Test_RegistriesAreIndependent(t *testing.T) {
	first := NewLimitRegistry()
	second := NewLimitRegistry()
	assert.NoError(t, first.SetUserRange(P25V, Current, 0, 0.5))

	assert.Error(t, first.Validate(P25V, Current, 0.8))
	assert.NoError(t, second.Validate(P25V, Current, 0.8))
}
