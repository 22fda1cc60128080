package e3631a

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/jgulick48/e3631a/internal/metrics"
	"github.com/jgulick48/e3631a/internal/models"
)

// Client controls a Keysight E3631A triple output bench power supply over
// its RS-232 interface. Every call is one blocking request/response exchange
// against the supply. The driver owns its session exclusively. The setpoint
// mirror is guarded so another goroutine may read Setpoints or apply a Set
// while the publish loop runs, but exchanges themselves are not serialized,
// callers issuing commands concurrently serialize those themselves.
type Client interface {
	Get(channel Channel, kind Kind) (float64, error)
	Set(channel Channel, kind Kind, value float64) error
	Delete(channel Channel, kind Kind) error
	GetVoltage(channel Channel) (float64, error)
	SetVoltage(channel Channel, value float64) error
	GetCurrent(channel Channel) (float64, error)
	SetCurrent(channel Channel, value float64) error
	Setpoints(channel Channel) (float64, float64)
	Limits() *LimitRegistry
	Identify() (string, error)
	Version() (string, error)
	RemoteMode() error
	LocalMode() error
	Beep() error
	SelectedOutput() (string, error)
	Send(command string) (string, error)
}

// The supply resolves setpoints to four decimal digits internally, values
// are rounded the same way before being mirrored or sent.
const resolvedDigits = 4

type transaction interface {
	Exchange(command []byte) ([]byte, error)
}

type channelState struct {
	voltage float64
	current float64
}

type client struct {
	config   models.SupplyConfig
	limits   *LimitRegistry
	exchange transaction
	mux      sync.Mutex
	state    map[Channel]*channelState
}

// NewClient opens a session against the supply. If both the version and the
// identify probes come back empty the supply is presumed unreachable, which
// is logged as a warning but does not fail construction, later calls may
// fail. Otherwise the supply is switched into remote mode. Unless the
// configuration asks for quiet, three beeps confirm the round trip works.
func NewClient(config models.SupplyConfig, limits *LimitRegistry) (Client, error) {
	exchange, err := newExecutor(config)
	if err != nil {
		return nil, err
	}
	if limits == nil {
		limits = NewLimitRegistry()
	}
	c := &client{
		config:   config,
		limits:   limits,
		exchange: exchange,
		state: map[Channel]*channelState{
			P6V:  {},
			P25V: {},
			N25V: {},
		},
	}
	c.initialize()
	return c, nil
}

func (c *client) initialize() {
	version, err := c.Version()
	if err != nil {
		log.Printf("Error querying the SCPI version from %s: %s", c.config.Device, err)
	}
	identity := ""
	if len(version) == 0 {
		identity, err = c.Identify()
		if err != nil {
			log.Printf("Error identifying the supply on %s: %s", c.config.Device, err)
		}
	}
	if len(version) == 0 && len(identity) == 0 {
		log.Printf("There is no response from the port %s. The supply may not be communicating back with this driver. Some calls may fail.", c.config.Device)
	} else {
		if err := c.RemoteMode(); err != nil {
			log.Printf("Error switching the supply into remote mode: %s", err)
		}
	}
	if !c.config.Quiet {
		// Three beeps confirm commands go through and exercise the
		// timeout path.
		for i := 0; i < 3; i++ {
			if err := c.Beep(); err != nil {
				log.Printf("Error sending beep command: %s", err)
			}
		}
	}
}

// Send frames and sends one raw SCPI command and returns the deframed
// response. No checks are made on the reasonableness of the command.
func (c *client) Send(command string) (string, error) {
	raw, err := c.exchange.Exchange(Frame(command))
	if err != nil {
		return "", err
	}
	return Deframe(raw), nil
}

func (c *client) Identify() (string, error) {
	return c.Send(commandIdentify)
}

func (c *client) Version() (string, error) {
	return c.Send(commandVersion)
}

// RemoteMode hands control of the supply to this driver. The front panel
// local button still overrides.
func (c *client) RemoteMode() error {
	_, err := c.Send(commandRemote)
	return err
}

// LocalMode hands control of the supply back to the front panel.
func (c *client) LocalMode() error {
	_, err := c.Send(commandLocal)
	return err
}

func (c *client) Beep() error {
	_, err := c.Send(commandBeep)
	return err
}

// SelectedOutput reports which output is active on the front panel.
func (c *client) SelectedOutput() (string, error) {
	return c.Send(commandSelectedOutput)
}

// Get queries the supply for a channel's setpoints and returns the requested
// one. The supply's value is checked against the last value commanded
// through this driver, a mismatch beyond floating point tolerance comes back
// as a StateDriftError.
func (c *client) Get(channel Channel, kind Kind) (float64, error) {
	state, ok := c.state[channel]
	if !ok {
		return 0, &InvalidChannelError{Channel: string(channel)}
	}
	if kind != Voltage && kind != Current {
		return 0, fmt.Errorf("unknown setpoint kind %q", kind)
	}
	query, err := ApplyQuery(channel)
	if err != nil {
		return 0, err
	}
	response, err := c.Send(query)
	if err != nil {
		return 0, err
	}
	voltage, current, err := ParseApplyResponse(response)
	if err != nil {
		return 0, err
	}
	c.mux.Lock()
	var device, local float64
	switch kind {
	case Voltage:
		device, local = voltage, state.voltage
	case Current:
		device, local = current, state.current
	}
	c.mux.Unlock()
	if !floatsClose(device, local) {
		return 0, &StateDriftError{Channel: channel, Kind: kind, Local: local, Device: device}
	}
	return device, nil
}

// Set validates a setpoint against the limit registry, mirrors it rounded to
// the supply's resolution and sends the APPLy command. The other kind's last
// known value rides along, the supply wants both fields. The mirror is
// updated before sending so a following Get checks against the value just
// intended. The supply acknowledges silently, response bytes are discarded.
func (c *client) Set(channel Channel, kind Kind, value float64) error {
	state, ok := c.state[channel]
	if !ok {
		return &InvalidChannelError{Channel: string(channel)}
	}
	if err := c.limits.Validate(channel, kind, value); err != nil {
		return err
	}
	rounded := roundTo(value, resolvedDigits)
	c.mux.Lock()
	switch kind {
	case Voltage:
		state.voltage = rounded
	case Current:
		state.current = rounded
	}
	voltage, current := state.voltage, state.current
	c.mux.Unlock()
	command, err := ApplyCommand(channel, Number(voltage), Number(current))
	if err != nil {
		return err
	}
	if _, err := c.Send(command); err != nil {
		return err
	}
	channelVoltage.WithLabelValues(c.config.Name, string(channel)).Set(voltage)
	channelCurrent.WithLabelValues(c.config.Name, string(channel)).Set(current)
	metrics.SendGaugeMetric("e3631a.setpoint", []string{
		metrics.FormatTag("name", c.config.Name),
		metrics.FormatTag("channel", string(channel)),
		metrics.FormatTag("kind", string(kind)),
	}, rounded)
	return nil
}

// Delete always fails and never contacts the supply. Setpoints can only be
// overwritten, never removed.
func (c *client) Delete(channel Channel, kind Kind) error {
	return &UnsupportedOperationError{Channel: channel, Kind: kind}
}

func (c *client) GetVoltage(channel Channel) (float64, error) {
	return c.Get(channel, Voltage)
}

func (c *client) SetVoltage(channel Channel, value float64) error {
	return c.Set(channel, Voltage, value)
}

func (c *client) GetCurrent(channel Channel) (float64, error) {
	return c.Get(channel, Current)
}

func (c *client) SetCurrent(channel Channel, value float64) error {
	return c.Set(channel, Current, value)
}

// Setpoints returns the mirrored voltage and current for a channel without
// contacting the supply.
func (c *client) Setpoints(channel Channel) (float64, float64) {
	if state, ok := c.state[channel]; ok {
		c.mux.Lock()
		defer c.mux.Unlock()
		return state.voltage, state.current
	}
	return 0, 0
}

func (c *client) Limits() *LimitRegistry {
	return c.limits
}

// floatsClose follows the math.isclose default of a relative tolerance of
// 1e-9 with no absolute floor.
func floatsClose(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

func roundTo(value float64, digits int) float64 {
	factor := math.Pow(10, float64(digits))
	return math.Round(value*factor) / factor
}
